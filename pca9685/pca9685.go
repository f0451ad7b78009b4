package pca9685

import (
	"math"
)

const (
	MODE1 = byte(0x00)
	MODE2 = byte(0x01)

	// The I2C addresses are stored in the 7 MSBs. Addresses must be left-shifted once.
	SUBADR1    = byte(0x02)
	SUBADR2    = byte(0x03)
	SUBADR3    = byte(0x04)
	ALLCALLADR = byte(0x05)

	// First register of output 0 (LED0_ON_L). Every output has 4 registers: ON_L, ON_H, OFF_L, OFF_H.
	// Default: all zero, except for FULL_OFF_BIT in LEDn_OFF_H.
	LED0 = byte(0x06)

	ALL_LEDS  = byte(0xFA) // ALL_LED_ON_L, same layout as the LEDn registers
	PRE_SCALE = byte(0xFE) // Only settable in SLEEP mode. Default value: 0x30
	TEST_MODE = byte(0xFF)

	NUM_OUTPUTS = 16
)

// Default values all zero, except ALLCALL and SLEEP
const (
	MODE1_ALLCALL = byte(1 << iota) // 1: Respond to ALLCALL address
	MODE1_SUB3                      // 1: Respond to SUB3 address
	MODE1_SUB2                      // 1: Respond to SUB2 address
	MODE1_SUB1                      // 1: Respond to SUB1 address
	MODE1_SLEEP                     // 0: normal mode 1: oscillator off, low power mode
	MODE1_AI                        // 1: Register auto increment
	MODE1_EXTCLK                    // 1: use EXTCLK pin as clock source. Can only be cleared by power cycle or software reset.
	MODE1_RESTART                   // Write 1: wake up from SLEEP (write 0 no effect). Only possible if read as 1, after setting SLEEP.
)

// Default values all zero, except OUTDRV
const (
	MODE2_OUTNE0 = byte(1 << iota) // (only for OUTNE1=0) 0: outputs off 1: [on if OUTDRV=1, high-impedance if OUTDRV=0]
	MODE2_OUTNE1                   // 1: high impedance 0: see OUTNE0
	MODE2_OUTDRV                   // 0: outputs are open drain 1: outputs are totem pole
	MODE2_OCH                      // 0: output change on STOP 1: output change on ACK
	MODE2_INVRT                    // 1: invert output logic
)

const (
	ADDRESS     = byte(0x40) // 0100 0000
	ADDRESS_MAX = byte(0x7F) // 0111 1111

	BYTE_PER_OUTPUT  = 4
	TIMER_MAX        = 4095
	TIMER_RESOLUTION = TIMER_MAX + 1

	FULL_ON_BIT  = 0x10 // bit 4 of LEDn_ON_H.
	FULL_OFF_BIT = 0x10 // bit 4 of LEDn_OFF_H. Takes precedence over the FULL_ON_BIT.

	FREQ_MIN          = 23.84185791
	FREQ_MAX          = 1525.87890625
	FREQ_MIN_PRESCALE = byte(0xFF)
	FREQ_MAX_PRESCALE = byte(0x03) // Minimum value asserted by hardware

	INTERNAL_OSCILLATOR = 25000000 // 25 MHz
)

// LedRegister returns the first of the 4 registers of the given output.
func LedRegister(output int) byte {
	return LED0 + byte(output)*BYTE_PER_OUTPUT
}

// Counts returns the counter values at which an output switches on and off, for a pulse
// starting after delay counts and staying high for width counts. Pulses exceeding the end of
// the cycle wrap around into the next one.
func Counts(delay, width int) (on, off int) {
	on = delay % TIMER_RESOLUTION
	off = (on + width) % TIMER_RESOLUTION
	return
}

// Registers splits counter values into the LEDn_ON_L, LEDn_ON_H, LEDn_OFF_L, LEDn_OFF_H register values.
func Registers(on, off int) (onL, onH, offL, offH byte) {
	return byte(on), byte(on>>8) & 0x0F, byte(off), byte(off>>8) & 0x0F
}

func FullOnValues() (byte, byte, byte, byte) {
	return 0, FULL_ON_BIT, 0, 0
}

func FullOffValues() (byte, byte, byte, byte) {
	return 0, 0, 0, FULL_OFF_BIT
}

// DutyValues converts duty in 0..dutyMax to register values. 0 and dutyMax use the full off and full on bits.
func DutyValues(delay, duty, dutyMax int) (byte, byte, byte, byte) {
	if duty <= 0 || dutyMax <= 0 {
		return FullOffValues()
	}
	if duty >= dutyMax {
		return FullOnValues()
	}
	return Registers(Counts(delay, duty*TIMER_RESOLUTION/dutyMax))
}

func round(f float64) int {
	return int(math.Floor(f + .5))
}

func PrescalerExternalClock(externalOscillator float64, frequency float64) byte {
	v := externalOscillator / (float64(TIMER_RESOLUTION) * frequency)
	return byte(round(v)) - 1
}

func Prescaler(frequency float64) byte {
	if frequency < FREQ_MIN {
		frequency = FREQ_MIN
	} else if frequency > FREQ_MAX {
		frequency = FREQ_MAX
	}
	return PrescalerExternalClock(INTERNAL_OSCILLATOR, frequency)
}
