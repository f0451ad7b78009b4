// Package regboard drives I2C motor boards that expose every output as a 16 bit register.
// A write sends the register number followed by the value, high byte first.
package regboard

import (
	"fmt"

	"github.com/antongulenko/skidcar/i2c"
	"github.com/antongulenko/skidcar/motion"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	ADDRESS  = byte(0x18)
	DUTY_MAX = 1000

	SERVO = 0 // Steering servo pulse width in microseconds
	PWM1  = 4
	PWM2  = 5
	DIR1  = 6
	DIR2  = 7

	DIR_FORWARD = 0
	DIR_REVERSE = 1

	SERVO_MIN = 500
	SERVO_MAX = 2500
)

type Board struct {
	Bus     i2c.Bus
	Addr    byte
	DutyMax int

	// Registers zeroed by Off(). PWM registers stop the motor, direction registers return to forward.
	Registers []int

	// Registers written without clamping to DutyMax, e.g. servo pulse widths
	Unclamped []int
}

var DefaultBoard = Board{
	Addr:      ADDRESS,
	DutyMax:   DUTY_MAX,
	Registers: []int{PWM1, PWM2, DIR1, DIR2},
	Unclamped: []int{SERVO},
}

func (b *Board) WriteRegister(reg int, value int) error {
	if reg < 0 || reg > 0xFF {
		return fmt.Errorf("Invalid register %v on I2C board %#02x", reg, b.Addr)
	}
	if value < 0 {
		value = 0
	} else if value > 0xFFFF {
		value = 0xFFFF
	}
	return b.Bus.I2cWrite(b.Addr, byte(reg), byte(value>>8), byte(value))
}

func (b *Board) SetChannel(channel int, duty int) error {
	if !b.unclamped(channel) && duty > b.DutyMax {
		duty = b.DutyMax
	}
	return b.WriteRegister(channel, duty)
}

func (b *Board) SetChannelDirection(channel int, dir motion.Direction) error {
	value := DIR_FORWARD
	if dir == motion.Reverse {
		value = DIR_REVERSE
	}
	return b.WriteRegister(channel, value)
}

func (b *Board) unclamped(reg int) bool {
	for _, r := range b.Unclamped {
		if r == reg {
			return true
		}
	}
	return false
}

// Off writes zero to every configured register and tries all of them, even if some writes fail.
func (b *Board) Off() (result error) {
	for _, reg := range b.Registers {
		if err := b.WriteRegister(reg, 0); err != nil {
			log.Warnf("Failed to zero register %v on %#02x: %v", reg, b.Addr, err)
			result = multierr.Append(result, err)
		}
	}
	return
}
