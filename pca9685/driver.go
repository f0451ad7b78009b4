package pca9685

import (
	"fmt"
	"time"

	"github.com/antongulenko/skidcar/i2c"
	"github.com/antongulenko/skidcar/motion"
	log "github.com/sirupsen/logrus"
)

// The oscillator needs at most 500us to stabilize after leaving SLEEP mode
const wakeupTime = 500 * time.Microsecond

// Driver uses the 16 PWM outputs as motor channels. Direction channels are switched fully on or off.
type Driver struct {
	Bus       i2c.Bus
	Addr      byte
	DutyMax   int
	Frequency float64

	// Direction outputs are high for Reverse, unless inverted
	InvertDirection bool

	// Shift the start of every output within the PWM cycle to spread the motor inrush current
	Stagger bool

	// Outputs that take a pulse width in microseconds instead of a duty value, e.g. servos
	PulseChannels []int
}

func (d *Driver) Init() error {
	prescale := Prescaler(d.Frequency)
	log.Printf("Initializing PWM driver at %#02x (%vHz, prescale %#02x)...", d.Addr, d.Frequency, prescale)
	mode := MODE1_ALLCALL | MODE1_AI
	if err := d.Bus.I2cWrite(d.Addr, MODE1, mode|MODE1_SLEEP); err != nil {
		return err
	}
	if err := d.Bus.I2cWrite(d.Addr, PRE_SCALE, prescale); err != nil {
		return err
	}
	if err := d.Bus.I2cWrite(d.Addr, MODE1, mode); err != nil {
		return err
	}
	time.Sleep(wakeupTime)
	if err := d.Bus.I2cWrite(d.Addr, MODE1, mode|MODE1_RESTART); err != nil {
		return err
	}
	if err := d.Bus.I2cWrite(d.Addr, MODE2, MODE2_OUTDRV); err != nil {
		return err
	}
	return d.Off()
}

func (d *Driver) SetChannel(channel int, duty int) error {
	if err := checkOutput(channel); err != nil {
		return err
	}
	delay := 0
	if d.Stagger {
		delay = channel * (TIMER_RESOLUTION / NUM_OUTPUTS)
	}
	var onL, onH, offL, offH byte
	if d.isPulseChannel(channel) {
		width, err := d.PulseCounts(duty)
		if err != nil {
			return err
		}
		if width == 0 {
			onL, onH, offL, offH = FullOffValues()
		} else {
			onL, onH, offL, offH = Registers(Counts(delay, width))
		}
	} else {
		onL, onH, offL, offH = DutyValues(delay, duty, d.DutyMax)
	}
	return d.Bus.I2cWrite(d.Addr, LedRegister(channel), onL, onH, offL, offH)
}

// PulseCounts converts a pulse width in microseconds to timer counts at the configured frequency.
// The pulse must be shorter than the PWM period.
func (d *Driver) PulseCounts(micros int) (int, error) {
	if micros <= 0 {
		return 0, nil
	}
	counts := round(float64(micros) * d.Frequency * TIMER_RESOLUTION / 1e6)
	if counts >= TIMER_RESOLUTION {
		return 0, fmt.Errorf("Pulse of %vus does not fit into the PWM period at %vHz", micros, d.Frequency)
	}
	return counts, nil
}

// MaxPulseFrequency is the highest PWM frequency that still allows a pulse of the given width.
func MaxPulseFrequency(micros int) float64 {
	return 1e6 / float64(micros)
}

func (d *Driver) isPulseChannel(channel int) bool {
	for _, c := range d.PulseChannels {
		if c == channel {
			return true
		}
	}
	return false
}

func (d *Driver) SetChannelDirection(channel int, dir motion.Direction) error {
	if err := checkOutput(channel); err != nil {
		return err
	}
	high := dir == motion.Reverse
	if d.InvertDirection {
		high = !high
	}
	onL, onH, offL, offH := FullOffValues()
	if high {
		onL, onH, offL, offH = FullOnValues()
	}
	return d.Bus.I2cWrite(d.Addr, LedRegister(channel), onL, onH, offL, offH)
}

// Off switches all outputs off with a single write.
func (d *Driver) Off() error {
	onL, onH, offL, offH := FullOffValues()
	return d.Bus.I2cWrite(d.Addr, ALL_LEDS, onL, onH, offL, offH)
}

func checkOutput(channel int) error {
	if channel < 0 || channel >= NUM_OUTPUTS {
		return fmt.Errorf("Invalid PCA9685 output %v (must be 0..%v)", channel, NUM_OUTPUTS-1)
	}
	return nil
}
