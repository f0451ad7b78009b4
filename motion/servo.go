package motion

import (
	"flag"
	"fmt"
)

var DefaultServo = Servo{
	Channel:  0,
	MinPulse: 500,
	MaxPulse: 2500,
}

// Servo is an optional steering servo following the joystick X axis. Full left deflection
// yields MaxPulse, full right deflection MinPulse.
type Servo struct {
	Enabled  bool
	Channel  int
	MinPulse int
	MaxPulse int
}

func (s *Servo) RegisterFlags() {
	flag.BoolVar(&s.Enabled, "servo", s.Enabled, "Drive a steering servo from the joystick X axis")
	flag.IntVar(&s.Channel, "servo-channel", s.Channel, "Actuator channel of the steering servo")
	flag.IntVar(&s.MinPulse, "servo-min", s.MinPulse, "Servo pulse value for full right deflection")
	flag.IntVar(&s.MaxPulse, "servo-max", s.MaxPulse, "Servo pulse value for full left deflection")
}

func (s Servo) Pulse(x int) int {
	return s.MaxPulse - Scale(x, s.MaxPulse-s.MinPulse)
}

func (s Servo) Center() int {
	return (s.MinPulse + s.MaxPulse) / 2
}

// Check returns an error if the servo is enabled on a channel that also drives a wheel.
func (s Servo) Check(group *MotorGroup) error {
	if s.Enabled && group.UsesChannel(s.Channel) {
		return fmt.Errorf("Servo channel %v is also used by a wheel, select another one with -servo-channel", s.Channel)
	}
	return nil
}
