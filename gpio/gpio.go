// Package gpio drives motor direction inputs from GPIO character device lines.
package gpio

import (
	"fmt"

	"github.com/antongulenko/skidcar/motion"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

const Consumer = "skidcar"

var ErrNoPwm = errors.New("GPIO lines do not support PWM")

type outputLine interface {
	SetValue(value int) error
	Close() error
}

// Lines holds one requested output line per direction channel. The channel number is the line offset on the chip.
type Lines struct {
	chip  *gpiocdev.Chip
	lines map[int]outputLine
}

// OpenLines requests the given offsets on the chip (e.g. "gpiochip0") as outputs, initially low (forward).
func OpenLines(chipName string, offsets []int) (*Lines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("Failed to open GPIO chip %v: %v", chipName, err)
	}
	l := &Lines{
		chip:  chip,
		lines: make(map[int]outputLine, len(offsets)),
	}
	for _, offset := range offsets {
		if _, ok := l.lines[offset]; ok {
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(Consumer))
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("Failed to request GPIO line %v on %v: %v", offset, chipName, err)
		}
		l.lines[offset] = line
		log.Printf("Configured direction output: %v line %v", chipName, offset)
	}
	return l, nil
}

func (l *Lines) SetChannel(channel int, duty int) error {
	return ErrNoPwm
}

func (l *Lines) SetChannelDirection(channel int, dir motion.Direction) error {
	line, ok := l.lines[channel]
	if !ok {
		return fmt.Errorf("GPIO line %v was not requested", channel)
	}
	value := 0
	if dir == motion.Reverse {
		value = 1
	}
	return line.SetValue(value)
}

// Close drives all lines low before releasing them.
func (l *Lines) Close() (err error) {
	for offset, line := range l.lines {
		err = multierr.Append(err, line.SetValue(0))
		err = multierr.Append(err, line.Close())
		delete(l.lines, offset)
	}
	if l.chip != nil {
		err = multierr.Append(err, l.chip.Close())
		l.chip = nil
	}
	return
}

// DummyLines only logs direction changes.
type DummyLines struct {
}

func (l *DummyLines) SetChannel(channel int, duty int) error {
	return ErrNoPwm
}

func (l *DummyLines) SetChannelDirection(channel int, dir motion.Direction) error {
	log.Debugf("Dummy GPIO line %v: %v", channel, dir)
	return nil
}

// Split sends duty cycles to the PWM actuator and direction changes to the Direction actuator.
type Split struct {
	PWM       motion.Actuator
	Direction motion.Actuator
}

func (s Split) SetChannel(channel int, duty int) error {
	return s.PWM.SetChannel(channel, duty)
}

func (s Split) SetChannelDirection(channel int, dir motion.Direction) error {
	return s.Direction.SetChannelDirection(channel, dir)
}
