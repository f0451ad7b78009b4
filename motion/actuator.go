package motion

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// The input device could not be opened. Nothing has been actuated yet.
	ErrDeviceUnavailable = errors.New("input device unavailable")

	// The input device went away while the engine was running
	ErrDeviceLost = errors.New("input device lost")
)

// Actuator drives the physical motor channels. Channel numbers are defined by the MotorGroup topology.
type Actuator interface {
	SetChannel(channel int, duty int) error

	// Only used for wheels with the DirectionPin layout
	SetChannelDirection(channel int, dir Direction) error
}

// Source delivers motion events. NextEvent blocks until an event is available, the context is done,
// or the device fails. Sync markers and other non-motion events never reach the caller.
type Source interface {
	NextEvent(ctx context.Context) (AxisEvent, error)
	Close() error
}

// WriteError reports a failed write of a single channel in one dispatch cycle.
type WriteError struct {
	Channel   int
	Direction bool // Whether the failed write was a SetChannelDirection call
	Err       error
}

func (e *WriteError) Error() string {
	op := "duty"
	if e.Direction {
		op = "direction"
	}
	return fmt.Sprintf("Failed to write %v of channel %v: %v", op, e.Channel, e.Err)
}

func (e *WriteError) Cause() error {
	return e.Err
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
