package motion

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Engine owns the MotionState and translates every inbound event into a full dispatch
// of all actuator channels. It is driven by a single goroutine and is not safe for concurrent use.
type Engine struct {
	Group    *MotorGroup
	Steering Steering
	Actuator Actuator
	Servo    Servo

	state MotionState
}

func NewEngine(group *MotorGroup, steering Steering, actuator Actuator) *Engine {
	return &Engine{
		Group:    group,
		Steering: steering,
		Actuator: actuator,
		state:    NewMotionState(),
	}
}

func (e *Engine) State() MotionState {
	return e.state
}

// HandleEvent applies the event and dispatches the resulting command. Unrecognized axes are
// ignored without touching the state and without dispatching; false is returned in that case.
func (e *Engine) HandleEvent(ev AxisEvent) bool {
	if !e.state.Apply(ev) {
		log.Debugf("Ignoring event for %v (value %v)", ev.Axis, ev.Value)
		return false
	}
	if err := e.Dispatch(); err != nil {
		// Every channel is written again on the next event
		log.Warnf("%v of %v channel write(s) failed after %v=%v", len(multierr.Errors(err)), e.numWrites(), ev.Axis, ev.Value)
	}
	return true
}

// Dispatch computes the command for the current state and writes every channel, changed or not.
// All channels are attempted, the returned error combines all failed writes.
func (e *Engine) Dispatch() error {
	cmd := e.Steering.Compute(e.state, e.Group)
	log.Debugf("%v -> %v", e.state, cmd)
	err := e.Write(cmd)
	if e.servoActive() {
		err = multierr.Append(err, e.setChannel(e.Servo.Channel, e.Servo.Pulse(e.state.X)))
	}
	return err
}

// Kill writes zero duty to every channel and centers the servo.
func (e *Engine) Kill() error {
	err := e.Write(StopCommand())
	if e.servoActive() {
		err = multierr.Append(err, e.setChannel(e.Servo.Channel, e.Servo.Center()))
	}
	return err
}

// Write sends the command to the actuator without touching the MotionState.
func (e *Engine) Write(cmd Command) (err error) {
	for i, wheelCmd := range cmd {
		wheel := e.Group.wheels[i]
		switch wheel.Layout {
		case DualChannel:
			// Zero the unused channel first, so both directions are never driven at the same time
			fwd, rev := wheelCmd.ForwardDuty(), wheelCmd.ReverseDuty()
			if fwd > 0 {
				err = multierr.Append(err, e.setChannel(wheel.Reverse, rev))
				err = multierr.Append(err, e.setChannel(wheel.Forward, fwd))
			} else {
				err = multierr.Append(err, e.setChannel(wheel.Forward, fwd))
				err = multierr.Append(err, e.setChannel(wheel.Reverse, rev))
			}
		case DirectionPin:
			err = multierr.Append(err, e.setDirection(wheel.Direction, wheelCmd.Direction))
			err = multierr.Append(err, e.setChannel(wheel.PWM, wheelCmd.Duty))
		}
	}
	return
}

// A servo on a wheel channel is never written, so it cannot override the wheel outputs
func (e *Engine) servoActive() bool {
	return e.Servo.Enabled && e.Servo.Check(e.Group) == nil
}

func (e *Engine) numWrites() int {
	n := 2 * NumWheels
	if e.servoActive() {
		n++
	}
	return n
}

func (e *Engine) setChannel(channel, duty int) error {
	if err := e.Actuator.SetChannel(channel, duty); err != nil {
		writeErr := &WriteError{Channel: channel, Err: err}
		log.Errorln(writeErr)
		return writeErr
	}
	return nil
}

func (e *Engine) setDirection(channel int, dir Direction) error {
	if dir == Idle {
		dir = Forward
	}
	if err := e.Actuator.SetChannelDirection(channel, dir); err != nil {
		writeErr := &WriteError{Channel: channel, Direction: true, Err: err}
		log.Errorln(writeErr)
		return writeErr
	}
	return nil
}

// Run zeroes all actuators, then processes events from the source until it fails or the context
// is done. Before returning, all channels are zeroed exactly once and the source is closed,
// also when a panic unwinds the loop. Cancellation of the context returns nil, source failures are returned.
// An invalid servo channel is rejected before anything is written. Run can be called again with a new source.
func (e *Engine) Run(ctx context.Context, source Source) error {
	if err := e.Servo.Check(e.Group); err != nil {
		if closeErr := source.Close(); closeErr != nil {
			log.Errorf("Failed to close input device: %v", closeErr)
		}
		return err
	}
	defer e.shutdown(source)

	log.Println("Zeroing all motor channels before accepting input...")
	if killErr := e.Kill(); killErr != nil {
		log.Warnf("Not all channels could be zeroed on startup: %v", killErr)
	}

	for {
		ev, srcErr := source.NextEvent(ctx)
		if srcErr != nil {
			return e.stopReason(ctx, srcErr)
		}
		e.HandleEvent(ev)
	}
}

func (e *Engine) stopReason(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		log.Println("Motion control stopped:", ctx.Err())
		return nil
	}
	log.Errorln("Motion control stopped:", err)
	return err
}

func (e *Engine) shutdown(source Source) {
	log.Println("Stopping all motors")
	if err := e.Kill(); err != nil {
		log.Errorf("Failed to stop all motors: %v", err)
	}
	if err := source.Close(); err != nil {
		log.Errorf("Failed to close input device: %v", err)
	}
}
