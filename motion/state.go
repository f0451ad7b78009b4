package motion

import "fmt"

const (
	// Input samples are normalized to 0..255 by the input source
	RawMin = 0
	RawMax = 255

	// Joystick position reported while the stick rests in the center
	RawCenter = RawMax / 2
)

// Axis identifies one of the analog inputs that influence the motion of the vehicle.
// Device specific event codes are resolved to an Axis by the input source.
type Axis int

const (
	AxisUnknown Axis = iota
	TriggerForward
	TriggerReverse
	JoystickX
	JoystickY
)

func (a Axis) String() string {
	switch a {
	case TriggerForward:
		return "trigger-forward"
	case TriggerReverse:
		return "trigger-reverse"
	case JoystickX:
		return "joystick-x"
	case JoystickY:
		return "joystick-y"
	default:
		return fmt.Sprintf("unknown-axis(%d)", int(a))
	}
}

type AxisEvent struct {
	Axis  Axis
	Value int
}

type Direction int

const (
	Idle Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Idle:
		return "idle"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// TriggerState is either Idle, Forward(speed) or Reverse(speed). Only one trigger is active at a time:
// the most recent trigger sample replaces the previous state, even if the other trigger is still pressed.
type TriggerState struct {
	dir   Direction
	speed int
}

func IdleTrigger() TriggerState {
	return TriggerState{dir: Idle}
}

func ForwardTrigger(speed int) TriggerState {
	return newTrigger(Forward, speed)
}

func ReverseTrigger(speed int) TriggerState {
	return newTrigger(Reverse, speed)
}

func newTrigger(dir Direction, speed int) TriggerState {
	if speed <= 0 {
		return IdleTrigger()
	}
	return TriggerState{dir: dir, speed: speed}
}

func (t TriggerState) Direction() Direction {
	return t.dir
}

// Speed is the raw trigger sample, 0 for Idle. It is not clamped here.
func (t TriggerState) Speed() int {
	return t.speed
}

func (t TriggerState) String() string {
	if t.dir == Idle {
		return "idle"
	}
	return fmt.Sprintf("%v(%v)", t.dir, t.speed)
}

// MotionState holds the latest trigger and joystick samples. No history is retained.
type MotionState struct {
	Trigger TriggerState
	X, Y    int
}

func NewMotionState() MotionState {
	return MotionState{
		Trigger: IdleTrigger(),
		X:       RawCenter,
		Y:       RawCenter,
	}
}

func (s *MotionState) ApplyTriggerEvent(dir Direction, raw int) {
	switch dir {
	case Forward:
		s.Trigger = ForwardTrigger(raw)
	case Reverse:
		s.Trigger = ReverseTrigger(raw)
	default:
		s.Trigger = IdleTrigger()
	}
}

func (s *MotionState) ApplyJoystickEvent(axis Axis, raw int) {
	switch axis {
	case JoystickX:
		s.X = raw
	case JoystickY:
		s.Y = raw
	}
}

// Apply updates the state for the given event and returns false if the axis is not
// recognized, in which case the state is left untouched.
func (s *MotionState) Apply(ev AxisEvent) bool {
	switch ev.Axis {
	case TriggerForward:
		s.ApplyTriggerEvent(Forward, ev.Value)
	case TriggerReverse:
		s.ApplyTriggerEvent(Reverse, ev.Value)
	case JoystickX, JoystickY:
		s.ApplyJoystickEvent(ev.Axis, ev.Value)
	default:
		return false
	}
	return true
}

func (s MotionState) String() string {
	return fmt.Sprintf("trigger %v, x %v, y %v", s.Trigger, s.X, s.Y)
}
