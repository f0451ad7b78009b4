package motion

import "flag"

// Joystick X positions below this value steer left
const turnThreshold = 128

var DefaultSteering = Steering{
	DeadZoneFrom: 70,
	DeadZoneTo:   200,
	DutyMax:      1000,
	MinThrottle:  0,
}

// Steering maps a MotionState to one WheelCommand per wheel. It holds no state and can
// be evaluated any number of times for the same input with identical results.
type Steering struct {
	// Joystick positions between these values (inclusive, on both axes) drive straight
	DeadZoneFrom, DeadZoneTo int

	// Upper end of the actuator duty range. Raw samples 0..255 are scaled linearly to 0..DutyMax.
	DutyMax int

	// Trigger samples below this value are treated as released
	MinThrottle int
}

func (s *Steering) RegisterFlags() {
	flag.IntVar(&s.DeadZoneFrom, "deadzone-from", s.DeadZoneFrom, "Start of the joystick interval (0..255) that does not steer")
	flag.IntVar(&s.DeadZoneTo, "deadzone-to", s.DeadZoneTo, "End of the joystick interval (0..255) that does not steer")
	flag.IntVar(&s.DutyMax, "duty-max", s.DutyMax, "Maximum duty value of the motor driver")
	flag.IntVar(&s.MinThrottle, "min-throttle", s.MinThrottle, "Trigger values (0..255) below this are ignored")
}

func (s Steering) Compute(state MotionState, group *MotorGroup) Command {
	speed := state.Trigger.Speed()
	if speed < s.MinThrottle {
		speed = 0
	}
	if speed <= 0 {
		return StopCommand()
	}
	dir := state.Trigger.Direction()
	duty := Scale(speed, s.DutyMax)

	var cmd Command
	if s.inDeadZone(state.X) && s.inDeadZone(state.Y) {
		for i := range cmd {
			cmd[i] = driveCommand(dir, duty)
		}
		return cmd
	}

	// Skid turn: the pair on the inside of the turn stops, the outside pair keeps driving
	inside, outside := group.left, group.right
	if state.X >= turnThreshold {
		inside, outside = outside, inside
	}
	for _, i := range inside {
		cmd[i] = driveCommand(dir, 0)
	}
	for _, i := range outside {
		cmd[i] = driveCommand(dir, duty)
	}
	return cmd
}

func (s Steering) inDeadZone(val int) bool {
	return val >= s.DeadZoneFrom && val <= s.DeadZoneTo
}

// Scale converts a raw 0..255 sample to 0..dutyMax, truncating. Samples outside of 0..255 are clamped.
func Scale(raw, dutyMax int) int {
	if raw < RawMin {
		raw = RawMin
	} else if raw > RawMax {
		raw = RawMax
	}
	return raw * dutyMax / RawMax
}
