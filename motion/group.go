package motion

import "fmt"

const NumWheels = 4

type Layout int

const (
	// Two PWM channels per wheel, one for each direction
	DualChannel Layout = iota

	// One PWM channel for the speed plus one channel selecting the direction
	DirectionPin
)

func (l Layout) String() string {
	switch l {
	case DualChannel:
		return "dual"
	case DirectionPin:
		return "direction"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "dual":
		return DualChannel, nil
	case "direction":
		return DirectionPin, nil
	default:
		return 0, fmt.Errorf("Unknown wheel layout '%v' (expected 'dual' or 'direction')", s)
	}
}

type Wheel struct {
	Name   string
	Layout Layout

	// Only for DualChannel
	Forward, Reverse int

	// Only for DirectionPin
	PWM, Direction int
}

func (w Wheel) String() string {
	if w.Layout == DirectionPin {
		return fmt.Sprintf("%v (pwm %v, direction %v)", w.Name, w.PWM, w.Direction)
	}
	return fmt.Sprintf("%v (forward %v, reverse %v)", w.Name, w.Forward, w.Reverse)
}

// Channels returns the two actuator channels used by the wheel in its layout.
func (w Wheel) Channels() [2]int {
	if w.Layout == DirectionPin {
		return [2]int{w.PWM, w.Direction}
	}
	return [2]int{w.Forward, w.Reverse}
}

// MotorGroup is the static topology of the vehicle: four wheels and the two wheel
// pairs used for skid turns. It is established once and never mutated afterwards.
type MotorGroup struct {
	wheels      [NumWheels]Wheel
	left, right [2]int
}

// NewMotorGroup validates the topology. left and right contain wheel indices:
// the left pair is held still when turning left, the right pair when turning right.
func NewMotorGroup(wheels [NumWheels]Wheel, left, right [2]int) (*MotorGroup, error) {
	names := make(map[string]bool, NumWheels)
	for i, w := range wheels {
		if w.Name == "" {
			return nil, fmt.Errorf("Wheel %v has no name", i)
		}
		if names[w.Name] {
			return nil, fmt.Errorf("Duplicate wheel name %v", w.Name)
		}
		names[w.Name] = true
		switch w.Layout {
		case DualChannel:
			if w.Forward == w.Reverse {
				return nil, fmt.Errorf("Wheel %v uses channel %v for both directions", w.Name, w.Forward)
			}
		case DirectionPin:
			if w.PWM == w.Direction {
				return nil, fmt.Errorf("Wheel %v uses channel %v for both PWM and direction", w.Name, w.PWM)
			}
		default:
			return nil, fmt.Errorf("Wheel %v has invalid layout %v", w.Name, w.Layout)
		}
	}

	if err := checkChannelRoles(wheels); err != nil {
		return nil, err
	}

	var seen [NumWheels]bool
	for _, index := range append(left[:], right[:]...) {
		if index < 0 || index >= NumWheels {
			return nil, fmt.Errorf("Turn pair refers to invalid wheel index %v", index)
		}
		if seen[index] {
			return nil, fmt.Errorf("Wheel %v is part of more than one turn pair position", wheels[index].Name)
		}
		seen[index] = true
	}
	return &MotorGroup{
		wheels: wheels,
		left:   left,
		right:  right,
	}, nil
}

type channelRole int

const (
	roleForward channelRole = iota
	roleReverse
	rolePWM
	roleDirection
)

var roleNames = [...]string{"forward", "reverse", "pwm", "direction"}

func (w Wheel) roles() [2]channelRole {
	if w.Layout == DirectionPin {
		return [2]channelRole{rolePWM, roleDirection}
	}
	return [2]channelRole{roleForward, roleReverse}
}

// Wheels may share a channel only in the same role, e.g. two wheels on one motor output.
// A channel that is the forward output of one wheel and the reverse output of another would
// be written with conflicting values in the same cycle.
func checkChannelRoles(wheels [NumWheels]Wheel) error {
	type use struct {
		role  channelRole
		wheel string
	}
	uses := make(map[int]use)
	for _, w := range wheels {
		roles := w.roles()
		for i, channel := range w.Channels() {
			prev, ok := uses[channel]
			if !ok {
				uses[channel] = use{roles[i], w.Name}
				continue
			}
			if prev.role != roles[i] {
				return fmt.Errorf("Channel %v is used as %v by wheel %v and as %v by wheel %v",
					channel, roleNames[prev.role], prev.wheel, roleNames[roles[i]], w.Name)
			}
		}
	}
	return nil
}

// UsesChannel returns true if any wheel drives the given actuator channel.
func (g *MotorGroup) UsesChannel(channel int) bool {
	for _, w := range g.wheels {
		for _, c := range w.Channels() {
			if c == channel {
				return true
			}
		}
	}
	return false
}

func (g *MotorGroup) Wheels() [NumWheels]Wheel {
	return g.wheels
}

func (g *MotorGroup) Wheel(index int) Wheel {
	return g.wheels[index]
}

func (g *MotorGroup) LeftPair() [2]int {
	return g.left
}

func (g *MotorGroup) RightPair() [2]int {
	return g.right
}

// WheelIndex returns -1 if no wheel has the given name.
func (g *MotorGroup) WheelIndex(name string) int {
	for i, w := range g.wheels {
		if w.Name == name {
			return i
		}
	}
	return -1
}

// WheelCommand is the drive command for a single wheel. At most one of ForwardDuty()
// and ReverseDuty() is non-zero.
type WheelCommand struct {
	Direction Direction
	Duty      int
}

func (c WheelCommand) ForwardDuty() int {
	if c.Direction == Forward {
		return c.Duty
	}
	return 0
}

func (c WheelCommand) ReverseDuty() int {
	if c.Direction == Reverse {
		return c.Duty
	}
	return 0
}

func (c WheelCommand) String() string {
	return fmt.Sprintf("%v %v", c.Direction, c.Duty)
}

func driveCommand(dir Direction, duty int) WheelCommand {
	if duty <= 0 || dir == Idle {
		return WheelCommand{Direction: Idle}
	}
	return WheelCommand{Direction: dir, Duty: duty}
}

// Command contains one WheelCommand per wheel, indexed like the wheels of the MotorGroup.
type Command [NumWheels]WheelCommand

func StopCommand() (c Command) {
	for i := range c {
		c[i] = WheelCommand{Direction: Idle}
	}
	return
}
