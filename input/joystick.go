package input

import (
	"context"
	"flag"
	"fmt"
	"sync"

	"github.com/antongulenko/skidcar/motion"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/splace/joysticks"
)

// JoystickAxis selects one coordinate of a joystick hat (pair of axes) of the Linux joystick API.
type JoystickAxis struct {
	Hat    int
	UseY   bool
	Invert bool
}

func (a *JoystickAxis) RegisterFlags(prefix string, desc string) {
	flag.IntVar(&a.Hat, prefix, a.Hat, "Index of joystick hat for "+desc)
	flag.BoolVar(&a.UseY, prefix+"Y", a.UseY, "Use Y instead of X coordinate for "+desc)
	flag.BoolVar(&a.Invert, prefix+"Invert", a.Invert, "Invert axis direction of "+desc)
}

func (a JoystickAxis) value(coords joysticks.CoordsEvent) int {
	val := coords.X
	if a.UseY {
		val = coords.Y
	}
	if a.Invert {
		val = -val
	}
	return coordToRaw(val)
}

// JoystickMapping binds every motion axis to a joystick coordinate.
type JoystickMapping struct {
	Forward JoystickAxis
	Reverse JoystickAxis
	X       JoystickAxis
	Y       JoystickAxis
}

// Hats of a DualShock/DualSense controller on /dev/input/jsN: (LX, LY), (L2, RX), (RY, R2)
var DefaultJoystickMapping = JoystickMapping{
	Forward: JoystickAxis{Hat: 3, UseY: true},
	Reverse: JoystickAxis{Hat: 2},
	X:       JoystickAxis{Hat: 1},
	Y:       JoystickAxis{Hat: 1, UseY: true},
}

func (m *JoystickMapping) RegisterFlags() {
	m.Forward.RegisterFlags("js-forward", "the forward trigger")
	m.Reverse.RegisterFlags("js-reverse", "the reverse trigger")
	m.X.RegisterFlags("js-x", "steering (X)")
	m.Y.RegisterFlags("js-y", "steering (Y)")
}

type boundAxis struct {
	axis motion.Axis
	JoystickAxis
}

func (m JoystickMapping) byHat() map[uint8][]boundAxis {
	res := make(map[uint8][]boundAxis)
	for _, b := range []boundAxis{
		{motion.TriggerForward, m.Forward},
		{motion.TriggerReverse, m.Reverse},
		{motion.JoystickX, m.X},
		{motion.JoystickY, m.Y},
	} {
		hat := uint8(b.Hat)
		res[hat] = append(res[hat], b)
	}
	return res
}

// Joystick delivers events of a device opened through the Linux joystick API (github.com/splace/joysticks).
type Joystick struct {
	index  int
	events chan motion.AxisEvent
	lost   chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func ConnectJoystick(index int, mapping JoystickMapping) (*Joystick, error) {
	js := joysticks.Connect(index)
	if js == nil {
		return nil, errors.Wrapf(motion.ErrDeviceUnavailable, "joystick index %v", index)
	}
	hats := mapping.byHat()
	for hat := range hats {
		if !js.HatExists(hat) {
			return nil, errors.Wrapf(motion.ErrDeviceUnavailable, "joystick hat %v does not exist on device %v", hat, index)
		}
	}
	log.Printf("Opened joystick device index %v (%v buttons, %v axes)", index, len(js.Buttons), len(js.HatAxes))

	j := &Joystick{
		index:  index,
		events: make(chan motion.AxisEvent),
		lost:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	for hat, axes := range hats {
		go j.forward(js.OnMove(hat), axes)
	}
	go func() {
		js.ParcelOutEvents()
		close(j.lost)
	}()
	return j, nil
}

// Runs once per hat. Only coordinates that changed since the previous event are forwarded.
func (j *Joystick) forward(moved <-chan joysticks.Event, axes []boundAxis) {
	last := make([]int, len(axes))
	for i := range last {
		last[i] = -1
	}
	for {
		var event joysticks.Event
		select {
		case e, ok := <-moved:
			if !ok {
				return
			}
			event = e
		case <-j.stop:
			return
		}
		coords, ok := event.(joysticks.CoordsEvent)
		if !ok {
			continue
		}
		for i, a := range axes {
			val := a.value(coords)
			if val == last[i] {
				continue
			}
			last[i] = val
			select {
			case j.events <- motion.AxisEvent{Axis: a.axis, Value: val}:
			case <-j.stop:
				return
			}
		}
	}
}

func (j *Joystick) NextEvent(ctx context.Context) (motion.AxisEvent, error) {
	select {
	case ev := <-j.events:
		return ev, nil
	case <-j.lost:
		return motion.AxisEvent{}, errors.Wrapf(motion.ErrDeviceLost, "joystick index %v", j.index)
	case <-j.stop:
		return motion.AxisEvent{}, fmt.Errorf("Joystick %v is closed", j.index)
	case <-ctx.Done():
		return motion.AxisEvent{}, ctx.Err()
	}
}

// Close stops forwarding events. The device handle itself is owned by the joystick library.
func (j *Joystick) Close() error {
	j.once.Do(func() {
		close(j.stop)
	})
	return nil
}
