package motion

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type write struct {
	channel   int
	value     int
	direction bool
}

type recorder struct {
	writes   []write
	closed   bool
	failOn   map[int]bool
	duties   map[int]int
	closedAt int // Number of writes when the source was closed
}

func newRecorder() *recorder {
	return &recorder{
		failOn: make(map[int]bool),
		duties: make(map[int]int),
	}
}

func (r *recorder) SetChannel(channel int, duty int) error {
	r.writes = append(r.writes, write{channel: channel, value: duty})
	if r.failOn[channel] {
		return errors.New("bus error")
	}
	r.duties[channel] = duty
	return nil
}

func (r *recorder) SetChannelDirection(channel int, dir Direction) error {
	r.writes = append(r.writes, write{channel: channel, value: int(dir), direction: true})
	return nil
}

func (r *recorder) reset() {
	r.writes = nil
}

type scriptedSource struct {
	rec    *recorder
	events []AxisEvent
	err    error
	cancel func()
	panic  bool
	closes int
}

func (s *scriptedSource) NextEvent(ctx context.Context) (AxisEvent, error) {
	if len(s.events) == 0 {
		if s.panic {
			panic("device driver crashed")
		}
		if s.cancel != nil {
			s.cancel()
			return AxisEvent{}, ctx.Err()
		}
		return AxisEvent{}, s.err
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func (s *scriptedSource) Close() error {
	s.closes++
	s.rec.closed = true
	s.rec.closedAt = len(s.rec.writes)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *recorder) {
	rec := newRecorder()
	return NewEngine(testGroup(t), DefaultSteering, rec), rec
}

func TestDispatchWritesAllChannels(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)

	a.True(e.HandleEvent(AxisEvent{TriggerForward, 200}))
	a.Len(rec.writes, 2*NumWheels)
	for ch := 0; ch < 8; ch += 2 {
		a.Equal(784, rec.duties[ch], "forward channel %v", ch)
		a.Equal(0, rec.duties[ch+1], "reverse channel %v", ch+1)
	}

	// Unchanged channels are written again
	rec.reset()
	a.True(e.HandleEvent(AxisEvent{JoystickY, 150}))
	a.Len(rec.writes, 2*NumWheels)
}

func TestUnrecognizedEventNoDispatch(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	e.HandleEvent(AxisEvent{TriggerForward, 50})
	before := e.State()
	rec.reset()

	a.False(e.HandleEvent(AxisEvent{AxisUnknown, 99}))
	a.Empty(rec.writes)
	a.Equal(before, e.State())
}

func TestLeftTurnDispatch(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	e.HandleEvent(AxisEvent{JoystickX, 30})
	e.HandleEvent(AxisEvent{TriggerForward, 180})

	// Left wheels: channels 0/1 and 4/5
	for _, ch := range []int{0, 1, 4, 5, 3, 7} {
		a.Equal(0, rec.duties[ch], "channel %v", ch)
	}
	a.Equal(705, rec.duties[2])
	a.Equal(705, rec.duties[6])
}

func TestDirectionChangeNeverDrivesBothChannels(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	e.HandleEvent(AxisEvent{TriggerForward, 255})
	rec.reset()
	e.HandleEvent(AxisEvent{TriggerReverse, 255})

	current := map[int]int{0: 1000, 1: 0, 2: 1000, 3: 0, 4: 1000, 5: 0, 6: 1000, 7: 0}
	for _, w := range rec.writes {
		current[w.channel] = w.value
		for ch := 0; ch < 8; ch += 2 {
			a.False(current[ch] > 0 && current[ch+1] > 0, "both channels of wheel %v driven", ch/2)
		}
	}
	a.Equal(1000, current[1])
	a.Equal(0, current[0])
}

func TestWriteErrorIsNotFatal(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	rec.failOn[2] = true

	e.state.Apply(AxisEvent{TriggerForward, 255})
	err := e.Dispatch()
	a.Error(err)
	errs := multierr.Errors(err)
	a.Len(errs, 1)
	var writeErr *WriteError
	a.True(errors.As(errs[0], &writeErr))
	a.Equal(2, writeErr.Channel)
	a.Len(rec.writes, 2*NumWheels, "remaining channels are still written")
	a.Equal(1000, rec.duties[6])

	// The next cycle recovers the channel
	delete(rec.failOn, 2)
	a.True(e.HandleEvent(AxisEvent{JoystickX, 128}))
	a.Equal(1000, rec.duties[2])
}

func TestDirectionPinLayout(t *testing.T) {
	a := assert.New(t)
	group, err := NewMotorGroup([NumWheels]Wheel{
		{Name: "left-front", Layout: DirectionPin, PWM: 4, Direction: 6},
		{Name: "right-front", Layout: DirectionPin, PWM: 5, Direction: 7},
		{Name: "left-rear", Layout: DirectionPin, PWM: 4, Direction: 6},
		{Name: "right-rear", Layout: DirectionPin, PWM: 5, Direction: 7},
	}, [2]int{0, 2}, [2]int{1, 3})
	require.NoError(t, err)
	rec := newRecorder()
	e := NewEngine(group, DefaultSteering, rec)

	e.HandleEvent(AxisEvent{TriggerReverse, 255})
	a.Equal(write{channel: 6, value: int(Reverse), direction: true}, rec.writes[0])
	a.Equal(write{channel: 4, value: 1000}, rec.writes[1])

	rec.reset()
	a.NoError(e.Kill())
	for _, w := range rec.writes {
		if w.direction {
			a.Equal(int(Forward), w.value)
		} else {
			a.Equal(0, w.value)
		}
	}
}

func TestServo(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	e.Servo = DefaultServo
	e.Servo.Enabled = true
	e.Servo.Channel = 15

	a.Equal(2500, e.Servo.Pulse(0))
	a.Equal(500, e.Servo.Pulse(255))
	a.Equal(1500, e.Servo.Center())

	e.HandleEvent(AxisEvent{JoystickX, 255})
	a.Len(rec.writes, 2*NumWheels+1)
	a.Equal(500, rec.duties[15])
	a.NoError(e.Kill())
	a.Equal(1500, rec.duties[15])
}

func TestRunZeroesBeforeAndAfter(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	source := &scriptedSource{
		rec: rec,
		events: []AxisEvent{
			{TriggerForward, 200},
			{AxisUnknown, 3},
			{JoystickX, 128},
		},
		err: pkgerrors.Wrap(ErrDeviceLost, "read failed"),
	}

	err := e.Run(context.Background(), source)
	a.Error(err)
	a.Equal(ErrDeviceLost, pkgerrors.Cause(err))
	a.Equal(1, source.closes)

	// startup zero, two dispatches, shutdown zero
	a.Len(rec.writes, 4*2*NumWheels)
	for _, w := range rec.writes[:2*NumWheels] {
		a.Equal(0, w.value)
	}
	a.Equal(784, rec.writes[2*NumWheels+1].value)
	for _, w := range rec.writes[3*2*NumWheels:] {
		a.Equal(0, w.value)
	}
	a.Equal(len(rec.writes), rec.closedAt, "source closed after the motors were stopped")
}

func TestRunCancelled(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &scriptedSource{
		rec:    rec,
		events: []AxisEvent{{TriggerReverse, 255}},
		cancel: cancel,
	}
	a.NoError(e.Run(ctx, source))
	a.True(rec.closed)
	for ch := 0; ch < 8; ch++ {
		a.Equal(0, rec.duties[ch])
	}
}

func TestRunPanicStillStops(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	source := &scriptedSource{
		rec:    rec,
		events: []AxisEvent{{TriggerForward, 255}},
		panic:  true,
	}
	a.Panics(func() {
		_ = e.Run(context.Background(), source)
	})
	a.Equal(1, source.closes)
	for ch := 0; ch < 8; ch++ {
		a.Equal(0, rec.duties[ch])
	}
}

func TestServoOnWheelChannel(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	e.Servo = DefaultServo
	e.Servo.Enabled = true
	a.Error(e.Servo.Check(e.Group))

	e.HandleEvent(AxisEvent{TriggerReverse, 255})
	a.Len(rec.writes, 2*NumWheels)
	a.Equal(0, rec.duties[0])
	a.Equal(1000, rec.duties[1])
	a.NoError(e.Kill())
	a.Equal(0, rec.duties[0])
	a.Equal(0, rec.duties[1])

	rec.reset()
	source := &scriptedSource{rec: rec, events: []AxisEvent{{TriggerForward, 255}}}
	a.Error(e.Run(context.Background(), source))
	a.Empty(rec.writes)
	a.Equal(1, source.closes)
}

func TestRunTwice(t *testing.T) {
	a := assert.New(t)
	e, rec := newTestEngine(t)
	for i := 0; i < 2; i++ {
		rec.reset()
		source := &scriptedSource{
			rec:    rec,
			events: []AxisEvent{{TriggerForward, 255}},
			err:    ErrDeviceLost,
		}
		a.Equal(ErrDeviceLost, e.Run(context.Background(), source), "run %v", i)
		a.Equal(1, source.closes, "run %v", i)
		a.Len(rec.writes, 3*2*NumWheels, "run %v", i)
		for ch := 0; ch < 8; ch++ {
			a.Equal(0, rec.duties[ch], "run %v channel %v", i, ch)
		}
	}
}
