package gpio

import (
	"fmt"
	"testing"

	"github.com/antongulenko/skidcar/motion"
	"github.com/stretchr/testify/assert"
)

type fakeLine struct {
	values []int
	closed bool
}

func (l *fakeLine) SetValue(value int) error {
	l.values = append(l.values, value)
	return nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

type recorder struct {
	calls []string
}

func (r *recorder) SetChannel(channel int, duty int) error {
	r.calls = append(r.calls, fmt.Sprintf("pwm %v=%v", channel, duty))
	return nil
}

func (r *recorder) SetChannelDirection(channel int, dir motion.Direction) error {
	r.calls = append(r.calls, fmt.Sprintf("dir %v=%v", channel, dir))
	return nil
}

func TestLines(t *testing.T) {
	a := assert.New(t)
	line := new(fakeLine)
	l := &Lines{lines: map[int]outputLine{17: line}}

	a.NoError(l.SetChannelDirection(17, motion.Reverse))
	a.NoError(l.SetChannelDirection(17, motion.Forward))
	a.NoError(l.SetChannelDirection(17, motion.Idle))
	a.Error(l.SetChannelDirection(18, motion.Forward))
	a.Equal(ErrNoPwm, l.SetChannel(17, 500))

	a.NoError(l.Close())
	a.Equal([]int{1, 0, 0, 0}, line.values)
	a.True(line.closed)
	a.Empty(l.lines)
}

func TestSplit(t *testing.T) {
	a := assert.New(t)
	pwm, dir := new(recorder), new(recorder)
	var act motion.Actuator = Split{PWM: pwm, Direction: dir}
	a.NoError(act.SetChannel(3, 700))
	a.NoError(act.SetChannelDirection(17, motion.Reverse))
	a.Equal([]string{"pwm 3=700"}, pwm.calls)
	a.Equal([]string{"dir 17=reverse"}, dir.calls)
}
