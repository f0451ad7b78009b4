package pca9685

import (
	"testing"

	"github.com/antongulenko/skidcar/motion"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type testSuite struct {
	t *testing.T
	*require.Assertions
}

func (suite *testSuite) T() *testing.T {
	return suite.t
}

func (suite *testSuite) SetT(t *testing.T) {
	suite.t = t
	suite.Assertions = require.New(t)
}

func (s *testSuite) SetS(suite.TestingSuite) {}

func TestAll(t *testing.T) {
	suite.Run(t, new(testSuite))
}

type write struct {
	addr byte
	data []byte
}

type recordingBus struct {
	writes []write
}

func (b *recordingBus) I2cWrite(addr byte, data ...byte) error {
	b.writes = append(b.writes, write{addr, append([]byte(nil), data...)})
	return nil
}

func (b *recordingBus) I2cRead(addr byte, data []byte) error {
	return nil
}

// Examples from the PCA9685 manual page 17. The manual subtracts 1 from the rounded delay.

func (s *testSuite) TestExample1() {
	onL, onH, offL, offH := Registers(Counts(409, 819))
	s.Equal(byte(0x01), onH, "LED ON HIGH")
	s.Equal(byte(0x99), onL, "LED ON LOW")
	s.Equal(byte(0x04), offH, "LED OFF HIGH")
	s.Equal(byte(0xcc), offL, "LED OFF LOW")
}

func (s *testSuite) TestExample2() {
	onL, onH, offL, offH := Registers(Counts(3685, 3686))
	s.Equal(byte(0x0e), onH, "LED ON HIGH")
	s.Equal(byte(0x65), onL, "LED ON LOW")
	s.Equal(byte(0x0c), offH, "LED OFF HIGH")
	s.Equal(byte(0xcb), offL, "LED OFF LOW")
}

// Example from the PCA9685 manual page 25

func (s *testSuite) TestPrescale() {
	s.Equal(FREQ_MIN_PRESCALE, Prescaler(FREQ_MIN), "min freq prescale")
	s.Equal(FREQ_MAX_PRESCALE, Prescaler(FREQ_MAX), "max freq prescale")
	s.Equal(byte(0x1e), Prescaler(200), "example prescale")
	s.Equal(FREQ_MAX_PRESCALE, Prescaler(5000), "clamped prescale")
}

func (s *testSuite) TestDutyValues() {
	test := func(duty int, values ...byte) {
		onL, onH, offL, offH := DutyValues(0, duty, 1000)
		s.Equal(values, []byte{onL, onH, offL, offH}, "duty %v", duty)
	}
	test(0, 0, 0, 0, FULL_OFF_BIT)
	test(-5, 0, 0, 0, FULL_OFF_BIT)
	test(1000, 0, FULL_ON_BIT, 0, 0)
	test(1200, 0, FULL_ON_BIT, 0, 0)
	test(784, 0, 0, 0x8b, 0x0c)
	test(500, 0, 0, 0x00, 0x08)
}

func (s *testSuite) TestLedRegister() {
	s.Equal(LED0, LedRegister(0))
	s.Equal(byte(0x0A), LedRegister(1))
	s.Equal(byte(0x42), LedRegister(15))
}

func (s *testSuite) TestInit() {
	bus := new(recordingBus)
	d := &Driver{Bus: bus, Addr: ADDRESS, DutyMax: 1000, Frequency: 200}
	s.NoError(d.Init())
	s.Len(bus.writes, 6)
	for _, w := range bus.writes {
		s.Equal(ADDRESS, w.addr)
	}
	s.Equal([]byte{MODE1, MODE1_ALLCALL | MODE1_AI | MODE1_SLEEP}, bus.writes[0].data)
	s.Equal([]byte{PRE_SCALE, 0x1e}, bus.writes[1].data)
	s.Equal([]byte{MODE1, MODE1_ALLCALL | MODE1_AI | MODE1_RESTART}, bus.writes[3].data)
	s.Equal([]byte{ALL_LEDS, 0, 0, 0, FULL_OFF_BIT}, bus.writes[5].data)
}

func (s *testSuite) TestSetChannel() {
	bus := new(recordingBus)
	d := &Driver{Bus: bus, Addr: ADDRESS, DutyMax: 1000}
	s.NoError(d.SetChannel(1, 784))
	s.Equal([]byte{0x0A, 0, 0, 0x8b, 0x0c}, bus.writes[0].data)

	d.Stagger = true
	s.NoError(d.SetChannel(2, 500))
	s.Equal([]byte{0x0E, 0x00, 0x02, 0x00, 0x0a}, bus.writes[1].data)

	s.Error(d.SetChannel(16, 1))
	s.Error(d.SetChannel(-1, 1))
	s.Len(bus.writes, 2)
}

func (s *testSuite) TestSetChannelDirection() {
	bus := new(recordingBus)
	d := &Driver{Bus: bus, Addr: ADDRESS, DutyMax: 1000}
	s.NoError(d.SetChannelDirection(0, motion.Forward))
	s.NoError(d.SetChannelDirection(0, motion.Reverse))
	d.InvertDirection = true
	s.NoError(d.SetChannelDirection(0, motion.Forward))
	s.Equal([]byte{LED0, 0, 0, 0, FULL_OFF_BIT}, bus.writes[0].data)
	s.Equal([]byte{LED0, 0, FULL_ON_BIT, 0, 0}, bus.writes[1].data)
	s.Equal([]byte{LED0, 0, FULL_ON_BIT, 0, 0}, bus.writes[2].data)
}

func (s *testSuite) TestPulseChannel() {
	bus := new(recordingBus)
	d := &Driver{Bus: bus, Addr: ADDRESS, DutyMax: 1000, Frequency: 50, PulseChannels: []int{15}}
	s.NoError(d.SetChannel(15, 1500))
	s.Equal([]byte{0x42, 0, 0, 0x33, 0x01}, bus.writes[0].data)
	s.NoError(d.SetChannel(15, 0))
	s.Equal([]byte{0x42, 0, 0, 0, FULL_OFF_BIT}, bus.writes[1].data)

	// Duty channels are not affected
	s.NoError(d.SetChannel(14, 1500))
	s.Equal([]byte{0x3E, 0, FULL_ON_BIT, 0, 0}, bus.writes[2].data)

	d.Frequency = 1000
	s.Error(d.SetChannel(15, 1500))
	s.Len(bus.writes, 3)

	s.Equal(400.0, MaxPulseFrequency(2500))
}
