// Package config holds the settings of the vehicle and opens the devices they describe.
package config

import (
	"flag"
	"fmt"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/skidcar/gpio"
	"github.com/antongulenko/skidcar/i2c"
	"github.com/antongulenko/skidcar/input"
	"github.com/antongulenko/skidcar/motion"
	"github.com/antongulenko/skidcar/pca9685"
	"github.com/antongulenko/skidcar/regboard"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	InputEvdev    = "evdev"
	InputJoystick = "joystick"

	ActuatorPca9685  = "pca9685"
	ActuatorRegboard = "regboard"
)

var Default = Vehicle{
	Input:           InputEvdev,
	Device:          "/dev/input/event4",
	Mapping:         input.DefaultMapping().String(),
	Joystick:        1,
	JoystickMapping: input.DefaultJoystickMapping,

	Actuator:  ActuatorPca9685,
	I2cDevice: "/dev/i2c-1",
	Frequency: 1000,

	Steering: motion.DefaultSteering,
	Servo:    motion.DefaultServo,
}

type Vehicle struct {
	Input           string
	Device          string
	Mapping         string
	Joystick        int
	JoystickMapping input.JoystickMapping

	Actuator        string
	I2cDevice       string
	Addr            uint // 0 selects the default address of the actuator
	Frequency       float64
	Stagger         bool
	InvertDirection bool
	GpioChip        string
	Topology        string // Built-in topology name or YAML file, empty for the default of the actuator
	Dummy           bool

	Steering motion.Steering
	Servo    motion.Servo
}

func (v *Vehicle) RegisterFlags() {
	flag.StringVar(&v.Input, "input", v.Input, fmt.Sprintf("Input source (%v or %v)", InputEvdev, InputJoystick))
	flag.StringVar(&v.Device, "dev", v.Device, "Event device of the controller")
	flag.StringVar(&v.Mapping, "mapping", v.Mapping, "Mapping of event device axis codes to motion axes")
	flag.IntVar(&v.Joystick, "js", v.Joystick, "Joystick device index")
	v.JoystickMapping.RegisterFlags()

	flag.StringVar(&v.Actuator, "actuator", v.Actuator, fmt.Sprintf("Motor driver (%v or %v)", ActuatorPca9685, ActuatorRegboard))
	flag.StringVar(&v.I2cDevice, "i2c", v.I2cDevice, "I2C bus device")
	flag.UintVar(&v.Addr, "addr", v.Addr, "I2C address of the motor driver (default depends on -actuator)")
	flag.Float64Var(&v.Frequency, "freq", v.Frequency, "PWM frequency of the PCA9685 in Hz")
	flag.BoolVar(&v.Stagger, "stagger", v.Stagger, "Shift the PCA9685 pulses of the outputs against each other")
	flag.BoolVar(&v.InvertDirection, "invert-direction", v.InvertDirection, "Invert PCA9685 direction outputs")
	flag.StringVar(&v.GpioChip, "gpio-chip", v.GpioChip, "Drive direction channels through lines of this GPIO chip (e.g. gpiochip0)")
	flag.StringVar(&v.Topology, "topology", v.Topology, fmt.Sprintf("Wheel topology YAML file or built-in topology %v", BuiltinTopologyNames()))
	flag.BoolVar(&v.Dummy, "dummy", v.Dummy, "Do not access I2C or GPIO devices, only log the outputs")

	v.Steering.RegisterFlags()
	v.Servo.RegisterFlags()
}

func (v *Vehicle) TopologyName() string {
	if v.Topology != "" {
		return v.Topology
	}
	if v.Actuator == ActuatorRegboard {
		return "regboard"
	}
	return "dual"
}

func (v *Vehicle) MotorGroup() (*motion.MotorGroup, error) {
	topology, err := LoadTopology(v.TopologyName())
	if err != nil {
		return nil, err
	}
	group, err := topology.MotorGroup()
	if err != nil {
		return nil, fmt.Errorf("Invalid topology %v: %v", v.TopologyName(), err)
	}
	if err := v.checkServo(group); err != nil {
		return nil, err
	}
	for _, w := range group.Wheels() {
		log.Println("Wheel", w)
	}
	return group, nil
}

func (v *Vehicle) checkServo(group *motion.MotorGroup) error {
	if !v.Servo.Enabled {
		return nil
	}
	if err := v.Servo.Check(group); err != nil {
		return err
	}
	if v.Actuator == ActuatorPca9685 {
		if maxFreq := pca9685.MaxPulseFrequency(v.Servo.MaxPulse); v.Frequency >= maxFreq {
			return fmt.Errorf("Servo pulses up to %vus need a PWM frequency below %vHz (-freq %v)", v.Servo.MaxPulse, maxFreq, v.Frequency)
		}
	}
	return nil
}

func (v *Vehicle) OpenInput() (motion.Source, error) {
	switch v.Input {
	case InputEvdev:
		mapping, err := input.ParseMapping(v.Mapping)
		if err != nil {
			return nil, err
		}
		dev, err := input.OpenEvdev(v.Device, mapping)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case InputJoystick:
		js, err := input.ConnectJoystick(v.Joystick, v.JoystickMapping)
		if err != nil {
			return nil, err
		}
		return js, nil
	default:
		return nil, fmt.Errorf("Unknown input source '%v' (expected %v or %v)", v.Input, InputEvdev, InputJoystick)
	}
}

func (v *Vehicle) NewEngine(group *motion.MotorGroup, actuator motion.Actuator) *motion.Engine {
	engine := motion.NewEngine(group, v.Steering, actuator)
	engine.Servo = v.Servo
	return engine
}

func (v *Vehicle) OpenBus() (i2c.Bus, func() error, error) {
	if v.Dummy {
		log.Println("Dummy mode: I2C writes are only logged")
		return new(i2c.DummyBus), func() error { return nil }, nil
	}
	bus, err := i2c.OpenLinux(v.I2cDevice)
	if err != nil {
		return nil, nil, err
	}
	return bus, bus.Close, nil
}

// Hardware is an opened actuator. Close switches all outputs off and releases the devices.
type Hardware struct {
	motion.Actuator
	cleanup []func() error
}

func (h *Hardware) Close() (err error) {
	for _, c := range h.cleanup {
		err = multierr.Append(err, c())
	}
	h.cleanup = nil
	return
}

func (v *Vehicle) OpenActuator(group *motion.MotorGroup) (*Hardware, error) {
	bus, closeBus, err := v.OpenBus()
	if err != nil {
		return nil, err
	}
	hw := new(Hardware)
	fail := func(err error) (*Hardware, error) {
		hw.cleanup = append(hw.cleanup, closeBus)
		golib.Printerr(hw.Close())
		return nil, err
	}

	switch v.Actuator {
	case ActuatorPca9685:
		driver := &pca9685.Driver{
			Bus:             bus,
			Addr:            v.addr(pca9685.ADDRESS),
			DutyMax:         v.Steering.DutyMax,
			Frequency:       v.Frequency,
			InvertDirection: v.InvertDirection,
			Stagger:         v.Stagger,
		}
		if v.Servo.Enabled {
			driver.PulseChannels = []int{v.Servo.Channel}
		}
		if err := driver.Init(); err != nil {
			return fail(fmt.Errorf("Failed to initialize PCA9685: %v", err))
		}
		hw.Actuator = driver
		hw.cleanup = append(hw.cleanup, driver.Off)
	case ActuatorRegboard:
		board := regboard.DefaultBoard
		board.Bus = bus
		board.Addr = v.addr(regboard.ADDRESS)
		board.DutyMax = v.Steering.DutyMax
		board.Registers = v.boardRegisters(group)
		if v.Servo.Enabled {
			board.Unclamped = []int{v.Servo.Channel}
		}
		hw.Actuator = &board
		hw.cleanup = append(hw.cleanup, board.Off)
	default:
		return fail(fmt.Errorf("Unknown actuator '%v' (expected %v or %v)", v.Actuator, ActuatorPca9685, ActuatorRegboard))
	}

	if v.GpioChip != "" {
		offsets := directionChannels(group)
		var lines motion.Actuator
		if v.Dummy {
			lines = new(gpio.DummyLines)
		} else {
			gpioLines, err := gpio.OpenLines(v.GpioChip, offsets)
			if err != nil {
				return fail(err)
			}
			lines = gpioLines
			hw.cleanup = append(hw.cleanup, gpioLines.Close)
		}
		hw.Actuator = gpio.Split{PWM: hw.Actuator, Direction: lines}
	}
	hw.cleanup = append(hw.cleanup, closeBus)
	return hw, nil
}

func (v *Vehicle) addr(defaultAddr byte) byte {
	if v.Addr == 0 {
		return defaultAddr
	}
	return byte(v.Addr)
}

// Registers of the board that are zeroed on shutdown. Direction registers are only
// included when they are not driven through GPIO lines.
func (v *Vehicle) boardRegisters(group *motion.MotorGroup) []int {
	var result []int
	add := func(reg int) {
		for _, r := range result {
			if r == reg {
				return
			}
		}
		result = append(result, reg)
	}
	for _, w := range group.Wheels() {
		switch w.Layout {
		case motion.DualChannel:
			add(w.Forward)
			add(w.Reverse)
		case motion.DirectionPin:
			add(w.PWM)
			if v.GpioChip == "" {
				add(w.Direction)
			}
		}
	}
	return result
}

func directionChannels(group *motion.MotorGroup) []int {
	var result []int
	for _, w := range group.Wheels() {
		if w.Layout == motion.DirectionPin {
			result = append(result, w.Direction)
		}
	}
	return result
}
