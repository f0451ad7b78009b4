package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/skidcar/config"
	"github.com/antongulenko/skidcar/i2c"
	"github.com/antongulenko/skidcar/motion"
	log "github.com/sirupsen/logrus"
)

type commandFunc func() error

var (
	vehicle  = config.Default
	command  = "scan"
	commands = map[string]commandFunc{
		"none":     func() error { return nil },
		"scan":     scan,
		"zero":     zero,
		"wheel":    driveWheel,
		"topology": printTopology,
	}
	wheelName = ""
	speed     = 100
	reverse   = false
	duration  = 2 * time.Second
)

func main() {
	vehicle.RegisterFlags()
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	flag.StringVar(&wheelName, "wheel", wheelName, "Name of the wheel for -c wheel")
	flag.IntVar(&speed, "speed", speed, "Speed sample (0..255) for -c wheel")
	flag.BoolVar(&reverse, "reverse", reverse, "Drive the wheel in reverse for -c wheel")
	flag.DurationVar(&duration, "duration", duration, "Time to drive the wheel for -c wheel")
	golib.RegisterLogFlags()
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}
	return commandFunc()
}

func scan() error {
	bus, closeBus, err := vehicle.OpenBus()
	if err != nil {
		return err
	}
	defer func() {
		golib.Printerr(closeBus())
	}()
	slaves, err := i2c.Scan(bus)
	if err != nil {
		return err
	}
	log.Printf("Scanned slaves: %#02v", slaves)
	return nil
}

func openEngine() (*motion.Engine, *config.Hardware, error) {
	group, err := vehicle.MotorGroup()
	if err != nil {
		return nil, nil, err
	}
	hw, err := vehicle.OpenActuator(group)
	if err != nil {
		return nil, nil, err
	}
	return vehicle.NewEngine(group, hw), hw, nil
}

func zero() error {
	engine, hw, err := openEngine()
	if err != nil {
		return err
	}
	defer func() {
		golib.Printerr(hw.Close())
	}()
	return engine.Kill()
}

func driveWheel() error {
	engine, hw, err := openEngine()
	if err != nil {
		return err
	}
	defer func() {
		golib.Printerr(hw.Close())
	}()
	index := engine.Group.WheelIndex(wheelName)
	if index < 0 {
		var names []string
		for _, w := range engine.Group.Wheels() {
			names = append(names, w.Name)
		}
		return fmt.Errorf("Unknown wheel '%v', available wheels: %v", wheelName, names)
	}

	dir := motion.Forward
	if reverse {
		dir = motion.Reverse
	}
	cmd := motion.StopCommand()
	cmd[index] = motion.WheelCommand{Direction: dir, Duty: motion.Scale(speed, vehicle.Steering.DutyMax)}
	log.Printf("Driving %v: %v (channels %v) for %v", engine.Group.Wheel(index), cmd[index], engine.Group.Wheel(index).Channels(), duration)

	if err := engine.Kill(); err != nil {
		return err
	}
	if err := engine.Write(cmd); err != nil {
		golib.Printerr(engine.Kill())
		return err
	}
	time.Sleep(duration)
	return engine.Kill()
}

func printTopology() error {
	topology, err := config.LoadTopology(vehicle.TopologyName())
	if err != nil {
		return err
	}
	if _, err := topology.MotorGroup(); err != nil {
		return err
	}
	data, err := topology.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
