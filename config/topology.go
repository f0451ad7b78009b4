package config

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/antongulenko/skidcar/motion"
	"github.com/antongulenko/skidcar/regboard"
	"gopkg.in/yaml.v3"
)

type WheelConfig struct {
	Name      string `yaml:"name"`
	Layout    string `yaml:"layout,omitempty"`
	Forward   int    `yaml:"forward,omitempty"`
	Reverse   int    `yaml:"reverse,omitempty"`
	PWM       int    `yaml:"pwm,omitempty"`
	Direction int    `yaml:"direction,omitempty"`
}

// Topology is the file representation of a motion.MotorGroup. Left and Right name the wheels
// that are held still when turning left or right, respectively.
type Topology struct {
	Wheels []WheelConfig `yaml:"wheels"`
	Left   []string      `yaml:"left,flow"`
	Right  []string      `yaml:"right,flow"`
}

// Four motors on the first 8 PWM outputs, one output per direction
var DualChannelTopology = Topology{
	Wheels: []WheelConfig{
		{Name: "front-left", Forward: 0, Reverse: 1},
		{Name: "front-right", Forward: 2, Reverse: 3},
		{Name: "rear-right", Forward: 4, Reverse: 5},
		{Name: "rear-left", Forward: 6, Reverse: 7},
	},
	Left:  []string{"front-left", "rear-left"},
	Right: []string{"front-right", "rear-right"},
}

// Register board with two motor outputs, one per side
var RegboardTopology = Topology{
	Wheels: []WheelConfig{
		{Name: "front-left", Layout: "direction", PWM: regboard.PWM1, Direction: regboard.DIR1},
		{Name: "front-right", Layout: "direction", PWM: regboard.PWM2, Direction: regboard.DIR2},
		{Name: "rear-right", Layout: "direction", PWM: regboard.PWM2, Direction: regboard.DIR2},
		{Name: "rear-left", Layout: "direction", PWM: regboard.PWM1, Direction: regboard.DIR1},
	},
	Left:  []string{"front-left", "rear-left"},
	Right: []string{"front-right", "rear-right"},
}

var BuiltinTopologies = map[string]Topology{
	"dual":     DualChannelTopology,
	"regboard": RegboardTopology,
}

func BuiltinTopologyNames() []string {
	names := make([]string, 0, len(BuiltinTopologies))
	for name := range BuiltinTopologies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTopology returns the built-in topology of the given name, or reads the given YAML file.
func LoadTopology(nameOrFile string) (Topology, error) {
	if t, ok := BuiltinTopologies[nameOrFile]; ok {
		return t, nil
	}
	data, err := ioutil.ReadFile(nameOrFile)
	if err != nil {
		return Topology{}, fmt.Errorf("Failed to read topology (built-in topologies: %v): %v", BuiltinTopologyNames(), err)
	}
	t, err := ParseTopology(data)
	if err != nil {
		return Topology{}, fmt.Errorf("Failed to parse topology file %v: %v", nameOrFile, err)
	}
	return t, nil
}

// ParseTopology decodes YAML and rejects unknown keys.
func ParseTopology(data []byte) (Topology, error) {
	var t Topology
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Topology{}, err
	}
	return t, nil
}

func (t Topology) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

func (t Topology) MotorGroup() (*motion.MotorGroup, error) {
	if len(t.Wheels) != motion.NumWheels {
		return nil, fmt.Errorf("Topology must contain exactly %v wheels, not %v", motion.NumWheels, len(t.Wheels))
	}
	var wheels [motion.NumWheels]motion.Wheel
	for i, w := range t.Wheels {
		layout, err := motion.ParseLayout(w.Layout)
		if err != nil {
			return nil, err
		}
		wheels[i] = motion.Wheel{
			Name:      w.Name,
			Layout:    layout,
			Forward:   w.Forward,
			Reverse:   w.Reverse,
			PWM:       w.PWM,
			Direction: w.Direction,
		}
	}
	left, err := t.pair("left", t.Left, wheels)
	if err != nil {
		return nil, err
	}
	right, err := t.pair("right", t.Right, wheels)
	if err != nil {
		return nil, err
	}
	return motion.NewMotorGroup(wheels, left, right)
}

func (t Topology) pair(side string, names []string, wheels [motion.NumWheels]motion.Wheel) (result [2]int, err error) {
	if len(names) != len(result) {
		return result, fmt.Errorf("The %v turn pair must contain %v wheels, not %v", side, len(result), len(names))
	}
	for i, name := range names {
		result[i] = -1
		for j, w := range wheels {
			if w.Name == name {
				result[i] = j
			}
		}
		if result[i] == -1 {
			return result, fmt.Errorf("The %v turn pair refers to unknown wheel '%v'", side, name)
		}
	}
	return
}
