package input

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/antongulenko/skidcar/motion"
)

// Absolute axis codes from linux/input-event-codes.h
const (
	ABS_X  = 0x00
	ABS_Y  = 0x01
	ABS_Z  = 0x02
	ABS_RX = 0x03
	ABS_RY = 0x04
	ABS_RZ = 0x05
)

var absNames = map[string]uint16{
	"ABS_X":  ABS_X,
	"ABS_Y":  ABS_Y,
	"ABS_Z":  ABS_Z,
	"ABS_RX": ABS_RX,
	"ABS_RY": ABS_RY,
	"ABS_RZ": ABS_RZ,
}

// Mapping resolves evdev absolute axis codes to motion axes. Codes not contained are dropped.
type Mapping map[uint16]motion.Axis

// DefaultMapping matches a DualSense/DualShock controller driven by the hid-playstation driver:
// right trigger drives forward, left trigger drives backward, the left stick steers.
func DefaultMapping() Mapping {
	return Mapping{
		ABS_RZ: motion.TriggerForward,
		ABS_Z:  motion.TriggerReverse,
		ABS_X:  motion.JoystickX,
		ABS_Y:  motion.JoystickY,
	}
}

func (m Mapping) Resolve(code uint16) motion.Axis {
	if axis, ok := m[code]; ok {
		return axis
	}
	return motion.AxisUnknown
}

// ParseMapping parses a comma separated list like "ABS_RZ=forward,ABS_Z=reverse,ABS_X=x,ABS_Y=y".
// Numeric codes are accepted as well.
func ParseMapping(s string) (Mapping, error) {
	m := make(Mapping)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("Invalid axis mapping '%v' (expected CODE=AXIS)", part)
		}
		code, ok := absNames[strings.ToUpper(strings.TrimSpace(kv[0]))]
		if !ok {
			var num uint16
			if _, err := fmt.Sscanf(kv[0], "%d", &num); err != nil {
				return nil, fmt.Errorf("Unknown absolute axis code '%v'", kv[0])
			}
			code = num
		}
		axis, err := parseAxis(kv[1])
		if err != nil {
			return nil, err
		}
		m[code] = axis
	}
	return m, nil
}

var axisNames = map[motion.Axis]string{
	motion.TriggerForward: "forward",
	motion.TriggerReverse: "reverse",
	motion.JoystickX:      "x",
	motion.JoystickY:      "y",
}

// String returns the mapping in the format accepted by ParseMapping.
func (m Mapping) String() string {
	parts := make([]string, 0, len(m))
	for code, axis := range m {
		parts = append(parts, fmt.Sprintf("%v=%v", codeName(code), axisNames[axis]))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func codeName(code uint16) string {
	for name, c := range absNames {
		if c == code {
			return name
		}
	}
	return fmt.Sprint(code)
}

func parseAxis(s string) (motion.Axis, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for axis, name := range axisNames {
		if s == name || s == axis.String() {
			return axis, nil
		}
	}
	return motion.AxisUnknown, fmt.Errorf("Unknown motion axis '%v' (expected forward, reverse, x or y)", s)
}

func clampRaw(val int) int {
	if val < motion.RawMin {
		return motion.RawMin
	}
	if val > motion.RawMax {
		return motion.RawMax
	}
	return val
}

// Converts joystick API coordinates in -1..1 to 0..255
func coordToRaw(val float32) int {
	return clampRaw(int(math.Round((float64(val) + 1) * float64(motion.RawMax) / 2)))
}
