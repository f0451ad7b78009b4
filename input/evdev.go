package input

import (
	"context"

	"github.com/antongulenko/skidcar/motion"
	"github.com/kenshaw/evdev"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Evdev reads absolute axis events from a Linux event device, e.g. /dev/input/event4.
type Evdev struct {
	path    string
	mapping Mapping
	dev     *evdev.Evdev
	events  <-chan *evdev.EventEnvelope
	cancel  context.CancelFunc
}

func OpenEvdev(path string, mapping Mapping) (*Evdev, error) {
	dev, err := evdev.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(motion.ErrDeviceUnavailable, "%v: %v", path, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	log.Printf("Opened input device %v, axis mapping: %v", path, mapping)
	return &Evdev{
		path:    path,
		mapping: mapping,
		dev:     dev,
		events:  dev.Poll(ctx),
		cancel:  cancel,
	}, nil
}

func (d *Evdev) NextEvent(ctx context.Context) (motion.AxisEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return motion.AxisEvent{}, ctx.Err()
		case env, ok := <-d.events:
			if !ok || env == nil {
				return motion.AxisEvent{}, errors.Wrapf(motion.ErrDeviceLost, "%v", d.path)
			}
			if ev, ok := d.convert(env.Event); ok {
				return ev, nil
			}
		}
	}
}

func (d *Evdev) convert(event evdev.Event) (motion.AxisEvent, bool) {
	if event.Type != evdev.EventAbsolute {
		// Sync markers, buttons
		return motion.AxisEvent{}, false
	}
	axis := d.mapping.Resolve(event.Code)
	if axis == motion.AxisUnknown {
		return motion.AxisEvent{}, false
	}
	return motion.AxisEvent{Axis: axis, Value: clampRaw(int(event.Value))}, true
}

func (d *Evdev) Close() error {
	d.cancel()
	return d.dev.Close()
}
