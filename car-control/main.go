package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/skidcar/config"
	"github.com/antongulenko/skidcar/motion"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	vehicle       = config.Default
	retryDuration = time.Duration(0)
	retryInterval = 500 * time.Millisecond
)

func main() {
	vehicle.RegisterFlags()
	flag.DurationVar(&retryDuration, "retry", retryDuration, "Time to retry opening the input device (0 fails immediately)")
	flag.DurationVar(&retryInterval, "retry-interval", retryInterval, "Sleep time between attempts to open the input device")
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func doMain() error {
	// "Clean" shutdown with Ctrl-C signal: the event loop stops and zeroes all motors
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, err := vehicle.MotorGroup()
	if err != nil {
		return err
	}
	source, err := openInput(ctx)
	if err != nil {
		return err
	}
	hw, err := vehicle.OpenActuator(group)
	if err != nil {
		golib.Printerr(source.Close())
		return err
	}
	defer func() {
		golib.Printerr(hw.Close())
	}()

	log.Printf("Controlling %v wheels through %v, input from %v", motion.NumWheels, vehicle.Actuator, vehicle.Input)
	return vehicle.NewEngine(group, hw).Run(ctx, source)
}

func openInput(ctx context.Context) (motion.Source, error) {
	deadline := time.Now().Add(retryDuration)
	for {
		source, err := vehicle.OpenInput()
		if err == nil || errors.Cause(err) != motion.ErrDeviceUnavailable || !time.Now().Before(deadline) {
			return source, err
		}
		log.Warnf("Input not available, retrying in %v: %v", retryInterval, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
