package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/hexapod/pkg/robot"
)

type Options struct {
	Config string `short:"c" long:"config" default:"hexapod.json" description:"Configuration file (.json, .yaml or .yml)"`

	Setup  SetupCommand  `command:"setup" description:"Find the servo bus and write a configuration"`
	Walk   WalkCommand   `command:"walk" alias:"teleop" description:"Drive the robot from the keyboard"`
	Pose   PoseCommand   `command:"pose" description:"Move the robot to a named pose"`
	Servo  ServoCommand  `command:"servo" description:"Read or write a single servo register"`
	Status StatusCommand `command:"status" description:"Show present servo positions"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Hexapod - six-legged walker control CLI for AX-12A servos"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config and checks that setup
// has been run.
func loadConfig() *robot.Config {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No configuration found in %s. Run 'hexapod setup' first.\n", opts.Config)
		os.Exit(1)
	}
	if cfg.Port == "" {
		fmt.Fprintln(os.Stderr, "Serial port not configured. Run 'hexapod setup' first.")
		os.Exit(1)
	}
	if !cfg.IsCalibrated() {
		fmt.Fprintln(os.Stderr, "Servos not calibrated. Run 'hexapod setup' first.")
		os.Exit(1)
	}
	return cfg
}
