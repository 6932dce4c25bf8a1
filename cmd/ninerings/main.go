package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/christian-helms/nine-linked-rings/pkg/config"
)

// Options are the global flags and subcommands.
type Options struct {
	Config  string `short:"c" long:"config" default:"ninerings.yaml" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Debug logging"`

	Setup       SetupCommand       `command:"setup" description:"Find and calibrate the hand, choose the tracking source"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Start hand teleoperation and demonstration recording"`
	Inspect     InspectCommand     `command:"inspect" description:"Print the contents and statistics of a recorded demonstration"`
	Ports       PortsCommand       `command:"ports" description:"List serial ports and the servos on them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "ninerings - dexterous hand teleoperation for the nine linked rings puzzle"

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

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// newLogger builds a production logger. A non-empty file replaces stderr, so
// log lines do not tear through a full-screen UI.
func newLogger(level, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if opts.Verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}
	return cfg.Build()
}
