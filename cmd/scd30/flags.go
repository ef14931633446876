// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/pkg/errors"
)

const helpText = `-h	help text
-r	calibrate CO2 sensor (include desired ppm at current approximate levels)
-c	CO2 level
-m	humidity level
-t	temperature in celsius
-T	temperature in fahrenheit
-F	output to files INSTEAD of stdout
-u	truncate output
-o	continuous output (default is a single run of the loop)
`

type config struct {
	// Selected fields.
	co2        bool
	humidity   bool
	celsius    bool
	fahrenheit bool

	files      bool
	truncate   bool
	continuous bool

	bus              string
	dir              string
	interval         time.Duration
	timeout          time.Duration
	fahrenheitOffset float64
	gauge            int
	listen           string
	png              string
	logLevel         string

	allowCalibration bool
	calibrate        int
	asc              string
	setInterval      int
	reset            bool
	info             bool
}

// parseArgs parses the command line. It returns flag.ErrHelp after printing
// the help text when -h is given.
func parseArgs(args []string, out io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("scd30", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, helpText)
		fmt.Fprintln(out, "\nOther flags:")
		fs.VisitAll(func(f *flag.Flag) {
			if len(f.Name) > 1 {
				fmt.Fprintf(out, "-%s\t%s (default %q)\n", f.Name, f.Usage, f.DefValue)
			}
		})
	}

	fs.BoolVar(&cfg.co2, "c", false, "CO2 level")
	fs.BoolVar(&cfg.humidity, "m", false, "humidity level")
	fs.BoolVar(&cfg.celsius, "t", false, "temperature in celsius")
	fs.BoolVar(&cfg.fahrenheit, "T", false, "temperature in fahrenheit")
	fs.BoolVar(&cfg.files, "F", false, "output to files instead of stdout")
	fs.BoolVar(&cfg.truncate, "u", false, "truncate output")
	fs.BoolVar(&cfg.continuous, "o", false, "continuous output")
	fs.IntVar(&cfg.calibrate, "r", 0, "calibrate CO2 sensor to this ppm")

	fs.StringVar(&cfg.bus, "bus", "", "I²C bus name, empty for the first one")
	fs.StringVar(&cfg.dir, "dir", ".", "directory for the -F output files")
	fs.DurationVar(&cfg.interval, "interval", 5*time.Second, "time between polls")
	fs.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "give up a single run after this long")
	fs.Float64Var(&cfg.fahrenheitOffset, "fahrenheit-offset", report.DefaultFahrenheitOffset, "subtracted from Fahrenheit temperatures")
	fs.IntVar(&cfg.gauge, "gauge", 0, "width of the colored CO2 gauge, 0 to disable")
	fs.StringVar(&cfg.listen, "listen", "", "address to serve Prometheus metrics on, empty to disable")
	fs.StringVar(&cfg.png, "png", "", "path of a PNG snapshot rewritten on each poll, empty to disable")
	fs.StringVar(&cfg.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.BoolVar(&cfg.allowCalibration, "allow-calibration", false, "allow -r to change the CO2 calibration reference")
	fs.StringVar(&cfg.asc, "asc", "", "set automatic self calibration, on or off")
	fs.IntVar(&cfg.setInterval, "set-interval", 0, "set the sensor measurement interval in seconds")
	fs.BoolVar(&cfg.reset, "reset", false, "soft reset the sensor")
	fs.BoolVar(&cfg.info, "info", false, "print the sensor configuration")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, errors.Errorf("unexpected arguments %q", fs.Args())
	}
	if cfg.asc != "" && cfg.asc != "on" && cfg.asc != "off" {
		return nil, errors.Errorf("-asc must be on or off, got %q", cfg.asc)
	}
	if cfg.interval < time.Second {
		return nil, errors.Errorf("-interval must be at least 1s, got %s", cfg.interval)
	}
	return cfg, nil
}

// fields returns the selected fields, or 0 for the default selection.
func (c *config) fields() report.Field {
	var f report.Field
	if c.co2 {
		f |= report.FieldCO2
	}
	if c.celsius {
		f |= report.FieldCelsius
	}
	if c.fahrenheit {
		f |= report.FieldFahrenheit
	}
	if c.humidity {
		f |= report.FieldHumidity
	}
	return f
}

func (c *config) formatter() *report.Formatter {
	return &report.Formatter{Fields: c.fields(), Truncate: c.truncate, FahrenheitOffset: c.fahrenheitOffset}
}

// configuring reports whether a sensor setting change was requested.
func (c *config) configuring() bool {
	return c.asc != "" || c.setInterval != 0 || c.reset
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
