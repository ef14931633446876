// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Program scd30 reads CO2, temperature and humidity from an SCD30 sensor on
// I²C and prints them, writes them to text files, or both, once or at a
// fixed interval. It also changes the sensor configuration.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/GermanBionicSystems/scd30logger/console"
	"github.com/GermanBionicSystems/scd30logger/metrics"
	"github.com/GermanBionicSystems/scd30logger/panel"
	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-colorable"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func newLogger(level string, w io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)
	return l, nil
}

// buildSinks returns the outputs selected by cfg. collector may be nil.
func buildSinks(cfg *config, collector *metrics.Collector, stdout io.Writer) ([]report.Sink, error) {
	f := cfg.formatter()
	var sinks []report.Sink
	switch {
	case cfg.files:
		dir, err := homedir.Expand(cfg.dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, &report.Files{Dir: dir, Formatter: f})
	case cfg.gauge > 0 && !cfg.truncate:
		sinks = append(sinks, console.New(&console.Opts{X: cfg.gauge, Formatter: f, W: stdout}))
	default:
		sinks = append(sinks, &report.Printer{W: stdout, Formatter: f})
	}
	if cfg.png != "" {
		path, err := homedir.Expand(cfg.png)
		if err != nil {
			return nil, err
		}
		opts := panel.DefaultOpts
		opts.Formatter = f
		p, err := panel.New(&opts)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, &panel.Snapshot{Path: path, Panel: p})
	}
	if collector != nil {
		sinks = append(sinks, collector)
	}
	return sinks, nil
}

func runPolling(dev sensor, cfg *config, log *logrus.Logger) error {
	var collector *metrics.Collector
	if cfg.listen != "" {
		var err error
		if collector, err = metrics.New(prometheus.DefaultRegisterer); err != nil {
			return errors.Wrap(err, "registering metrics")
		}
		go func() {
			log.Infof("Serving metrics on %s", cfg.listen)
			err := http.ListenAndServe(cfg.listen, collector.Handler(prometheus.DefaultGatherer))
			log.WithError(err).Error("Metrics server stopped")
		}()
	}
	sinks, err := buildSinks(cfg, collector, colorable.NewColorableStdout())
	if err != nil {
		return err
	}
	job := &PollJob{Dev: dev, Sinks: sinks, Metrics: collector, Log: log}
	if !cfg.continuous {
		return runSingle(job, cfg.timeout, clockwork.NewRealClock())
	}
	return runContinuous(job, cfg.interval)
}

func run(cfg *config, log *logrus.Logger) int {
	dev, err := scd30.Open(cfg.bus, &scd30.Opts{AllowCalibrationChange: cfg.allowCalibration})
	if err != nil {
		fmt.Printf("Can't interact with SCD30. Error: %v\n", err)
		return 1
	}
	defer dev.Close()
	log.Debugf("Opened %s", dev)

	switch {
	case cfg.calibrate != 0:
		err = runCalibration(dev, cfg.calibrate, os.Stdout)
	case cfg.configuring():
		err = runConfigure(dev, cfg, os.Stdout)
	case cfg.info:
		err = printInfo(dev, os.Stdout)
	default:
		err = runPolling(dev, cfg, log)
	}
	if err != nil {
		log.Error(err)
		return 1
	}
	return 0
}

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %v\n", err)
		os.Exit(2)
	}
	log, err := newLogger(cfg.logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(cfg, log))
}
