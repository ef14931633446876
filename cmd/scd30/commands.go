// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"

	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/pkg/errors"
)

// sensor is the part of *scd30.Dev used by the program.
type sensor interface {
	Poll() (scd30.Measurement, error)
	SoftReset() bool
	CalibrationReference() (uint16, error)
	SetCalibrationReference(ppm uint16) error
	AutoSelfCalibration() (bool, error)
	SetAutoSelfCalibration(enabled bool) error
	MeasurementInterval() (uint16, error)
	SetMeasurementInterval(seconds uint16) error
}

var _ sensor = &scd30.Dev{}

// runCalibration performs a forced recalibration to ppm and reads back the
// reference.
func runCalibration(dev sensor, ppm int, w io.Writer) error {
	if ppm <= 0 || ppm > math.MaxUint16 {
		fmt.Fprintln(w, "Force recalibration failed")
		return errors.Errorf("invalid calibration reference %d", ppm)
	}
	if err := dev.SetCalibrationReference(uint16(ppm)); err != nil {
		fmt.Fprintln(w, "Force recalibration failed")
		return errors.Wrap(err, "forced recalibration")
	}
	fmt.Fprintln(w, "Force recalibration completed!")
	if ref, err := dev.CalibrationReference(); err == nil && ref > 0 {
		fmt.Fprintf(w, "CO2 calibration reference: %dppm\n", ref)
	} else {
		fmt.Fprintln(w, "CO2 calibration reference: N/A")
	}
	return nil
}

// runConfigure applies the requested setting changes, in the order reset,
// self calibration, interval.
func runConfigure(dev sensor, cfg *config, w io.Writer) error {
	if cfg.reset {
		if !dev.SoftReset() {
			return errors.New("soft reset failed")
		}
		fmt.Fprintln(w, "Soft reset completed")
	}
	if cfg.asc != "" {
		if err := dev.SetAutoSelfCalibration(cfg.asc == "on"); err != nil {
			return errors.Wrap(err, "setting automatic self calibration")
		}
		fmt.Fprintf(w, "Automatic self calibration: %s\n", cfg.asc)
	}
	if cfg.setInterval != 0 {
		if cfg.setInterval < 0 || cfg.setInterval > math.MaxUint16 {
			return errors.Errorf("invalid measurement interval %d", cfg.setInterval)
		}
		if err := dev.SetMeasurementInterval(uint16(cfg.setInterval)); err != nil {
			return errors.Wrap(err, "setting measurement interval")
		}
		fmt.Fprintf(w, "Measurement interval: %ds\n", cfg.setInterval)
	}
	return nil
}

// printInfo prints the sensor configuration.
func printInfo(dev sensor, w io.Writer) error {
	interval, err := dev.MeasurementInterval()
	if err != nil {
		return errors.Wrap(err, "reading measurement interval")
	}
	asc, err := dev.AutoSelfCalibration()
	if err != nil {
		return errors.Wrap(err, "reading automatic self calibration")
	}
	ref, err := dev.CalibrationReference()
	if err != nil {
		return errors.Wrap(err, "reading calibration reference")
	}
	fmt.Fprintf(w, "Measurement interval: %ds\n", interval)
	fmt.Fprintf(w, "Automatic self calibration: %t\n", asc)
	fmt.Fprintf(w, "CO2 calibration reference: %dppm\n", ref)
	return nil
}
