// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by Dev.Poll when the sensor has no new measurement.
var ErrNotReady = errors.New("scd30: measurement not ready")

// ErrCalibrationLocked is returned by Dev.SetCalibrationReference when
// Opts.AllowCalibrationChange is false.
var ErrCalibrationLocked = errors.New("scd30: forced recalibration is disabled, set Opts.AllowCalibrationChange to enable it")

// OpenError is returned when the I²C bus can't be opened or the sensor can't
// be addressed on it. It is fatal for the session.
type OpenError struct {
	Bus string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("scd30: can't open i2c bus %q: %v", e.Bus, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// IOError is returned when a single write or read on the bus fails. Word is
// the register address or command the transaction was for.
type IOError struct {
	Op   string
	Word uint16
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("scd30: %s 0x%04x: %v", e.Op, e.Word, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CorruptPayloadError is returned when a measurement triplet fails its CRC
// check. The whole measurement is discarded.
type CorruptPayloadError struct {
	// Triplet is the index, 0 to 5, of the first triplet with a bad CRC.
	Triplet int
}

func (e *CorruptPayloadError) Error() string {
	return fmt.Sprintf("scd30: corrupt measurement, crc mismatch in word %d", e.Triplet)
}

// InvalidArgumentError is returned when a value is outside of the range the
// sensor accepts. Nothing is sent to the sensor.
type InvalidArgumentError struct {
	Name  string
	Value int64
	Min   int64
	// Max is ignored when it is lower than Min.
	Max int64
}

func (e *InvalidArgumentError) Error() string {
	if e.Max < e.Min {
		return fmt.Sprintf("scd30: invalid %s %d, must be at least %d", e.Name, e.Value, e.Min)
	}
	return fmt.Sprintf("scd30: invalid %s %d, must be between %d and %d", e.Name, e.Value, e.Min, e.Max)
}
