// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	// The SCD30 only supports this i2c address.
	SensorAddress uint16 = 0x61
)

// Valid ranges for the configurable values, inclusive.
const (
	MinCalibrationReference uint16 = 400
	MaxCalibrationReference uint16 = 2000
	MinMeasurementInterval  uint16 = 2
	MaxMeasurementInterval  uint16 = 1800
	MinAmbientPressure      uint16 = 700
	MaxAmbientPressure      uint16 = 1400
)

// Opts holds the configuration options for the device.
type Opts struct {
	// AllowCalibrationChange enables SetCalibrationReference. A forced
	// recalibration against a wrong reference desensitizes the sensor, so it
	// is off by default.
	AllowCalibrationChange bool
	// SettleDelay is the wait between writing a register address and reading
	// the response. Leave 0 to use the default of 4ms.
	SettleDelay time.Duration
	// ResetDelay is the wait after a soft reset. Leave 0 to use the default of
	// 30ms.
	ResetDelay time.Duration
	// Clock used for the delays. Leave nil to use the real clock.
	Clock clockwork.Clock
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	SettleDelay: 4 * time.Millisecond,
	ResetDelay:  30 * time.Millisecond,
}

// Dev represents an SCD30 device.
//
// Only one command/response exchange is on the bus at a time.
type Dev struct {
	d      *i2c.Dev
	opts   Opts
	closer io.Closer
	mu     sync.Mutex
}

// NewI2C returns a Dev bound to addr on an already opened bus. Use
// SensorAddress for addr. The Opts can be nil. Negative delays are rejected
// with an *InvalidArgumentError.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if addr == 0 || addr > 0x7f {
		return nil, &OpenError{Bus: b.String(), Err: fmt.Errorf("invalid address 0x%x", addr)}
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.SettleDelay < 0 {
		return nil, &InvalidArgumentError{Name: "settle delay (ns)", Value: int64(o.SettleDelay), Min: 0, Max: -1}
	}
	if o.ResetDelay < 0 {
		return nil, &InvalidArgumentError{Name: "reset delay (ns)", Value: int64(o.ResetDelay), Min: 0, Max: -1}
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = DefaultOpts.SettleDelay
	}
	if o.ResetDelay == 0 {
		o.ResetDelay = DefaultOpts.ResetDelay
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: o}, nil
}

// IsDataReady returns true when a new measurement can be read. A failed read
// of the ready flag also returns false; in both cases the answer is to poll
// again later.
func (d *Dev) IsDataReady() bool {
	v, err := d.readRegister(regDataReady)
	return err == nil && v == 1
}

// ReadMeasurement reads and decodes the current measurement. It returns a
// *CorruptPayloadError if any word fails its CRC check.
func (d *Dev) ReadMeasurement() (Measurement, error) {
	p, err := d.readMeasurementPayload()
	if err != nil {
		return Measurement{}, err
	}
	return decode(&p), nil
}

// Poll returns the new measurement if one is ready, or ErrNotReady.
func (d *Dev) Poll() (Measurement, error) {
	if !d.IsDataReady() {
		return Measurement{}, ErrNotReady
	}
	return d.ReadMeasurement()
}

// SoftReset restarts the sensor firmware and waits for it to come back,
// whether or not the command was accepted. It returns true if the command was
// written and the wait ran.
func (d *Dev) SoftReset() bool {
	n, err := d.sendCommand(cmdSoftReset)
	if serr := d.settle(d.opts.ResetDelay); serr != nil {
		return false
	}
	return err == nil && n > 0
}

// CalibrationReference returns the CO2 concentration, in PPM, used by the last
// forced recalibration.
func (d *Dev) CalibrationReference() (uint16, error) {
	return d.readRegister(regForcedRecalibration)
}

// SetCalibrationReference performs a forced recalibration against a known CO2
// concentration in PPM. It requires Opts.AllowCalibrationChange.
func (d *Dev) SetCalibrationReference(ppm uint16) error {
	if !d.opts.AllowCalibrationChange {
		return ErrCalibrationLocked
	}
	if ppm < MinCalibrationReference || ppm > MaxCalibrationReference {
		return &InvalidArgumentError{Name: "calibration reference (ppm)", Value: int64(ppm), Min: int64(MinCalibrationReference), Max: int64(MaxCalibrationReference)}
	}
	_, err := d.sendCommandWithArgument(regForcedRecalibration, ppm)
	return err
}

// AutoSelfCalibration returns true if automatic self calibration is enabled.
func (d *Dev) AutoSelfCalibration() (bool, error) {
	v, err := d.readRegister(regAutoSelfCalibration)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// SetAutoSelfCalibration enables or disables automatic self calibration.
func (d *Dev) SetAutoSelfCalibration(enabled bool) error {
	var arg uint16
	if enabled {
		arg = 1
	}
	_, err := d.sendCommandWithArgument(regAutoSelfCalibration, arg)
	return err
}

// MeasurementInterval returns the continuous measurement interval in seconds.
func (d *Dev) MeasurementInterval() (uint16, error) {
	return d.readRegister(regMeasurementInterval)
}

// SetMeasurementInterval sets the continuous measurement interval in seconds.
func (d *Dev) SetMeasurementInterval(seconds uint16) error {
	if seconds < MinMeasurementInterval || seconds > MaxMeasurementInterval {
		return &InvalidArgumentError{Name: "measurement interval (s)", Value: int64(seconds), Min: int64(MinMeasurementInterval), Max: int64(MaxMeasurementInterval)}
	}
	_, err := d.sendCommandWithArgument(regMeasurementInterval, seconds)
	return err
}

// StartContinuousMeasurement starts measuring at the configured interval. The
// ambient pressure in mbar is used for compensation; 0 disables it.
func (d *Dev) StartContinuousMeasurement(pressureMbar uint16) error {
	if pressureMbar != 0 && (pressureMbar < MinAmbientPressure || pressureMbar > MaxAmbientPressure) {
		return &InvalidArgumentError{Name: "ambient pressure (mbar)", Value: int64(pressureMbar), Min: int64(MinAmbientPressure), Max: int64(MaxAmbientPressure)}
	}
	_, err := d.sendCommandWithArgument(cmdTriggerContinuous, pressureMbar)
	return err
}

// StopContinuousMeasurement stops measuring. The sensor remembers the state
// across power cycles.
func (d *Dev) StopContinuousMeasurement() error {
	_, err := d.sendCommand(cmdStopContinuous)
	return err
}

// Halt implements conn.Resource. The sensor keeps its measurement state, so
// there is nothing to stop.
func (d *Dev) Halt() error {
	return nil
}

// Close releases the bus opened by Open. It is a no-op for a device created
// with NewI2C.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30: %s", d.d.String())
}

var _ conn.Resource = &Dev{}
