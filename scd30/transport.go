// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Open initializes the host drivers, opens the named I²C bus and binds the
// sensor at SensorAddress on it. Use "" for the first available bus. Call
// Close once done with the device.
func Open(name string, opts *Opts) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, &OpenError{Bus: name, Err: err}
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, &OpenError{Bus: name, Err: err}
	}
	d, err := NewI2C(b, SensorAddress, opts)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	d.closer = b
	return d, nil
}

// writeWords writes w to the sensor in a single transaction and returns the
// number of bytes written. c is only used to describe the error.
func (d *Dev) writeWords(c command, w []byte) (int, error) {
	n, err := d.d.Write(w)
	if err != nil {
		return n, &IOError{Op: "write", Word: uint16(c), Err: err}
	}
	return n, nil
}

// readWords reads n bytes from the sensor in a single transaction.
func (d *Dev) readWords(c command, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := d.d.Tx(nil, r); err != nil {
		return nil, &IOError{Op: "read", Word: uint16(c), Err: err}
	}
	return r, nil
}

// settle blocks for at least dur on the device clock. If the clock wakes
// early, it goes back to sleep for the remainder.
func (d *Dev) settle(dur time.Duration) error {
	if dur < 0 {
		return &InvalidArgumentError{Name: "delay (ns)", Value: int64(dur), Min: 0, Max: -1}
	}
	deadline := d.opts.Clock.Now().Add(dur)
	for remaining := dur; remaining > 0; remaining = deadline.Sub(d.opts.Clock.Now()) {
		d.opts.Clock.Sleep(remaining)
	}
	return nil
}
