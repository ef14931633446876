// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"encoding/binary"

	"github.com/GermanBionicSystems/scd30logger/common"
)

// command is a 16-bit register address or command word.
type command uint16

const (
	cmdTriggerContinuous   command = 0x0010
	cmdStopContinuous      command = 0x0104
	regDataReady           command = 0x0202
	regReadMeasurement     command = 0x0300
	regMeasurementInterval command = 0x4600
	regForcedRecalibration command = 0x5204
	regAutoSelfCalibration command = 0x5306
	cmdSoftReset           command = 0xd304
)

// payloadSize is the size of a measurement: six words, each followed by its
// CRC.
const payloadSize = 18

// commandFrame returns the bytes to write for c. An argument word is followed
// by the CRC8 of its two bytes. The command bytes are not covered by a CRC.
func commandFrame(c command, args ...uint16) []byte {
	w := make([]byte, 2, 2+3*len(args))
	binary.BigEndian.PutUint16(w, uint16(c))
	for _, arg := range args {
		w = common.AppendWord(w, arg)
	}
	return w
}

// readRegister writes the register address, waits for the sensor to prepare
// the response and reads back the 16-bit value.
func (d *Dev) readRegister(c command) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.writeWords(c, commandFrame(c)); err != nil {
		return 0, err
	}
	if err := d.settle(d.opts.SettleDelay); err != nil {
		return 0, err
	}
	r, err := d.readWords(c, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r), nil
}

// sendCommand writes a bare command.
func (d *Dev) sendCommand(c command) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeWords(c, commandFrame(c))
}

// sendCommandWithArgument writes the command, the argument and the CRC of the
// argument as a single 5 byte frame.
func (d *Dev) sendCommandWithArgument(c command, arg uint16) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeWords(c, commandFrame(c, arg))
}

// readMeasurementPayload reads the 18 measurement bytes. The payload is only
// returned when the CRC of every word matches.
func (d *Dev) readMeasurementPayload() ([payloadSize]byte, error) {
	var p [payloadSize]byte
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.writeWords(regReadMeasurement, commandFrame(regReadMeasurement)); err != nil {
		return p, err
	}
	if err := d.settle(d.opts.SettleDelay); err != nil {
		return p, err
	}
	r, err := d.readWords(regReadMeasurement, payloadSize)
	if err != nil {
		return p, err
	}
	for i := 0; i < payloadSize; i += 3 {
		if !common.ValidWord(r[i : i+3]) {
			return p, &CorruptPayloadError{Triplet: i / 3}
		}
	}
	copy(p[:], r)
	return p, nil
}
