// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/scd30logger/common"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

type advancingClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

// testClock is a fake clock whose Sleep advances time right away. The next
// earlyWakes calls to Sleep only advance half of the requested duration, like
// a sleep interrupted by a signal.
type testClock struct {
	advancingClock
	mu         sync.Mutex
	sleeps     []time.Duration
	earlyWakes int
}

func newTestClock() *testClock {
	return &testClock{advancingClock: clockwork.NewFakeClock()}
}

func (c *testClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	if c.earlyWakes > 0 {
		c.earlyWakes--
		d /= 2
	}
	c.mu.Unlock()
	c.Advance(d)
}

func (c *testClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// failingBus fails every read or write transaction, depending on the flags,
// and otherwise plays back Ops.
type failingBus struct {
	i2ctest.Playback
	failReads  bool
	failWrites bool
}

func (f *failingBus) Tx(addr uint16, w, r []byte) error {
	if f.failReads && len(r) > 0 {
		return errors.New("remote I/O error")
	}
	if f.failWrites && len(w) > 0 {
		return errors.New("remote I/O error")
	}
	return f.Playback.Tx(addr, w, r)
}

// getDev returns a device backed by a playback bus of ops and a test clock.
func getDev(t *testing.T, allowCalibration bool, ops ...i2ctest.IO) (*Dev, *i2ctest.Playback, *testClock) {
	t.Helper()
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	clk := newTestClock()
	dev, err := NewI2C(bus, SensorAddress, &Opts{AllowCalibrationChange: allowCalibration, Clock: clk})
	if err != nil {
		t.Fatal(err)
	}
	return dev, bus, clk
}

// makePayload encodes three floats the way the sensor does, with valid CRCs.
func makePayload(co2, temperature, humidity float32) []byte {
	p := make([]byte, 0, payloadSize)
	for _, v := range []float32{co2, temperature, humidity} {
		bits := math.Float32bits(v)
		p = common.AppendWord(p, uint16(bits>>16))
		p = common.AppendWord(p, uint16(bits))
	}
	return p
}

func readRegisterOps(c command, value ...byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: SensorAddress, W: []byte{byte(c >> 8), byte(c)}},
		{Addr: SensorAddress, R: value},
	}
}

func readMeasurementOps(payload []byte) []i2ctest.IO {
	return readRegisterOps(regReadMeasurement, payload...)
}
