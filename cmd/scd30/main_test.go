// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"flag"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/scd30logger/common"
	"github.com/GermanBionicSystems/scd30logger/console"
	"github.com/GermanBionicSystems/scd30logger/metrics"
	"github.com/GermanBionicSystems/scd30logger/panel"
	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr = scd30.SensorAddress

var (
	readyOps = []i2ctest.IO{
		{Addr: addr, W: []byte{0x02, 0x02}},
		{Addr: addr, R: []byte{0x00, 0x01}},
	}
	notReadyOps = []i2ctest.IO{
		{Addr: addr, W: []byte{0x02, 0x02}},
		{Addr: addr, R: []byte{0x00, 0x00}},
	}
)

func measurementOps(co2, temperature, humidity float32) []i2ctest.IO {
	p := make([]byte, 0, 18)
	for _, v := range []float32{co2, temperature, humidity} {
		bits := math.Float32bits(v)
		p = common.AppendWord(p, uint16(bits>>16))
		p = common.AppendWord(p, uint16(bits))
	}
	return []i2ctest.IO{
		{Addr: addr, W: []byte{0x03, 0x00}},
		{Addr: addr, R: p},
	}
}

func concat(ops ...[]i2ctest.IO) []i2ctest.IO {
	var all []i2ctest.IO
	for _, o := range ops {
		all = append(all, o...)
	}
	return all
}

func getDev(t *testing.T, allowCalibration bool, ops ...i2ctest.IO) (*scd30.Dev, *i2ctest.Playback) {
	t.Helper()
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := scd30.NewI2C(bus, addr, &scd30.Opts{AllowCalibrationChange: allowCalibration})
	if err != nil {
		t.Fatal(err)
	}
	return dev, bus
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// sleepingClock is a fake clock whose Sleep advances time right away.
type sleepingClock struct {
	clockwork.Clock
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func (c *sleepingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *sleepingClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps++
}

func TestParseArgsDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	cfg, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.interval != 5*time.Second || cfg.timeout != 30*time.Second {
		t.Errorf("unexpected durations %s %s", cfg.interval, cfg.timeout)
	}
	if cfg.fahrenheitOffset != report.DefaultFahrenheitOffset {
		t.Errorf("fahrenheit offset %g expected %g", cfg.fahrenheitOffset, report.DefaultFahrenheitOffset)
	}
	if cfg.continuous || cfg.files || cfg.allowCalibration || cfg.configuring() {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.logLevel != "info" || cfg.dir != "." {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.fields() != 0 {
		t.Errorf("fields %d expected 0", cfg.fields())
	}
}

func TestParseArgs(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := parseArgs([]string{"-c", "-T", "-u", "-F", "-o", "-dir", "/tmp/x", "-fahrenheit-offset", "0", "-asc", "off"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if want := report.FieldCO2 | report.FieldFahrenheit; cfg.fields() != want {
		t.Errorf("fields %d expected %d", cfg.fields(), want)
	}
	f := cfg.formatter()
	if !f.Truncate || f.FahrenheitOffset != 0 {
		t.Errorf("unexpected formatter %+v", f)
	}
	if !cfg.files || !cfg.continuous || cfg.dir != "/tmp/x" || !cfg.configuring() {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.logLevel != "debug" {
		t.Errorf("log level %q expected debug from LOG_LEVEL", cfg.logLevel)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := [][]string{
		{"-asc", "maybe"},
		{"extra"},
		{"-interval", "10ms"},
		{"-unknown"},
	}
	for _, args := range tests {
		if _, err := parseArgs(args, io.Discard); err == nil {
			t.Errorf("parseArgs(%q) succeeded", args)
		}
	}
}

func TestHelp(t *testing.T) {
	var buf bytes.Buffer
	_, err := parseArgs([]string{"-h"}, &buf)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("parseArgs(-h) error %v expected flag.ErrHelp", err)
	}
	for _, want := range []string{"-r\tcalibrate CO2 sensor", "-F\toutput to files INSTEAD of stdout", "-o\tcontinuous output", "-fahrenheit-offset"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help text missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunCalibration(t *testing.T) {
	dev, bus := getDev(t, true,
		i2ctest.IO{Addr: addr, W: []byte{0x52, 0x04, 0x03, 0xe8, 0xd4}},
		i2ctest.IO{Addr: addr, W: []byte{0x52, 0x04}},
		i2ctest.IO{Addr: addr, R: []byte{0x03, 0xe8}})
	var buf bytes.Buffer
	if err := runCalibration(dev, 1000, &buf); err != nil {
		t.Fatal(err)
	}
	if want := "Force recalibration completed!\nCO2 calibration reference: 1000ppm\n"; buf.String() != want {
		t.Errorf("output %q expected %q", buf.String(), want)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRunCalibrationNoReference(t *testing.T) {
	dev, _ := getDev(t, true,
		i2ctest.IO{Addr: addr, W: []byte{0x52, 0x04, 0x03, 0xe8, 0xd4}},
		i2ctest.IO{Addr: addr, W: []byte{0x52, 0x04}},
		i2ctest.IO{Addr: addr, R: []byte{0x00, 0x00}})
	var buf bytes.Buffer
	if err := runCalibration(dev, 1000, &buf); err != nil {
		t.Fatal(err)
	}
	if want := "Force recalibration completed!\nCO2 calibration reference: N/A\n"; buf.String() != want {
		t.Errorf("output %q expected %q", buf.String(), want)
	}
}

func TestRunCalibrationRefused(t *testing.T) {
	tests := []struct {
		allow bool
		ppm   int
	}{
		{allow: false, ppm: 1000},
		{allow: true, ppm: 399},
		{allow: true, ppm: 2001},
		{allow: true, ppm: -5},
		{allow: true, ppm: 70000},
	}
	for _, test := range tests {
		dev, bus := getDev(t, test.allow)
		var buf bytes.Buffer
		if err := runCalibration(dev, test.ppm, &buf); err == nil {
			t.Errorf("runCalibration(%d) allowed=%t succeeded", test.ppm, test.allow)
		}
		if buf.String() != "Force recalibration failed\n" {
			t.Errorf("output %q", buf.String())
		}
		if err := bus.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunConfigure(t *testing.T) {
	dev, bus := getDev(t, false,
		i2ctest.IO{Addr: addr, W: []byte{0xd3, 0x04}},
		i2ctest.IO{Addr: addr, W: []byte{0x53, 0x06, 0x00, 0x01, 0xb0}},
		i2ctest.IO{Addr: addr, W: []byte{0x46, 0x00, 0x00, 0x3c, 0x39}})
	var buf bytes.Buffer
	cfg := &config{reset: true, asc: "on", setInterval: 60}
	if err := runConfigure(dev, cfg, &buf); err != nil {
		t.Fatal(err)
	}
	want := "Soft reset completed\nAutomatic self calibration: on\nMeasurement interval: 60s\n"
	if buf.String() != want {
		t.Errorf("output %q expected %q", buf.String(), want)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRunConfigureInvalidInterval(t *testing.T) {
	for _, seconds := range []int{1, 1801, -1} {
		dev, bus := getDev(t, false)
		if err := runConfigure(dev, &config{setInterval: seconds}, io.Discard); err == nil {
			t.Errorf("runConfigure(-set-interval %d) succeeded", seconds)
		}
		if err := bus.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPrintInfo(t *testing.T) {
	dev, bus := getDev(t, false,
		i2ctest.IO{Addr: addr, W: []byte{0x46, 0x00}},
		i2ctest.IO{Addr: addr, R: []byte{0x00, 0x02}},
		i2ctest.IO{Addr: addr, W: []byte{0x53, 0x06}},
		i2ctest.IO{Addr: addr, R: []byte{0x00, 0x01}},
		i2ctest.IO{Addr: addr, W: []byte{0x52, 0x04}},
		i2ctest.IO{Addr: addr, R: []byte{0x01, 0x90}})
	var buf bytes.Buffer
	if err := printInfo(dev, &buf); err != nil {
		t.Fatal(err)
	}
	want := "Measurement interval: 2s\nAutomatic self calibration: true\nCO2 calibration reference: 400ppm\n"
	if buf.String() != want {
		t.Errorf("output %q expected %q", buf.String(), want)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollJob(t *testing.T) {
	dev, bus := getDev(t, false, concat(readyOps, measurementOps(612.75, 21.5, 38), notReadyOps)...)
	collector, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	j := &PollJob{
		Dev:     dev,
		Sinks:   []report.Sink{&report.Printer{W: &buf, Formatter: report.NewFormatter()}, collector},
		Metrics: collector,
		Log:     testLogger(),
	}
	if err := j.poll(); err != nil {
		t.Fatal(err)
	}
	if want := "CO2: 612.75ppm   Temp: 65.70F   Humidity: 38.00rH\n"; buf.String() != want {
		t.Errorf("output %q expected %q", buf.String(), want)
	}
	if !collector.Healthy() {
		t.Error("collector not updated")
	}
	if err := j.poll(); !errors.Is(err, scd30.ErrNotReady) {
		t.Errorf("poll() error %v expected ErrNotReady", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollJobCorrupt(t *testing.T) {
	ops := measurementOps(612.75, 21.5, 38)
	ops[1].R[5] ^= 0xff
	dev, _ := getDev(t, false, concat(readyOps, ops)...)
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	j := &PollJob{
		Dev:     dev,
		Sinks:   []report.Sink{&report.Printer{W: &buf, Formatter: report.NewFormatter()}},
		Metrics: collector,
		Log:     testLogger(),
	}
	err = j.poll()
	var corrupt *scd30.CorruptPayloadError
	if !errors.As(err, &corrupt) {
		t.Fatalf("poll() error %v expected *CorruptPayloadError", err)
	}
	if buf.Len() != 0 {
		t.Errorf("published %q from a corrupt payload", buf.String())
	}
	want := `
# HELP scd30_read_errors_total Total number of failed sensor reads
# TYPE scd30_read_errors_total counter
scd30_read_errors_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "scd30_read_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestRunSingle(t *testing.T) {
	dev, bus := getDev(t, false, concat(notReadyOps, notReadyOps, readyOps, measurementOps(450, 20, 50))...)
	var buf bytes.Buffer
	j := &PollJob{
		Dev:   dev,
		Sinks: []report.Sink{&report.Printer{W: &buf, Formatter: &report.Formatter{Fields: report.FieldCO2, Truncate: true}}},
		Log:   testLogger(),
	}
	clk := &sleepingClock{now: time.Unix(0, 0)}
	if err := runSingle(j, 30*time.Second, clk); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "450.00\n" {
		t.Errorf("output %q", buf.String())
	}
	if clk.sleeps != 2 {
		t.Errorf("%d retries expected 2", clk.sleeps)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRunSingleTimeout(t *testing.T) {
	dev, _ := getDev(t, false, concat(notReadyOps, notReadyOps, notReadyOps)...)
	j := &PollJob{Dev: dev, Log: testLogger()}
	clk := &sleepingClock{now: time.Unix(0, 0)}
	err := runSingle(j, 2*readyRetry, clk)
	if !errors.Is(err, scd30.ErrNotReady) {
		t.Errorf("runSingle() error %v expected to wrap ErrNotReady", err)
	}
	if clk.sleeps != 2 {
		t.Errorf("%d retries expected 2", clk.sleeps)
	}
}

func TestBuildSinks(t *testing.T) {
	collector, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	kinds := func(sinks []report.Sink) []string {
		var out []string
		for _, s := range sinks {
			switch s.(type) {
			case *report.Files:
				out = append(out, "files")
			case *report.Printer:
				out = append(out, "printer")
			case *console.Dev:
				out = append(out, "console")
			case *panel.Snapshot:
				out = append(out, "png")
			case *metrics.Collector:
				out = append(out, "metrics")
			}
		}
		return out
	}
	tests := []struct {
		cfg       config
		collector *metrics.Collector
		want      []string
	}{
		{cfg: config{}, want: []string{"printer"}},
		{cfg: config{gauge: 20}, want: []string{"console"}},
		{cfg: config{gauge: 20, truncate: true}, want: []string{"printer"}},
		{cfg: config{files: true, dir: t.TempDir()}, want: []string{"files"}},
		{cfg: config{png: "/tmp/scd30.png"}, collector: collector, want: []string{"printer", "png", "metrics"}},
	}
	for _, test := range tests {
		sinks, err := buildSinks(&test.cfg, test.collector, io.Discard)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(kinds(sinks), test.want); diff != "" {
			t.Errorf("buildSinks(%+v) (-got +want):\n%s", test.cfg, diff)
		}
	}
}

func TestNewScheduler(t *testing.T) {
	dev, _ := getDev(t, false)
	cr := newScheduler(&PollJob{Dev: dev, Log: testLogger()}, 5*time.Second)
	entries := cr.Entries()
	if len(entries) != 1 {
		t.Fatalf("%d entries expected 1", len(entries))
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if next := entries[0].Schedule.Next(now); next.Sub(now) != 5*time.Second {
		t.Errorf("next run in %s expected 5s", next.Sub(now))
	}
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn", io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Errorf("level %s expected warn", l.GetLevel())
	}
	if _, err := newLogger("loud", io.Discard); err == nil {
		t.Error("newLogger() accepted an invalid level")
	}
}
