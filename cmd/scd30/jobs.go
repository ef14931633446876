// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/scd30logger/metrics"
	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// readyRetry is the wait between polls while a single run waits for the
// first measurement.
const readyRetry = time.Second

// PollJob runs one poll cycle: ready check, read, decode and publish to every
// sink. It implements cron.Job.
type PollJob struct {
	Dev     sensor
	Sinks   []report.Sink
	Metrics *metrics.Collector
	Log     *logrus.Logger
}

func (j *PollJob) Run() {
	_ = j.poll()
}

// poll returns scd30.ErrNotReady or the read error when no measurement was
// taken. Sink failures are logged and don't fail the cycle.
func (j *PollJob) poll() error {
	m, err := j.Dev.Poll()
	if errors.Is(err, scd30.ErrNotReady) {
		if j.Metrics != nil {
			j.Metrics.IncNotReady()
		}
		j.Log.Debug("No new measurement")
		return err
	}
	if err != nil {
		if j.Metrics != nil {
			j.Metrics.IncReadError()
		}
		j.Log.WithError(err).Warn("Failed to read measurement")
		return err
	}
	j.Log.WithFields(logrus.Fields{
		"co2":         m.CO2,
		"temperature": m.Temperature,
		"humidity":    m.Humidity,
	}).Debug("Measurement")
	for _, s := range j.Sinks {
		if err := s.Publish(m); err != nil {
			j.Log.WithError(err).Error("Failed to publish measurement")
		}
	}
	return nil
}

// runSingle polls until one measurement is published or timeout elapses.
func runSingle(j *PollJob, timeout time.Duration, clk clockwork.Clock) error {
	deadline := clk.Now().Add(timeout)
	for {
		err := j.poll()
		if err == nil {
			return nil
		}
		if !clk.Now().Before(deadline) {
			return errors.Wrapf(err, "no measurement after %s", timeout)
		}
		clk.Sleep(readyRetry)
	}
}

// newScheduler returns a cron scheduler that runs j every interval. A cycle
// that is still running when the next one is due makes it skip.
func newScheduler(j *PollJob, interval time.Duration) *cron.Cron {
	l := cron.PrintfLogger(j.Log)
	cr := cron.New(cron.WithLogger(l), cron.WithChain(cron.SkipIfStillRunning(l)))
	cr.Schedule(cron.Every(interval), j)
	return cr
}

// runContinuous polls every interval until the program is interrupted.
func runContinuous(j *PollJob, interval time.Duration) error {
	cr := newScheduler(j, interval)
	j.Log.Infof("Polling SCD30 every %s", interval)
	cr.Start()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	j.Log.Info("Cleaning up...")
	<-cr.Stop().Done()
	return nil
}
