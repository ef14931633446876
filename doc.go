// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30logger reads a Sensirion SCD30 CO2, temperature and humidity
// sensor over I²C and reports its measurements.
//
// The driver lives in package scd30. Package report formats measurements as
// text lines and files, console renders a colored terminal gauge, panel draws
// a small display image and metrics exports Prometheus gauges. The scd30
// command ties them together.
package scd30logger
