// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30 provides a driver for the Sensirion SCD30 CO2, temperature
// and humidity sensor module over I²C.
//
// The SCD30 exposes 16-bit registers. A register is read by writing its
// address, waiting a few milliseconds for the module to prepare the answer,
// and then reading the response. Arguments written to the module are followed
// by a CRC8 byte, and every word of a measurement is followed by a CRC8 byte.
// Measurements are IEEE-754 single precision floats split across two words.
//
// The module measures continuously once started, and keeps measuring across
// power cycles, so most programs only need to poll with Dev.Poll.
//
// Refer to the Sensirion SCD30 interface description for more information.
package scd30
