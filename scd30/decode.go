// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Measurement is a single reading from the sensor, as reported by it.
type Measurement struct {
	// CO2 concentration in parts per million.
	CO2 float32
	// Relative humidity in percent.
	Humidity float32
	// Temperature in degrees Celsius.
	Temperature float32
}

// Env converts the temperature and humidity to periph units. Pressure is not
// measured and is left at 0.
func (m Measurement) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(m.Temperature)*float64(physic.Celsius)),
		Humidity:    physic.RelativeHumidity(float64(m.Humidity) * float64(physic.PercentRH)),
	}
}

// Return the sensor readings in string format.
func (m Measurement) String() string {
	e := m.Env()
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %.2f PPM", e.Temperature.String(), e.Humidity.String(), m.CO2)
}

// decode unpacks the three floats of a payload whose CRCs were already
// verified.
func decode(p *[payloadSize]byte) Measurement {
	return Measurement{
		CO2:         wordsToFloat(p, 0),
		Temperature: wordsToFloat(p, 6),
		Humidity:    wordsToFloat(p, 12),
	}
}

// wordsToFloat joins the words at off and off+3, skipping the CRC between
// them, into the bits of a float32. The first byte is the most significant.
func wordsToFloat(p *[payloadSize]byte, off int) float32 {
	bits := uint32(p[off])<<24 | uint32(p[off+1])<<16 | uint32(p[off+3])<<8 | uint32(p[off+4])
	return math.Float32frombits(bits)
}
