// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package report formats SCD30 measurements for people: the summary line
// printed on each poll and the per-quantity text files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/pkg/errors"
)

// DefaultFahrenheitOffset is subtracted from every Fahrenheit value. It
// corrects the reading of the author's unit and is kept overridable.
const DefaultFahrenheitOffset = 5.0

// Names of the files written by Files.
const (
	CO2File         = "CO2.txt"
	HumidityFile    = "humidity.txt"
	TemperatureFile = "temp.txt"
)

// Field selects a quantity to report.
type Field int

const (
	FieldCO2 Field = 1 << iota
	FieldCelsius
	FieldFahrenheit
	FieldHumidity

	// DefaultFields is used when no field is selected.
	DefaultFields = FieldCO2 | FieldFahrenheit | FieldHumidity
)

// Sink receives every successfully decoded measurement.
type Sink interface {
	Publish(m scd30.Measurement) error
}

// Fahrenheit converts celsius and subtracts offset.
func Fahrenheit(celsius float32, offset float64) float64 {
	return float64(celsius)*1.8 + 32 - offset
}

// Formatter renders the selected fields of a measurement.
type Formatter struct {
	// Fields to render. 0 means DefaultFields.
	Fields Field
	// Truncate renders bare numbers without labels or units.
	Truncate bool
	// FahrenheitOffset is subtracted from Fahrenheit values.
	FahrenheitOffset float64
}

// NewFormatter returns a Formatter for the default fields using
// DefaultFahrenheitOffset.
func NewFormatter() *Formatter {
	return &Formatter{Fields: DefaultFields, FahrenheitOffset: DefaultFahrenheitOffset}
}

func (f *Formatter) fields() Field {
	if f.Fields == 0 {
		return DefaultFields
	}
	return f.Fields
}

// Parts returns one string per selected field, in the order CO2, Celsius,
// Fahrenheit, humidity.
func (f *Formatter) Parts(m scd30.Measurement) []string {
	fields := f.fields()
	var parts []string
	add := func(field Field, label, unit string, v float64) {
		if fields&field == 0 {
			return
		}
		if f.Truncate {
			parts = append(parts, fmt.Sprintf("%.2f", v))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %.2f%s", label, v, unit))
		}
	}
	add(FieldCO2, "CO2", "ppm", float64(m.CO2))
	add(FieldCelsius, "Temp", "C", float64(m.Temperature))
	add(FieldFahrenheit, "Temp", "F", Fahrenheit(m.Temperature, f.FahrenheitOffset))
	add(FieldHumidity, "Humidity", "rH", float64(m.Humidity))
	return parts
}

// Line returns the summary line, without a trailing newline.
func (f *Formatter) Line(m scd30.Measurement) string {
	sep := "   "
	if f.Truncate {
		sep = " "
	}
	return strings.Join(f.Parts(m), sep)
}

// Printer is a Sink that writes the summary line to W.
type Printer struct {
	W         io.Writer
	Formatter *Formatter
}

func (p *Printer) Publish(m scd30.Measurement) error {
	_, err := fmt.Fprintln(p.W, p.Formatter.Line(m))
	return errors.Wrap(err, "printing measurement")
}

// Files is a Sink that rewrites one text file per selected quantity in Dir.
// Each file holds a single number with two decimals. The temperature file
// holds Fahrenheit unless only Celsius is selected.
type Files struct {
	Dir       string
	Formatter *Formatter
}

func (f *Files) Publish(m scd30.Measurement) error {
	fields := f.Formatter.fields()
	if fields&FieldCO2 != 0 {
		if err := f.write(CO2File, float64(m.CO2)); err != nil {
			return err
		}
	}
	if fields&FieldHumidity != 0 {
		if err := f.write(HumidityFile, float64(m.Humidity)); err != nil {
			return err
		}
	}
	switch {
	case fields&FieldFahrenheit != 0:
		return f.write(TemperatureFile, Fahrenheit(m.Temperature, f.Formatter.FahrenheitOffset))
	case fields&FieldCelsius != 0:
		return f.write(TemperatureFile, float64(m.Temperature))
	}
	return nil
}

func (f *Files) write(name string, v float64) error {
	path := filepath.Join(f.Dir, name)
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%.2f", v)), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
