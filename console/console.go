// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console prints measurements to the terminal: a 1D CO2 gauge drawn
// with ANSI color codes, followed by the summary line.
//
// Dev also implements display.Drawer; Publish draws the gauge through it, and
// anything else that draws on a one row strip can replace the gauge.
package console

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Gauge colors, by CO2 concentration.
var (
	colorGood     = color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	colorFair     = color.NRGBA{0xe0, 0xe0, 0x00, 0xff}
	colorPoor     = color.NRGBA{0xff, 0x80, 0x00, 0xff}
	colorBad      = color.NRGBA{0xff, 0x00, 0x00, 0xff}
	colorUnlit    = color.NRGBA{0x30, 0x30, 0x30, 0xff}
	levelCeilings = []struct {
		ppm float32
		c   color.NRGBA
	}{
		{800, colorGood},
		{1200, colorFair},
		{2000, colorPoor},
	}
)

// Opts represents the options available for the console.
type Opts struct {
	// X is the width of the gauge in characters. 0 or less disables the
	// gauge.
	X       int
	Palette *ansi256.Palette
	// FullScale is the CO2 concentration, in PPM, that fills the gauge.
	// Default is 2000.
	FullScale float32
	// Formatter renders the summary line. Default is report.NewFormatter().
	Formatter *report.Formatter
	// W is where to print. Default is a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev prints to the console.
type Dev struct {
	w         io.Writer
	palette   ansi256.Palette
	fullScale float32
	f         *report.Formatter

	strip *image.NRGBA
	buf   bytes.Buffer
}

// New returns a Dev that prints at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	f := opts.Formatter
	if f == nil {
		f = report.NewFormatter()
	}
	fs := opts.FullScale
	if fs <= 0 {
		fs = 2000
	}
	x := opts.X
	if x < 0 {
		x = 0
	}
	return &Dev{
		w:         w,
		palette:   *p,
		fullScale: fs,
		f:         f,
		strip:     image.NewNRGBA(image.Rect(0, 0, x, 1)),
	}
}

func (d *Dev) String() string {
	return "Console"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

// Publish implements report.Sink. It draws the gauge for the CO2
// concentration and prints the summary line after it.
func (d *Dev) Publish(m scd30.Measurement) error {
	d.blit(d.Bounds(), d.gauge(m.CO2), image.Point{})
	return d.refresh(d.f.Line(m) + "\n")
}

// gauge returns a strip as wide as the console gauge, lit proportionally to
// ppm in the color of its level.
func (d *Dev) gauge(ppm float32) *image.NRGBA {
	b := d.Bounds()
	img := image.NewNRGBA(b)
	lit := 0
	if b.Dx() > 0 && ppm > 0 {
		lit = int(ppm/d.fullScale*float32(b.Dx()) + 0.5)
		if lit > b.Dx() {
			lit = b.Dx()
		}
		if lit == 0 {
			lit = 1
		}
	}
	c := levelColor(ppm)
	for x := 0; x < b.Dx(); x++ {
		if x < lit {
			img.SetNRGBA(x, 0, c)
		} else {
			img.SetNRGBA(x, 0, colorUnlit)
		}
	}
	return img
}

// levelColor returns the gauge color for a CO2 concentration.
func levelColor(ppm float32) color.NRGBA {
	for _, l := range levelCeilings {
		if ppm < l.ppm {
			return l.c
		}
	}
	return colorBad
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer. The gauge is one row high.
func (d *Dev) Bounds() image.Rectangle {
	return d.strip.Bounds()
}

// Draw implements display.Drawer. It replaces the gauge without printing a
// summary line.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.blit(r, src, sp)
	return d.refresh("")
}

func (d *Dev) blit(r image.Rectangle, src image.Image, sp image.Point) {
	draw.Draw(d.strip, r.Intersect(d.Bounds()), src, sp, draw.Src)
}

// refresh redraws the gauge on the current line followed by suffix.
func (d *Dev) refresh(suffix string) error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for x := 0; x < d.strip.Rect.Dx(); x++ {
		_, _ = io.WriteString(&d.buf, d.palette.Block(d.strip.NRGBAAt(x, 0)))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, _ = d.buf.WriteString(suffix)
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ report.Sink = &Dev{}
var _ fmt.Stringer = &Dev{}
