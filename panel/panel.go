// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel renders a measurement as an image sized for a small OLED, one
// field per line with a CO2 bar along the bottom edge, and saves it as a PNG
// snapshot.
package panel

import (
	"image"

	"github.com/GermanBionicSystems/scd30logger/report"
	"github.com/GermanBionicSystems/scd30logger/scd30"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Opts holds the rendering options.
type Opts struct {
	// W and H are the size of the rendered image in pixels.
	W, H int
	// FontSize in points.
	FontSize float64
	// FullScale is the CO2 concentration, in PPM, that fills the bar.
	FullScale float32
	// Formatter selects and formats the fields. Default is
	// report.NewFormatter().
	Formatter *report.Formatter
}

// DefaultOpts fits a 128x64 monochrome OLED.
var DefaultOpts = Opts{
	W:         128,
	H:         64,
	FontSize:  11,
	FullScale: 2000,
}

const barHeight = 4

// Panel renders measurements.
type Panel struct {
	opts Opts
	face font.Face
}

// New returns a Panel. The Opts can be nil.
func New(opts *Opts) (*Panel, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.W <= 0 || o.H <= barHeight {
		return nil, errors.Errorf("panel: invalid size %dx%d", o.W, o.H)
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultOpts.FontSize
	}
	if o.FullScale <= 0 {
		o.FullScale = DefaultOpts.FullScale
	}
	if o.Formatter == nil {
		o.Formatter = report.NewFormatter()
	}
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "panel: parsing font")
	}
	face := truetype.NewFace(f, &truetype.Options{Size: o.FontSize, Hinting: font.HintingFull})
	return &Panel{opts: o, face: face}, nil
}

// Render draws m on a new image of the configured size.
func (p *Panel) Render(m scd30.Measurement) image.Image {
	dc := gg.NewContext(p.opts.W, p.opts.H)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(p.face)
	lineHeight := dc.FontHeight() * 1.2
	for i, part := range p.opts.Formatter.Parts(m) {
		dc.DrawStringAnchored(part, 2, lineHeight*float64(i), 0, 1)
	}
	frac := float64(m.CO2 / p.opts.FullScale)
	if frac > 1 {
		frac = 1
	}
	if frac > 0 {
		dc.DrawRectangle(0, float64(p.opts.H-barHeight), frac*float64(p.opts.W), barHeight)
		dc.Fill()
	}
	return dc.Image()
}

// Snapshot is a report.Sink that saves each measurement as a PNG file.
type Snapshot struct {
	Path  string
	Panel *Panel
}

func (s *Snapshot) Publish(m scd30.Measurement) error {
	if err := gg.SavePNG(s.Path, s.Panel.Render(m)); err != nil {
		return errors.Wrapf(err, "panel: saving %s", s.Path)
	}
	return nil
}

var _ report.Sink = &Snapshot{}
