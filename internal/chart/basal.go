// Package chart renders hourly basal profiles as images and terminal sparklines
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	width   = 960
	height  = 420
	marginL = 64
	marginR = 24
	marginT = 48
	marginB = 48

	colorBackground = "#111827"
	colorGrid       = "#374151"
	colorLabel      = "#d1d5db"
	colorSource     = "#9ca3af"
	colorTuned      = "#4ade80"
)

// ErrEmptyProfile is returned when every hourly rate is zero
var ErrEmptyProfile = errors.New("basal profile is empty")

// RenderBasal draws the tuned hourly basal over the source basal as a PNG.
// The source series may be all zero, in which case only the tuned series is drawn.
func RenderBasal(tuned, source [24]float64, title string) ([]byte, error) {
	maxRate := 0.0
	for h := 0; h < 24; h++ {
		for _, v := range []float64{tuned[h], source[h]} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("invalid basal rate %v at hour %d", v, h)
			}
			maxRate = math.Max(maxRate, v)
		}
	}
	if maxRate == 0 {
		return nil, ErrEmptyProfile
	}
	// Headroom above the highest rate, rounded up to a tenth
	top := math.Ceil(maxRate*11) / 10

	dc := gg.NewContext(width, height)
	setHex(dc, colorBackground)
	dc.Clear()

	plotW := float64(width - marginL - marginR)
	plotH := float64(height - marginT - marginB)
	x := func(hour float64) float64 { return marginL + hour/24*plotW }
	y := func(rate float64) float64 { return marginT + plotH - rate/top*plotH }

	labels := loadFont(dc, 13) == nil

	// Grid and axis labels
	dc.SetLineWidth(1)
	for i := 0; i <= 4; i++ {
		rate := top * float64(i) / 4
		setHex(dc, colorGrid)
		dc.DrawLine(marginL, y(rate), marginL+plotW, y(rate))
		dc.Stroke()
		if labels {
			setHex(dc, colorLabel)
			dc.DrawStringAnchored(fmt.Sprintf("%.2f", rate), marginL-8, y(rate), 1, 0.5)
		}
	}
	for h := 0; h <= 24; h += 3 {
		setHex(dc, colorGrid)
		dc.DrawLine(x(float64(h)), marginT, x(float64(h)), marginT+plotH)
		dc.Stroke()
		if labels {
			setHex(dc, colorLabel)
			dc.DrawStringAnchored(fmt.Sprintf("%02d:00", h%24), x(float64(h)), marginT+plotH+18, 0.5, 0.5)
		}
	}

	if hasRates(source) {
		drawSteps(dc, source, x, y, colorSource, 2)
	}
	drawSteps(dc, tuned, x, y, colorTuned, 3)

	if labels && title != "" {
		if err := loadFont(dc, 18); err == nil {
			setHex(dc, colorLabel)
			dc.DrawStringAnchored(title, width/2, marginT/2, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf.Bytes(), nil
}

// drawSteps strokes a piecewise-constant line, one step per hour
func drawSteps(dc *gg.Context, rates [24]float64, x, y func(float64) float64, hex string, lineWidth float64) {
	setHex(dc, hex)
	dc.SetLineWidth(lineWidth)
	dc.NewSubPath()
	dc.MoveTo(x(0), y(rates[0]))
	for h := 0; h < 24; h++ {
		if h > 0 {
			dc.LineTo(x(float64(h)), y(rates[h]))
		}
		dc.LineTo(x(float64(h+1)), y(rates[h]))
	}
	dc.Stroke()
}

func hasRates(rates [24]float64) bool {
	for _, v := range rates {
		if v != 0 {
			return true
		}
	}
	return false
}

// loadFont helper to load font safely
func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	return nil
}

func setHex(dc *gg.Context, hex string) {
	r, g, b := parseHexColor(hex)
	dc.SetColor(color.RGBA{R: r, G: g, B: b, A: 0xff})
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}
