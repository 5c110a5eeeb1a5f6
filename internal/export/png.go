/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mangatrans/internal/canvas"
	"mangatrans/internal/domain"
)

// OverlayOptions controls raster overlays.
// MaxWidth scales the page down (never up) when > 0. Zero values of the
// other fields get defaults.
type OverlayOptions struct {
	MaxWidth    int
	StrokeWidth int
	FillAlpha   uint8
	HideLabels  bool
}

func (o OverlayOptions) withDefaults() OverlayOptions {
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = 2
	}
	if o.FillAlpha == 0 {
		o.FillAlpha = 48
	}
	return o
}

// Render draws markers over a copy of img and returns it.
func Render(img image.Image, markers []domain.Marker, opt OverlayOptions) *image.RGBA {
	opt = opt.withDefaults()
	sb := img.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if opt.MaxWidth > 0 && w > opt.MaxWidth {
		h = int(math.Round(float64(h) * float64(opt.MaxWidth) / float64(w)))
		w = opt.MaxWidth
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == sb.Dx() && h == sb.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, sb.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, sb, xdraw.Src, nil)
	}

	labels := canvas.Labels(markers)
	for i, m := range markers {
		p := m.Position.Clamp()
		x0 := int(math.Round(p.X * float64(w)))
		y0 := int(math.Round(p.Y * float64(h)))
		x1 := int(math.Round((p.X+p.Width)*float64(w))) - 1
		y1 := int(math.Round((p.Y+p.Height)*float64(h))) - 1
		if x1 < x0 || y1 < y0 {
			continue
		}
		col := StatusColor(m.Status)
		fill := color.NRGBA{R: col.R, G: col.G, B: col.B, A: opt.FillAlpha}
		xdraw.Draw(dst, image.Rect(x0, y0, x1+1, y1+1), &image.Uniform{C: fill}, image.Point{}, xdraw.Over)
		for k := 0; k < opt.StrokeWidth && x0+k <= x1-k && y0+k <= y1-k; k++ {
			strokeRect(dst, x0+k, y0+k, x1-k, y1-k, col)
		}
		if !opt.HideLabels {
			drawLabel(dst, x0, y0, labels[i], col)
		}
	}
	return dst
}

// OverlayPNG renders and encodes a page overlay.
func OverlayPNG(w io.Writer, img image.Image, markers []domain.Marker, opt OverlayOptions) error {
	if img == nil {
		return fmt.Errorf("overlay: image is nil")
	}
	if err := png.Encode(w, Render(img, markers, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// StatusColor is the outline color used for a marker status.
func StatusColor(s domain.Status) color.RGBA {
	switch s {
	case domain.StatusTranslated:
		return color.RGBA{R: 230, G: 150, B: 20, A: 255}
	case domain.StatusProofed:
		return color.RGBA{R: 40, G: 160, B: 70, A: 255}
	}
	return color.RGBA{R: 210, G: 50, B: 50, A: 255}
}

func statusRGB(s domain.Status) (int, int, int) {
	c := StatusColor(s)
	return int(c.R), int(c.G), int(c.B)
}

// drawLabel writes text on a filled tab at the box's top-left corner.
func drawLabel(dst *image.RGBA, x, y int, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.White, Face: face}
	tw := d.MeasureString(text).Ceil()
	fillRect(dst, x, y, x+tw+3, y+face.Height+1, bg)
	d.Dot = fixed.P(x+2, y+face.Ascent+1)
	d.DrawString(text)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
