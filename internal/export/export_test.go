/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"mangatrans/internal/domain"
)

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func sampleMarkers() []domain.Marker {
	return []domain.Marker{
		{ID: "m1", Category: domain.CategoryInside, Status: domain.StatusProofed, TranslationText: "Hi", ProofText: "Hello!",
			Position: domain.Position{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}},
		{ID: "m2", Category: domain.CategoryOutside, Status: domain.StatusEmpty,
			Position: domain.Position{X: 0.7, Y: 0.6, Width: 0.2, Height: 0.3}},
	}
}

func TestScriptPDF(t *testing.T) {
	pages := []domain.Page{
		{PageIndex: 0, PageCount: 2, Title: "Opening", Markers: sampleMarkers()},
		{PageIndex: 1, PageCount: 2},
	}
	var buf bytes.Buffer
	if err := ScriptPDF(&buf, "Kapitel 1: Übersetzung", pages, ScriptOptions{Author: "team"}); err != nil {
		t.Fatalf("script pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a pdf: %q", buf.Bytes()[:8])
	}
}

func TestScriptPDFMissingFont(t *testing.T) {
	err := ScriptPDF(io.Discard, "x", nil, ScriptOptions{FontFile: "/does/not/exist.ttf"})
	if err == nil {
		t.Fatalf("expected font error")
	}
}

func TestScriptText(t *testing.T) {
	ms := sampleMarkers()
	if got := ScriptText(ms[0]); got != "Hello!" {
		t.Fatalf("proofed marker text = %q", got)
	}
	m := domain.Marker{Status: domain.StatusTranslated, TranslationText: "  Yo ", ProofText: "old"}
	if got := ScriptText(m); got != "Yo" {
		t.Fatalf("translated marker text = %q", got)
	}
	if got := ScriptText(ms[1]); got != "" {
		t.Fatalf("empty marker text = %q", got)
	}
}

func TestRenderDrawsStatusColoredBoxes(t *testing.T) {
	out := Render(whitePage(200, 100), sampleMarkers(), OverlayOptions{})
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 100 {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	proofed := StatusColor(domain.StatusProofed)
	if got := out.RGBAAt(20, 50); got != proofed {
		t.Fatalf("left edge = %v, want %v", got, proofed)
	}
	if got := out.RGBAAt(21, 50); got != proofed {
		t.Fatalf("second stroke pixel = %v, want %v", got, proofed)
	}
	inside := out.RGBAAt(100, 40)
	if inside == proofed || inside == (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("fill not blended: %v", inside)
	}
	if got := out.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background changed: %v", got)
	}
	empty := StatusColor(domain.StatusEmpty)
	if got := out.RGBAAt(179, 80); got != empty {
		t.Fatalf("right edge of empty marker = %v, want %v", got, empty)
	}
}

func TestOverlayPNGScalesDown(t *testing.T) {
	var buf bytes.Buffer
	if err := OverlayPNG(&buf, whitePage(400, 300), sampleMarkers(), OverlayOptions{MaxWidth: 100, HideLabels: true}); err != nil {
		t.Fatalf("overlay: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 75 {
		t.Fatalf("scaled size = %v", b)
	}
	if err := OverlayPNG(io.Discard, nil, nil, OverlayOptions{}); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestCBZ(t *testing.T) {
	pages := []OverlayPage{
		{Image: whitePage(60, 80), Page: domain.Page{PageIndex: 0, Markers: sampleMarkers()}},
		{Image: whitePage(60, 80), Page: domain.Page{PageIndex: 1}},
	}
	var buf bytes.Buffer
	if err := CBZ(&buf, "Tom & Jerry", pages, OverlayOptions{}); err != nil {
		t.Fatalf("cbz: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	var info string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "ComicInfo.xml" {
			rc, _ := f.Open()
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			info = string(b)
		}
	}
	if strings.Join(names, ",") != "1.png,2.png,ComicInfo.xml" {
		t.Fatalf("entries = %v", names)
	}
	if !strings.Contains(info, "<Title>Tom &amp; Jerry</Title>") || !strings.Contains(info, "1 empty, 0 translated, 1 proofed") {
		t.Fatalf("manifest = %s", info)
	}
}
