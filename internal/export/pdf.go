/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a project's translation work for hand-off: a
// per-page translation script as PDF, page images with their markers drawn
// on top as PNG, and a CBZ archive of those overlays.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"mangatrans/internal/canvas"
	"mangatrans/internal/domain"
)

// ScriptOptions controls the script PDF.
type ScriptOptions struct {
	// FontFile is an optional UTF-8 TrueType font. Without it the core
	// Helvetica font is used and text is translated to cp1252.
	FontFile string
	FontSize float64
	// SkipEmpty leaves out markers that have no text at all.
	SkipEmpty bool
	Author    string
}

const scriptFamily = "script"

// ScriptPDF writes one section per page listing every marker with its
// derived label, status and text. Proofed markers print the frozen proof
// text; the others print the current translation.
func ScriptPDF(w io.Writer, title string, pages []domain.Page, opt ScriptOptions) error {
	size := opt.FontSize
	if size <= 0 {
		size = 11
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opt.FontFile != "" {
		pdf.AddUTF8Font(scriptFamily, "", opt.FontFile)
		pdf.AddUTF8Font(scriptFamily, "B", opt.FontFile)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font %s: %w", opt.FontFile, err)
		}
		family = scriptFamily
		tr = func(s string) string { return s }
	}
	pdf.SetTitle(title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(family, "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(family, "B", size+7)
	pdf.MultiCell(0, (size+7)*0.5, tr(title), "", "L", false)
	pdf.Ln(4)

	for _, pg := range pages {
		heading := fmt.Sprintf("Page %d", pg.PageIndex+1)
		if pg.Title != "" {
			heading += " - " + pg.Title
		}
		pdf.SetFont(family, "B", size+2)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, size*0.6, tr(heading), "B", 1, "L", false, 0, "")
		pdf.Ln(2)

		labels := canvas.Labels(pg.Markers)
		written := 0
		for i, m := range pg.Markers {
			text := ScriptText(m)
			if opt.SkipEmpty && text == "" {
				continue
			}
			r, g, b := statusRGB(m.Status)
			pdf.SetFont(family, "B", size)
			pdf.SetTextColor(r, g, b)
			pdf.CellFormat(28, size*0.5, labels[i], "", 0, "L", false, 0, "")
			pdf.SetFont(family, "", size-2)
			pdf.CellFormat(22, size*0.5, string(m.Status), "", 0, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
			pdf.SetFont(family, "", size)
			if text == "" {
				text = "-"
			}
			pdf.MultiCell(0, size*0.5, tr(text), "", "L", false)
			pdf.Ln(1)
			written++
		}
		if written == 0 {
			pdf.SetFont(family, "", size-1)
			pdf.SetTextColor(120, 120, 120)
			pdf.CellFormat(0, size*0.5, "no markers", "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ScriptText is the text a marker contributes to the script.
func ScriptText(m domain.Marker) string {
	if m.Status == domain.StatusProofed && strings.TrimSpace(m.ProofText) != "" {
		return strings.TrimSpace(m.ProofText)
	}
	return strings.TrimSpace(m.TranslationText)
}
