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
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"mangatrans/internal/domain"
)

// OverlayPage is one entry of a CBZ export.
type OverlayPage struct {
	Image image.Image
	Page  domain.Page
}

// CBZ packages page overlays as numbered PNG files plus a ComicInfo.xml
// manifest for reader compatibility.
func CBZ(w io.Writer, title string, pages []OverlayPage, opt OverlayOptions) error {
	zw := zip.NewWriter(w)
	pad := len(fmt.Sprint(len(pages)))
	buf := &bytes.Buffer{}
	for i, p := range pages {
		if p.Image == nil {
			return fmt.Errorf("page %d: image is nil", p.Page.PageIndex+1)
		}
		buf.Reset()
		if err := png.Encode(buf, Render(p.Image, p.Page.Markers, opt)); err != nil {
			return fmt.Errorf("encode page %d: %w", p.Page.PageIndex+1, err)
		}
		if err := addZipFile(zw, fmt.Sprintf("%0*d.png", pad, i+1), buf.Bytes()); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
	}
	if err := addZipFile(zw, "ComicInfo.xml", []byte(comicInfoXML(title, pages))); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// comicInfoXML lists progress per page in the summary. Manga reads right to left.
func comicInfoXML(title string, pages []OverlayPage) string {
	var all []domain.Marker
	for _, p := range pages {
		all = append(all, p.Page.Markers...)
	}
	counts := domain.StatusCounts(all)
	b := &strings.Builder{}
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<ComicInfo xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\">\n")
	fmt.Fprintf(b, "  <Title>%s</Title>\n", xmlEsc(title))
	fmt.Fprintf(b, "  <PageCount>%d</PageCount>\n", len(pages))
	fmt.Fprintf(b, "  <Summary>%d markers: %d empty, %d translated, %d proofed</Summary>\n",
		len(all), counts[domain.StatusEmpty], counts[domain.StatusTranslated], counts[domain.StatusProofed])
	b.WriteString("  <Manga>YesAndRightToLeft</Manga>\n")
	b.WriteString("</ComicInfo>\n")
	return b.String()
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "'", "&apos;")

func xmlEsc(s string) string { return xmlReplacer.Replace(s) }
