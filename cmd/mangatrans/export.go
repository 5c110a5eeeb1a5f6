/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"mangatrans/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export translation scripts and annotated pages",
	}
	cmd.AddCommand(newExportPDFCmd(a), newExportPNGCmd(a), newExportCBZCmd(a))
	return cmd
}

func newExportPDFCmd(a *app) *cobra.Command {
	var opt export.ScriptOptions
	cmd := &cobra.Command{
		Use:   "pdf <projectDir> <out.pdf>",
		Short: "Write the translation script of every page as PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proj, err := a.project(ctx, args[0])
			if err != nil {
				return err
			}
			pages, err := proj.Pages(ctx)
			if err != nil {
				return err
			}
			return writeOut(cmd, args[1], func(f *os.File) error {
				return export.ScriptPDF(f, proj.Title(), pages, opt)
			})
		},
	}
	cmd.Flags().StringVar(&opt.FontFile, "font", "", "UTF-8 TrueType font for non-Latin text")
	cmd.Flags().Float64Var(&opt.FontSize, "font-size", 11, "body font size in points")
	cmd.Flags().BoolVar(&opt.SkipEmpty, "skip-empty", false, "leave out markers without text")
	cmd.Flags().StringVar(&opt.Author, "author", "", "document author")
	return cmd
}

func overlayFlags(cmd *cobra.Command, opt *export.OverlayOptions) {
	cmd.Flags().IntVar(&opt.MaxWidth, "max-width", 0, "scale pages down to this width in pixels")
	cmd.Flags().IntVar(&opt.StrokeWidth, "stroke", 2, "marker outline width in pixels")
	cmd.Flags().BoolVar(&opt.HideLabels, "no-labels", false, "do not draw marker labels")
}

func newExportPNGCmd(a *app) *cobra.Command {
	var opt export.OverlayOptions
	cmd := &cobra.Command{
		Use:   "png <projectDir> <page> <out.png>",
		Short: "Draw the markers of one page (1-based) over its image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("page must be a number: %w", err)
			}
			ctx := cmd.Context()
			proj, err := a.project(ctx, args[0])
			if err != nil {
				return err
			}
			page, err := proj.Page(ctx, n-1)
			if err != nil {
				return err
			}
			img, err := proj.LoadImage(n - 1)
			if err != nil {
				return err
			}
			return writeOut(cmd, args[2], func(f *os.File) error {
				return export.OverlayPNG(f, img, page.Markers, opt)
			})
		},
	}
	overlayFlags(cmd, &opt)
	return cmd
}

func newExportCBZCmd(a *app) *cobra.Command {
	var opt export.OverlayOptions
	cmd := &cobra.Command{
		Use:   "cbz <projectDir> <out.cbz>",
		Short: "Pack every annotated page into a CBZ archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proj, err := a.project(ctx, args[0])
			if err != nil {
				return err
			}
			pages, err := proj.Pages(ctx)
			if err != nil {
				return err
			}
			entries := make([]export.OverlayPage, 0, len(pages))
			for _, p := range pages {
				img, err := proj.LoadImage(p.PageIndex)
				if err != nil {
					return fmt.Errorf("page %d: %w", p.PageIndex+1, err)
				}
				entries = append(entries, export.OverlayPage{Image: img, Page: p})
			}
			return writeOut(cmd, args[1], func(f *os.File) error {
				return export.CBZ(f, proj.Title(), entries, opt)
			})
		},
	}
	overlayFlags(cmd, &opt)
	return cmd
}

// writeOut creates path (and its directory) and removes it again when fn fails.
func writeOut(cmd *cobra.Command, path string, fn func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
