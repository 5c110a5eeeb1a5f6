/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mangatrans/internal/domain"
	"mangatrans/internal/pagesource"
)

func newInitCmd() *cobra.Command {
	var id, title string
	cmd := &cobra.Command{
		Use:   "init <projectDir>",
		Short: "Create a project manifest; images go into <projectDir>/pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pagesource.Init(args[0], pagesource.Manifest{ID: id, Title: title}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project at %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id (defaults to the directory name)")
	cmd.Flags().StringVar(&title, "title", "", "display title")
	return cmd
}

type pageInfo struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Image      string `json:"image"`
	Markers    int    `json:"markers"`
	Empty      int    `json:"empty"`
	Translated int    `json:"translated"`
	Proofed    int    `json:"proofed"`
}

func newPagesCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "pages <projectDir>",
		Short: "List pages with their translation progress",
		Args:  cobra.ExactArgs(1),
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
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				for _, p := range pages {
					if err := enc.Encode(infoOf(p)); err != nil {
						return fmt.Errorf("encode page: %w", err)
					}
				}
				return nil
			}
			fmt.Fprintf(out, "%s (%s), %d pages\n", proj.Title(), proj.ID(), len(pages))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PAGE\tTITLE\tMARKERS\tEMPTY\tTRANSLATED\tPROOFED\tIMAGE")
			for _, p := range pages {
				i := infoOf(p)
				_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%s\n", i.Index+1, i.Title, i.Markers, i.Empty, i.Translated, i.Proofed, i.Image)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON lines")
	return cmd
}

func infoOf(p domain.Page) pageInfo {
	c := domain.StatusCounts(p.Markers)
	return pageInfo{
		Index:      p.PageIndex,
		Title:      p.Title,
		Image:      p.ImageReference,
		Markers:    len(p.Markers),
		Empty:      c[domain.StatusEmpty],
		Translated: c[domain.StatusTranslated],
		Proofed:    c[domain.StatusProofed],
	}
}
