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
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mangatrans/internal/pagesource"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local copy of remote page images",
	}
	cmd.AddCommand(newCachePullCmd(a), newCacheLsCmd(a), newCacheRmCmd(a))
	return cmd
}

func newCachePullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <projectDir>",
		Short: "Download every remote page image of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, err := a.imageCache(ctx)
			if err != nil {
				return err
			}
			proj, err := pagesource.Open(args[0])
			if err != nil {
				return err
			}
			urls := proj.RemoteImages()
			remote := 0
			for _, u := range urls {
				if u != "" {
					remote++
				}
			}
			out := cmd.OutOrStdout()
			if remote == 0 {
				fmt.Fprintln(out, "No remote images to cache")
				return nil
			}
			res, err := cache.Pull(ctx, proj.ID(), proj.Title(), urls)
			fmt.Fprintf(out, "%s: %d downloaded, %d already cached, %d failed (%s)\n",
				proj.ID(), res.Downloaded, res.Skipped, res.Failed, humanize.Bytes(uint64(res.Metadata.TotalSizeBytes)))
			return err
		},
	}
}

func newCacheLsCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List cached projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, err := a.imageCache(ctx)
			if err != nil {
				return err
			}
			items, err := cache.List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				for _, it := range items {
					if err := enc.Encode(it); err != nil {
						return fmt.Errorf("encode cache entry: %w", err)
					}
				}
				return nil
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No cached projects")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PROJECT\tNAME\tSTATUS\tFILES\tSIZE\tCACHED")
			for _, it := range items {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", it.ProjectID, it.ProjectName, it.Status,
					it.FileCount, humanize.Bytes(uint64(it.TotalSizeBytes)), humanize.RelTime(it.CachedAt, time.Now(), "ago", "from now"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON lines")
	return cmd
}

func newCacheRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <projectID>",
		Short: "Delete a project's cached images and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cache, err := a.imageCache(ctx)
			if err != nil {
				return err
			}
			if !cache.Exists(args[0]) {
				if _, err := cache.Info(ctx, args[0]); err != nil {
					return errors.New("project is not cached: " + args[0])
				}
			}
			if err := cache.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
