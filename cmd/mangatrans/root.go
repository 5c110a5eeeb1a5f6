/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mangatrans/internal/config"
	"mangatrans/internal/imagecache"
	applog "mangatrans/internal/log"
	"mangatrans/internal/pagesource"
	"mangatrans/internal/storage"
	"mangatrans/internal/ui"
	"mangatrans/internal/version"
)

// app carries what every subcommand needs: the loaded config and lazily
// opened storage.
type app struct {
	cfg   config.AppConfig
	token string
	store *storage.Store
	l     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "mangatrans",
		Short: "Translation workbench for manga pages",
		Long: `mangatrans places translation markers on manga page images, tracks each
marker from empty to translated to proofed, and exports the result as a
translation script or annotated page images.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	cmd.AddCommand(
		newVersionCmd(),
		newUICmd(),
		newInitCmd(),
		newPagesCmd(a),
		newExportCmd(a),
		newCacheCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

func (a *app) load() error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg, a.token = cfg, token
	applog.Init(applog.FromConfig(cfg.Logging))
	a.l = applog.WithComponent("cli")
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := storage.Open(ctx, a.cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *app) imageCache(ctx context.Context) (*imagecache.Cache, error) {
	s, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: a.cfg.Remote.Timeout()}
	if a.cfg.Remote.TLSInsecure {
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	return imagecache.New(a.cfg.Storage.CacheDir, s,
		imagecache.WithHTTPClient(client),
		imagecache.WithBaseURL(a.cfg.Remote.BaseURL),
		imagecache.WithToken(a.token),
	), nil
}

// project opens dir with stored markers and cached remote images.
func (a *app) project(ctx context.Context, dir string) (*pagesource.Project, error) {
	cache, err := a.imageCache(ctx)
	if err != nil {
		return nil, err
	}
	return pagesource.Open(dir, pagesource.WithStore(a.store), pagesource.WithResolver(cache))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [projectDir]",
		Short: "Launch the desktop workbench (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
}
