/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user-editable YAML configuration, applies MT_*
// environment overrides and keeps the remote-service token in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is persisted to config.yaml in the user scope. Environment
// variables are read-only overrides and never written back.
//
// config_version: bump when the structure changes incompatibly.

type GeneralConfig struct {
	Theme       string `yaml:"theme"` // "system" | "light" | "dark"
	LastProject string `yaml:"last_project"`
}

// StorageConfig selects where marker lists and cache metadata live.
// A postgres:// DSN targets a shared team database; anything else is a SQLite path.
type StorageConfig struct {
	DSN      string `yaml:"dsn"`
	CacheDir string `yaml:"cache_dir"`
}

type RemoteConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// WorkbenchConfig tunes the annotation canvas. Sizes are fractions of the page
// image, distances are screen pixels, margins are percent of the window.
type WorkbenchConfig struct {
	MinZoom          float64 `yaml:"min_zoom"`
	MaxZoom          float64 `yaml:"max_zoom"`
	ZoomStep         float64 `yaml:"zoom_step"`
	PanningThreshold float64 `yaml:"panning_threshold"`
	MarkerWidth      float64 `yaml:"marker_width"`
	MarkerHeight     float64 `yaml:"marker_height"`
	EditorGap        float64 `yaml:"editor_gap"`
	EditorMargin     float64 `yaml:"editor_margin"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Storage       StorageConfig   `yaml:"storage"`
	Remote        RemoteConfig    `yaml:"remote"`
	Logging       LoggingConfig   `yaml:"logging"`
	Workbench     WorkbenchConfig `yaml:"workbench"`
}

// Defaults returns the application defaults. Storage paths are left empty and
// resolved against the config directory by Load.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Remote:        RemoteConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Workbench: WorkbenchConfig{
			MinZoom:          0.2,
			MaxZoom:          5,
			ZoomStep:         0.12,
			PanningThreshold: 5,
			MarkerWidth:      0.12,
			MarkerHeight:     0.08,
			EditorGap:        12,
			EditorMargin:     2,
		},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "MT_CONFIG_DIR"
	EnvStorageDSN       = "MT_STORAGE_DSN"
	EnvCacheDir         = "MT_CACHE_DIR"
	EnvRemoteURL        = "MT_REMOTE_URL"
	EnvRemoteTimeoutMs  = "MT_REMOTE_TIMEOUT_MS"
	EnvRemoteTLSInsec   = "MT_TLS_INSECURE"
	EnvPanningThreshold = "MT_PANNING_THRESHOLD"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "MT_LOG_LEVEL"
	EnvLogFormat = "MT_LOG_FORMAT"
	EnvLogSource = "MT_LOG_SOURCE"
	EnvLogFile   = "MT_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "mangatrans"
	keyringToken   = "remote_token"
)

// TokenStore abstracts the keyring so tests can swap it out.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore with github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "mangatrans"), nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and environment
// overrides, and fetches the remote token from the keyring. A malformed file is
// reported as an error together with the defaults.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if uerr := yaml.Unmarshal(data, &fileCfg); uerr != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, uerr)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))
	cfg.Workbench = cfg.Workbench.normalized()

	tok, terr := tokenStore.Get(keyringService, keyringToken)
	if terr != nil && !errors.Is(terr, keyring.ErrNotFound) {
		// a missing keychain backend is not fatal; the remote is simply anonymous
		tok = ""
	}
	return cfg, tok, nil
}

// Save writes config.yaml and stores the token in the keyring when non-empty.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// ClearToken removes the remote token from the keyring. Missing tokens are not an error.
func ClearToken() error {
	if err := tokenStore.Delete(keyringService, keyringToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.Theme); v != "" {
		dst.General.Theme = v
	}
	if v := strings.TrimSpace(src.General.LastProject); v != "" {
		dst.General.LastProject = v
	}
	if v := strings.TrimSpace(src.Storage.DSN); v != "" {
		dst.Storage.DSN = v
	}
	if v := strings.TrimSpace(src.Storage.CacheDir); v != "" {
		dst.Storage.CacheDir = v
	}
	if v := strings.TrimSpace(src.Remote.BaseURL); v != "" {
		dst.Remote.BaseURL = v
	}
	if src.Remote.TimeoutMs != 0 {
		dst.Remote.TimeoutMs = src.Remote.TimeoutMs
	}
	dst.Remote.TLSInsecure = src.Remote.TLSInsecure
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
	// workbench: zero means "not set in file"
	w, s := &dst.Workbench, src.Workbench
	for _, f := range []struct {
		dst *float64
		src float64
	}{
		{&w.MinZoom, s.MinZoom}, {&w.MaxZoom, s.MaxZoom}, {&w.ZoomStep, s.ZoomStep},
		{&w.PanningThreshold, s.PanningThreshold}, {&w.MarkerWidth, s.MarkerWidth},
		{&w.MarkerHeight, s.MarkerHeight}, {&w.EditorGap, s.EditorGap}, {&w.EditorMargin, s.EditorMargin},
	} {
		if f.src != 0 {
			*f.dst = f.src
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.Storage.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteURL)); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Remote.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteTLSInsec)); v != "" {
		cfg.Remote.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPanningThreshold)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Workbench.PanningThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func resolvePaths(cfg *AppConfig, dir string) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = filepath.Join(dir, "workbench.sqlite")
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = filepath.Join(dir, "cache")
	}
}

// normalized replaces out-of-range workbench values with defaults.
func (w WorkbenchConfig) normalized() WorkbenchConfig {
	d := Defaults().Workbench
	if w.MinZoom <= 0 {
		w.MinZoom = d.MinZoom
	}
	if w.MaxZoom < w.MinZoom || w.MinZoom > 1 || w.MaxZoom < 1 {
		w.MinZoom, w.MaxZoom = d.MinZoom, d.MaxZoom
	}
	if w.ZoomStep <= 0 {
		w.ZoomStep = d.ZoomStep
	}
	if w.PanningThreshold < 0 {
		w.PanningThreshold = d.PanningThreshold
	}
	if w.MarkerWidth <= 0 || w.MarkerWidth > 1 {
		w.MarkerWidth = d.MarkerWidth
	}
	if w.MarkerHeight <= 0 || w.MarkerHeight > 1 {
		w.MarkerHeight = d.MarkerHeight
	}
	if w.EditorMargin < 0 || w.EditorMargin >= 50 {
		w.EditorMargin = d.EditorMargin
	}
	return w
}

// EnvOverrideFor returns the env var name if the key is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"storage.dsn":                 EnvStorageDSN,
		"storage.cache_dir":           EnvCacheDir,
		"remote.base_url":             EnvRemoteURL,
		"remote.timeout_ms":           EnvRemoteTimeoutMs,
		"remote.tls_insecure":         EnvRemoteTLSInsec,
		"workbench.panning_threshold": EnvPanningThreshold,
		"logging.level":               EnvLogLevel,
		"logging.format":              EnvLogFormat,
		"logging.source":              EnvLogSource,
		"logging.file":                EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the remote request timeout, falling back to the default.
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return time.Duration(Defaults().Remote.TimeoutMs) * time.Millisecond
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}
