// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads the compositor's environment: a thin YAML file
// (if present) layered under, and overridden by, the process environment.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Env holds the resolved runtime configuration for one process.
type Env struct {
	FFmpegBin  string `yaml:"ffmpegBin"`
	FFprobeBin string `yaml:"ffprobeBin"`

	MediaRoot string `yaml:"mediaRoot"`
	MediaURL  string `yaml:"mediaURL"`

	Port string `yaml:"port"`

	AccountsPath       string   `yaml:"accountsPath"`
	ArtifactsDBPath    string   `yaml:"artifactsDBPath"`
	LogsDBPath         string   `yaml:"logsDBPath"`
	AssetFallbackRoots []string `yaml:"assetFallbackRoots"`

	RenderConcurrency int `yaml:"renderConcurrency"`

	RenderTimeoutFinal   time.Duration `yaml:"-"`
	RenderTimeoutPreview time.Duration `yaml:"-"`
	AssetFetchTimeout    time.Duration `yaml:"-"`

	renderTimeoutFinalSec   int `yaml:"renderTimeoutFinal"`
	renderTimeoutPreviewSec int `yaml:"renderTimeoutPreview"`
	assetFetchTimeoutSec    int `yaml:"assetFetchTimeout"`
}

// NewEnv reads an optional YAML file at path (ignored if it doesn't exist),
// then applies environment variable overrides named in the deployment
// surface, then fills defaults and validates the result.
func NewEnv(path string) (*Env, error) {
	var env Env

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not read env file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &env); err != nil {
				return nil, fmt.Errorf("could not unmarshal env file: %w", err)
			}
			// yaml.v2 skips unexported fields, so the seconds are read separately.
			var secs struct {
				Final   int `yaml:"renderTimeoutFinal"`
				Preview int `yaml:"renderTimeoutPreview"`
				Fetch   int `yaml:"assetFetchTimeout"`
			}
			if err := yaml.Unmarshal(data, &secs); err != nil {
				return nil, fmt.Errorf("could not unmarshal env file: %w", err)
			}
			env.renderTimeoutFinalSec, env.renderTimeoutPreviewSec, env.assetFetchTimeoutSec = secs.Final, secs.Preview, secs.Fetch
		}
	}

	overrideString("FFMPEG_BIN", &env.FFmpegBin)
	overrideString("FFPROBE_BIN", &env.FFprobeBin)
	overrideString("MEDIA_ROOT", &env.MediaRoot)
	overrideString("MEDIA_URL", &env.MediaURL)
	overrideString("PORT", &env.Port)
	overrideString("ACCOUNTS_PATH", &env.AccountsPath)
	if err := overrideInt("RENDER_CONCURRENCY", &env.RenderConcurrency); err != nil {
		return nil, err
	}
	if err := overrideInt("RENDER_TIMEOUT_FINAL", &env.renderTimeoutFinalSec); err != nil {
		return nil, err
	}
	if err := overrideInt("RENDER_TIMEOUT_PREVIEW", &env.renderTimeoutPreviewSec); err != nil {
		return nil, err
	}
	if err := overrideInt("ASSET_FETCH_TIMEOUT", &env.assetFetchTimeoutSec); err != nil {
		return nil, err
	}

	if env.FFmpegBin == "" {
		env.FFmpegBin = "ffmpeg"
	}
	if !filepath.IsAbs(env.FFmpegBin) {
		bin, err := exec.LookPath(env.FFmpegBin)
		if err != nil {
			return nil, fmt.Errorf("could not locate ffmpeg on PATH: %w", err)
		}
		env.FFmpegBin = bin
	}
	if env.FFprobeBin == "" {
		env.FFprobeBin = "ffprobe"
	}
	if !filepath.IsAbs(env.FFprobeBin) {
		bin, err := exec.LookPath(env.FFprobeBin)
		if err != nil {
			return nil, fmt.Errorf("could not locate ffprobe on PATH: %w", err)
		}
		env.FFprobeBin = bin
	}
	if env.MediaRoot == "" {
		env.MediaRoot = "./media"
	}
	if env.Port == "" {
		env.Port = "2020"
	}
	if env.AccountsPath == "" {
		env.AccountsPath = filepath.Join(env.MediaRoot, "accounts.json")
	}
	if env.ArtifactsDBPath == "" {
		env.ArtifactsDBPath = filepath.Join(env.MediaRoot, "artifacts.db")
	}
	if env.LogsDBPath == "" {
		env.LogsDBPath = filepath.Join(env.MediaRoot, "logs.db")
	}
	if v, ok := os.LookupEnv("ASSET_FALLBACK_ROOTS"); ok && v != "" {
		env.AssetFallbackRoots = filepath.SplitList(v)
	}
	if env.RenderConcurrency <= 0 {
		env.RenderConcurrency = defaultRenderConcurrency()
	}
	if env.renderTimeoutFinalSec <= 0 {
		env.renderTimeoutFinalSec = 600
	}
	if env.renderTimeoutPreviewSec <= 0 {
		env.renderTimeoutPreviewSec = 120
	}
	if env.assetFetchTimeoutSec <= 0 {
		env.assetFetchTimeoutSec = 30
	}
	env.RenderTimeoutFinal = time.Duration(env.renderTimeoutFinalSec) * time.Second
	env.RenderTimeoutPreview = time.Duration(env.renderTimeoutPreviewSec) * time.Second
	env.AssetFetchTimeout = time.Duration(env.assetFetchTimeoutSec) * time.Second

	mediaRootAbs, err := filepath.Abs(env.MediaRoot)
	if err != nil {
		return nil, fmt.Errorf("mediaRoot %q is not resolvable: %w", env.MediaRoot, err)
	}
	env.MediaRoot = mediaRootAbs

	if !filepath.IsAbs(env.FFmpegBin) {
		return nil, fmt.Errorf("ffmpegBin %q is not an absolute path", env.FFmpegBin)
	}
	if !filepath.IsAbs(env.FFprobeBin) {
		return nil, fmt.Errorf("ffprobeBin %q is not an absolute path", env.FFprobeBin)
	}

	return &env, nil
}

func defaultRenderConcurrency() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

func overrideString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func overrideInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%v: %w", key, err)
	}
	*dst = n
	return nil
}

// Locked returns MEDIA_ROOT/locked.
func (e *Env) Locked() string { return filepath.Join(e.MediaRoot, "locked") }

// Previews returns MEDIA_ROOT/previews.
func (e *Env) Previews() string { return filepath.Join(e.MediaRoot, "previews") }

// Backgrounds returns MEDIA_ROOT/backgrounds. PrepareDirectories creates
// it; the asset localizer does not write to it.
func (e *Env) Backgrounds() string { return filepath.Join(e.MediaRoot, "backgrounds") }

// Processed returns MEDIA_ROOT/processed, used by the asset localizer
// cache for all downloaded remote media, background images included.
func (e *Env) Processed() string { return filepath.Join(e.MediaRoot, "processed") }

// PrepareDirectories creates the on-demand subtree under MediaRoot.
func (e *Env) PrepareDirectories() error {
	for _, dir := range []string{e.Locked(), e.Previews(), e.Backgrounds(), e.Processed()} {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("could not create directory %v: %w", dir, err)
		}
	}
	return nil
}
