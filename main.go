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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"compositor/pkg/artifact"
	"compositor/pkg/asset"
	"compositor/pkg/auth"
	"compositor/pkg/config"
	"compositor/pkg/eventlog"
	"compositor/pkg/ffmpeg"
	"compositor/pkg/render"
	"compositor/pkg/sysinfo"
	"compositor/pkg/web"
)

func main() {
	envPath := flag.String("env", "", "path to an optional env.yaml overlay")
	flag.Parse()

	if err := run(*envPath); err != nil {
		log.Fatal(err)
	}
}

func run(envPath string) error {
	env, err := config.NewEnv(envPath)
	if err != nil {
		return fmt.Errorf("could not get environment config: %w", err)
	}
	if err := env.PrepareDirectories(); err != nil {
		return fmt.Errorf("could not prepare media directories: %w", err)
	}

	a, err := newApp(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go a.logger.Start(ctx)
	go a.logger.LogToStdout(ctx)
	go a.logDB.SaveLogs(ctx, a.logger)
	go a.monitor.Run(ctx, func(err error) { a.logger.Error().Src("app").Msgf("system status: %v", err) })
	time.Sleep(10 * time.Millisecond)
	a.logger.Info().Src("app").Msgf("listening on :%v", env.Port)

	fatal := make(chan error, 1)
	go func() { fatal <- a.server.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-fatal:
	case sig := <-stop:
		a.logger.Info().Src("app").Msgf("received %v, stopping", sig)
		err = nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := a.server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if closeErr := a.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	cancel() // stops the logger and lets logDB close its bbolt handle.
	return err
}

// app wires every component named in spec.md §2 into one running process,
// the root-level equivalent of the teacher's nvr.go app/newApp split.
type app struct {
	logger  *eventlog.Logger
	logDB   *eventlog.DB
	store   *artifact.Store
	monitor *sysinfo.Monitor
	server  *http.Server
}

func newApp(env *config.Env) (*app, error) {
	logger := eventlog.NewLogger()

	logDB := eventlog.NewDB(env.LogsDBPath)
	if err := logDB.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("could not open logs database: %w", err)
	}

	authenticator, err := auth.Load(env.AccountsPath, logger)
	if err != nil {
		return nil, fmt.Errorf("could not load accounts: %w", err)
	}

	store, err := artifact.Open(env.ArtifactsDBPath, env.MediaRoot)
	if err != nil {
		return nil, fmt.Errorf("could not open artifact store: %w", err)
	}

	engine, err := ffmpeg.NewEngine(env.FFmpegBin, env.FFprobeBin)
	if err != nil {
		return nil, fmt.Errorf("could not locate rendering engine: %w", err)
	}

	filterThreads := runtime.NumCPU() / 2
	if filterThreads < 2 {
		filterThreads = 2
	}
	dispatcher := render.NewDispatcher(engine, env.RenderConcurrency, filterThreads, logger)
	dispatcher.SetTimeouts(env.RenderTimeoutFinal, env.RenderTimeoutPreview)

	localizer := asset.NewLocalizer(env.MediaRoot, env.MediaURL, env.AssetFallbackRoots, env.Processed(), env.AssetFetchTimeout)

	monitor := sysinfo.NewMonitor(env.MediaRoot, dispatcher.Occupancy)

	webApp := &web.App{
		Auth:       authenticator,
		Localizer:  localizer,
		Engine:     engine,
		Dispatcher: dispatcher,
		Store:      store,
		Logger:     logger,
		LogDB:      logDB,
		Monitor:    monitor,
		MediaRoot:  env.MediaRoot,
		MediaURL:   env.MediaURL,
	}

	return &app{
		logger:  logger,
		logDB:   logDB,
		store:   store,
		monitor: monitor,
		server:  &http.Server{Addr: ":" + env.Port, Handler: webApp.Routes()},
	}, nil
}
