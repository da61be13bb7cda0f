/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/nathanspencer1/sprint-report/internal/adapters/jira"
    "github.com/nathanspencer1/sprint-report/internal/adapters/openai"
    "github.com/nathanspencer1/sprint-report/internal/config"
    httpapi "github.com/nathanspencer1/sprint-report/internal/http"
    "github.com/nathanspencer1/sprint-report/internal/jobs"
    "github.com/nathanspencer1/sprint-report/internal/logger"
    "github.com/nathanspencer1/sprint-report/internal/services"
    "github.com/nathanspencer1/sprint-report/internal/session"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Session store
    var store session.Store
    switch cfg.SessionStore {
    case "postgres":
        pg := session.MustOpenPostgres(ctx, cfg.DBDSN, log)
        defer pg.Close()
        store = pg
    default:
        store = session.NewMemoryStore()
    }
    codec := session.NewCodec(cfg.SessionCookie, cfg.SessionSecret)

    // Adapters
    jc := jira.NewClient(cfg, log)
    llm := openai.NewClient(cfg, log)

    // Services
    svc := services.NewService(cfg, log, jc)

    // HTTP server (Gin)
    router := httpapi.NewRouter(cfg, log, svc, store, codec, llm)

    // Cron: expired-session sweep
    sweeper := jobs.StartSweeper(cfg, log, store)
    defer sweeper.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()
    log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.SessionStore).Msg("sprint-report listening")

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
