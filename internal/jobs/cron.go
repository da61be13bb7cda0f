/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
    "context"
    "time"

    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"

    "github.com/nathanspencer1/sprint-report/internal/config"
    "github.com/nathanspencer1/sprint-report/internal/session"
)

// StartSweeper schedules the expired-session sweep so abandoned logins do not
// pin API tokens past their TTL.
func StartSweeper(cfg config.Config, logger zerolog.Logger, store session.Store) *cron.Cron {
    loc, err := time.LoadLocation(cfg.TZ)
    if err != nil { loc = time.Local }
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    c.AddFunc(cfg.SweepCron, func(){
        ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
        defer cancel()
        n, err := store.Prune(ctx, time.Now())
        if err != nil {
            logger.Error().Err(err).Msg("session sweep failed")
            return
        }
        if n > 0 { logger.Info().Int("sessions", n).Msg("session sweep") }
    })
    c.Start()
    return c
}
