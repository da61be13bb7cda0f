/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "net/http"
    "path/filepath"
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/nathanspencer1/sprint-report/internal/adapters/openai"
    "github.com/nathanspencer1/sprint-report/internal/config"
    "github.com/nathanspencer1/sprint-report/internal/session"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc reporter, store session.Store, codec *session.Codec, llm *openai.Client) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context){
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc, store, codec, llm)

    r.GET("/healthz", h.Healthz)

    api := r.Group("/api")
    api.POST("/login", h.Login)

    auth := api.Group("", SessionAuth(codec, store, log))
    auth.GET("/me", h.Me)
    auth.POST("/logout", h.Logout)
    auth.GET("/boards", h.Boards)
    auth.GET("/boards/:boardId/sprints", h.Sprints)
    auth.GET("/sprints/:sprintId/report", h.Report)
    auth.GET("/sprints/:sprintId/report/summary", h.Summary)

    // static frontend; unknown non-API paths fall back to the index document
    index := filepath.Join(cfg.StaticDir, "index.html")
    r.StaticFile("/", index)
    r.NoRoute(func(c *gin.Context){
        if strings.HasPrefix(c.Request.URL.Path, "/api/") {
            c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
            return
        }
        c.File(index)
    })

    return r
}
