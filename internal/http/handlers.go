/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/nathanspencer1/sprint-report/internal/adapters/jira"
    "github.com/nathanspencer1/sprint-report/internal/adapters/openai"
    "github.com/nathanspencer1/sprint-report/internal/config"
    "github.com/nathanspencer1/sprint-report/internal/domain"
    "github.com/nathanspencer1/sprint-report/internal/services"
    "github.com/nathanspencer1/sprint-report/internal/session"
)

type reporter interface {
    Login(ctx context.Context, domainInput, email, apiToken string) (string, domain.User, error)
    ListBoards(ctx context.Context, creds jira.Credentials) ([]domain.Board, error)
    ListRecentSprints(ctx context.Context, creds jira.Credentials, boardID int64) (services.SprintList, error)
    BuildSprintReport(ctx context.Context, creds jira.Credentials, sprintID int64) (domain.Report, error)
}

type Handlers struct {
    cfg   config.Config
    log   zerolog.Logger
    svc   reporter
    store session.Store
    codec *session.Codec
    llm   *openai.Client
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc reporter, store session.Store, codec *session.Codec, llm *openai.Client) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc, store: store, codec: codec, llm: llm}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Login(c *gin.Context) {
    var req struct {
        Domain   string `json:"domain"`
        Email    string `json:"email"`
        APIToken string `json:"apiToken"`
    }
    if err := c.ShouldBindJSON(&req); err != nil || req.Domain == "" || req.Email == "" || req.APIToken == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "domain, email and apiToken are required"})
        return
    }
    baseURL, user, err := h.svc.Login(c.Request.Context(), req.Domain, req.Email, req.APIToken)
    if err != nil {
        var apiErr *jira.APIError
        if errors.As(err, &apiErr) {
            c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Jira credentials", "details": apiErr.Body})
            return
        }
        h.internalError(c, err)
        return
    }

    sess := session.New(h.cfg.SessionTTL)
    sess.BaseURL = baseURL
    sess.Host = services.HostOf(baseURL)
    sess.Email = req.Email
    sess.APIToken = req.APIToken
    sess.AccountID = user.AccountID
    sess.DisplayName = user.DisplayName
    if err := h.store.Save(c.Request.Context(), sess); err != nil {
        h.internalError(c, err)
        return
    }
    h.setCookie(c, h.codec.Encode(sess.ID), int(h.cfg.SessionTTL.Seconds()))
    c.JSON(http.StatusOK, gin.H{"ok": true, "user": user, "baseUrl": baseURL})
}

func (h *Handlers) Me(c *gin.Context) {
    sess := currentSession(c)
    c.JSON(http.StatusOK, gin.H{
        "baseUrl":     sess.BaseURL,
        "host":        sess.Host,
        "email":       sess.Email,
        "displayName": sess.DisplayName,
    })
}

func (h *Handlers) Logout(c *gin.Context) {
    sess := currentSession(c)
    if err := h.store.Delete(c.Request.Context(), sess.ID); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed", "details": err.Error()})
        return
    }
    h.setCookie(c, "", -1)
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Boards(c *gin.Context) {
    boards, err := h.svc.ListBoards(c.Request.Context(), credsOf(currentSession(c)))
    if err != nil {
        h.upstreamError(c, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"boards": boards})
}

func (h *Handlers) Sprints(c *gin.Context) {
    boardID, err := strconv.ParseInt(c.Param("boardId"), 10, 64)
    if err != nil || boardID <= 0 {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid board id"})
        return
    }
    list, err := h.svc.ListRecentSprints(c.Request.Context(), credsOf(currentSession(c)), boardID)
    if err != nil {
        h.upstreamError(c, err)
        return
    }
    c.JSON(http.StatusOK, list)
}

func (h *Handlers) Report(c *gin.Context) {
    sprintID, err := strconv.ParseInt(c.Param("sprintId"), 10, 64)
    if err != nil || sprintID <= 0 {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint id"})
        return
    }
    rep, err := h.svc.BuildSprintReport(c.Request.Context(), credsOf(currentSession(c)), sprintID)
    if err != nil {
        h.upstreamError(c, err)
        return
    }
    c.JSON(http.StatusOK, rep)
}

func (h *Handlers) Summary(c *gin.Context) {
    if h.llm == nil || !h.llm.Enabled() {
        c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary not configured"})
        return
    }
    sprintID, err := strconv.ParseInt(c.Param("sprintId"), 10, 64)
    if err != nil || sprintID <= 0 {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint id"})
        return
    }
    rep, err := h.svc.BuildSprintReport(c.Request.Context(), credsOf(currentSession(c)), sprintID)
    if err != nil {
        h.upstreamError(c, err)
        return
    }
    summary, err := h.llm.SummarizeReport(c.Request.Context(), rep)
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"error": "summary failed", "details": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"sprintId": sprintID, "summary": summary})
}

func (h *Handlers) setCookie(c *gin.Context, value string, maxAge int) {
    c.SetSameSite(http.SameSiteLaxMode)
    c.SetCookie(h.codec.Name, value, maxAge, "/", "", h.cfg.AppEnv != "dev", true)
}

// upstreamError propagates the Jira status code for required calls and folds
// everything else into a 500 with the stringified detail.
func (h *Handlers) upstreamError(c *gin.Context, err error) {
    var apiErr *jira.APIError
    if errors.As(err, &apiErr) {
        status := apiErr.StatusCode
        if status < http.StatusBadRequest { status = http.StatusBadGateway }
        c.JSON(status, gin.H{"error": "jira request failed", "details": apiErr.Body})
        return
    }
    h.internalError(c, err)
}

func (h *Handlers) internalError(c *gin.Context, err error) {
    h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
}

func credsOf(s *session.Session) jira.Credentials {
    return jira.Credentials{BaseURL: s.BaseURL, Email: s.Email, APIToken: s.APIToken}
}
