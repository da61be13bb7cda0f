/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/nathanspencer1/sprint-report/internal/session"
)

const sessionKey = "session"

// SessionAuth loads and verifies the session cookie. Requests without a
// valid, unexpired session are rejected with 401 before reaching the handler.
func SessionAuth(codec *session.Codec, store session.Store, log zerolog.Logger) gin.HandlerFunc {
    return func(c *gin.Context) {
        value, err := c.Cookie(codec.Name)
        if err != nil {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
            return
        }
        id, ok := codec.Decode(value)
        if !ok {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
            return
        }
        sess, err := store.Get(c.Request.Context(), id)
        if err != nil {
            log.Error().Err(err).Msg("session lookup failed")
            c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
            return
        }
        if sess == nil {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
            return
        }
        c.Set(sessionKey, sess)
        c.Next()
    }
}

func currentSession(c *gin.Context) *session.Session {
    v, _ := c.Get(sessionKey)
    s, _ := v.(*session.Session)
    return s
}
