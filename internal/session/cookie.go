/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package session

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "strings"
)

// Codec signs session ids into cookie values and verifies them back. The
// cookie carries "<id>.<base64url hmac-sha256>"; anything that fails
// verification is treated as no cookie at all.
type Codec struct {
    Name   string
    secret []byte
}

func NewCodec(name, secret string) *Codec {
    return &Codec{Name: name, secret: []byte(secret)}
}

func (c *Codec) sign(id string) string {
    mac := hmac.New(sha256.New, c.secret)
    mac.Write([]byte(id))
    return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Codec) Encode(id string) string {
    return id + "." + c.sign(id)
}

func (c *Codec) Decode(value string) (string, bool) {
    id, sig, ok := strings.Cut(value, ".")
    if !ok || id == "" { return "", false }
    if !hmac.Equal([]byte(sig), []byte(c.sign(id))) { return "", false }
    return id, true
}
