/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "net/url"
    "strings"
)

// NormalizeBaseURL turns whatever the login form sent — a bare cloud
// subdomain, a full hostname, a URL with a mangled scheme — into a canonical
// Jira base URL. It never fails; empty in, empty out.
func NormalizeBaseURL(input string) string {
    s := strings.TrimSpace(input)
    if s == "" { return "" }

    // repair a missing colon after the scheme
    lower := strings.ToLower(s)
    switch {
    case strings.HasPrefix(lower, "https//"):
        s = "https://" + s[len("https//"):]
    case strings.HasPrefix(lower, "http//"):
        s = "http://" + s[len("http//"):]
    }

    s = strings.TrimRight(s, "/")

    lower = strings.ToLower(s)
    switch {
    case strings.HasPrefix(lower, "https://"):
        return "https://" + s[len("https://"):]
    case strings.HasPrefix(lower, "http://"):
        return "http://" + s[len("http://"):]
    }

    // a dot means a full hostname was given; otherwise it is a cloud subdomain
    if strings.Contains(s, ".") {
        return "https://" + s
    }
    return "https://" + s + ".atlassian.net"
}

// HostOf extracts the hostname from a normalized base URL, for display.
func HostOf(baseURL string) string {
    u, err := url.Parse(baseURL)
    if err != nil { return "" }
    return u.Host
}
