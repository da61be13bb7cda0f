/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "time"

    openai "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/openai/openai-go/v2/shared"
    "github.com/rs/zerolog"

    "github.com/nathanspencer1/sprint-report/internal/config"
    "github.com/nathanspencer1/sprint-report/internal/domain"
)

type Client struct {
    key     string
    model   string
    timeout time.Duration
    cli     openai.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, logger zerolog.Logger) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
    return &Client{key: cfg.OpenAIKey, model: model, timeout: cfg.OpenAITimeout, cli: cli, log: logger}
}

// Enabled reports whether an API key is configured; the summary endpoint is
// optional at runtime.
func (c *Client) Enabled() bool { return strings.TrimSpace(c.key) != "" }

// SummarizeReport asks the model for a short narrative over the report. Only
// aggregate numbers, issue keys and summaries go out; no comment bodies.
func (c *Client) SummarizeReport(ctx context.Context, rep domain.Report) (string, error) {
    if !c.Enabled() { return "", errors.New("openai: missing key") }
    c.log.Info().Str("model", c.model).Int64("sprint", rep.SprintID).Msg("openai summarize call")
    ctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    userContent := ""
    if b, err := json.Marshal(rep); err == nil { userContent = string(b) }
    params := openai.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage("You are a senior agile coach. Given a sprint report (rows grouped by completion action with story-point accounting), produce a concise plain-text summary: what shipped, what slipped, scope added mid-sprint, and story-point movement."),
            openai.UserMessage(userContent),
        },
    }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}
