/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package session

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

// PostgresStore keeps sessions in a single table so multiple instances can
// share one login.
type PostgresStore struct {
    pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpenPostgres(ctx context.Context, dsn string, logger zerolog.Logger) *PostgresStore {
    pool, err := pgxpool.New(ctx, dsn)
    if err != nil { logger.Fatal().Err(err).Msg("session db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := pool.Ping(ctx2); err != nil { logger.Fatal().Err(err).Msg("session db ping failed") }
    s := &PostgresStore{pool: pool, log: logger}
    if err := s.ensureSchema(ctx2); err != nil { logger.Fatal().Err(err).Msg("session schema failed") }
    return s
}

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
    const q = `
        CREATE TABLE IF NOT EXISTS sessions(
            id           text PRIMARY KEY,
            base_url     text NOT NULL,
            host         text NOT NULL,
            email        text NOT NULL,
            api_token    text NOT NULL,
            account_id   text NOT NULL,
            display_name text NOT NULL,
            created_at   timestamptz NOT NULL,
            expires_at   timestamptz NOT NULL
        )`
    _, err := p.pool.Exec(ctx, q)
    return err
}

func (p *PostgresStore) Close() { p.pool.Close() }

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
    const q = `SELECT id, base_url, host, email, api_token, account_id, display_name, created_at, expires_at
        FROM sessions WHERE id=$1 AND expires_at > now()`
    s := &Session{}
    err := p.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.BaseURL, &s.Host, &s.Email, &s.APIToken,
        &s.AccountID, &s.DisplayName, &s.CreatedAt, &s.ExpiresAt)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
    const q = `
        INSERT INTO sessions(id, base_url, host, email, api_token, account_id, display_name, created_at, expires_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT(id) DO UPDATE SET
            base_url=EXCLUDED.base_url,
            host=EXCLUDED.host,
            email=EXCLUDED.email,
            api_token=EXCLUDED.api_token,
            account_id=EXCLUDED.account_id,
            display_name=EXCLUDED.display_name,
            expires_at=EXCLUDED.expires_at`
    _, err := p.pool.Exec(ctx, q, s.ID, s.BaseURL, s.Host, s.Email, s.APIToken,
        s.AccountID, s.DisplayName, s.CreatedAt, s.ExpiresAt)
    return err
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
    _, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
    return err
}

func (p *PostgresStore) Prune(ctx context.Context, now time.Time) (int, error) {
    tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
    if err != nil { return 0, err }
    return int(tag.RowsAffected()), nil
}
