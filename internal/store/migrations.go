package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS supply_observations (
    id BIGSERIAL PRIMARY KEY,
    token TEXT NOT NULL,
    observed_at TIMESTAMPTZ NOT NULL,
    supply DOUBLE PRECISION NOT NULL,
    price DOUBLE PRECISION NOT NULL,
    change_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
    forward_filled BOOLEAN NOT NULL DEFAULT false,
    UNIQUE (token, observed_at)
);
CREATE INDEX IF NOT EXISTS idx_supply_observations_token_time
    ON supply_observations (token, observed_at);

CREATE TABLE IF NOT EXISTS velocity_stats (
    id BIGSERIAL PRIMARY KEY,
    token TEXT NOT NULL,
    measured_at TIMESTAMPTZ NOT NULL,
    tx_count INT NOT NULL,
    unique_wallets INT NOT NULL,
    volume DOUBLE PRECISION NOT NULL,
    supply DOUBLE PRECISION NOT NULL,
    ratio DOUBLE PRECISION NOT NULL,
    duplicate_txs INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_velocity_stats_token_time
    ON velocity_stats (token, measured_at);

CREATE TABLE IF NOT EXISTS flagged_changes (
    id BIGSERIAL PRIMARY KEY,
    token TEXT NOT NULL,
    flagged_at TIMESTAMPTZ NOT NULL,
    change_pct DOUBLE PRECISION NOT NULL,
    supply DOUBLE PRECISION NOT NULL,
    price DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    token TEXT NOT NULL DEFAULT '',
    enabled BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS telegram_users (
    id BIGSERIAL PRIMARY KEY,
    tg_chat_id BIGINT NOT NULL UNIQUE,
    tg_username TEXT NOT NULL DEFAULT '',
    link_code TEXT UNIQUE,
    link_code_expires_at TIMESTAMPTZ,
    linked BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id BIGSERIAL PRIMARY KEY,
    tg_user_id BIGINT NOT NULL REFERENCES telegram_users(id) ON DELETE CASCADE,
    event_id INT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    threshold_pct DOUBLE PRECISION NOT NULL DEFAULT 0.0001,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(tg_user_id, event_id)
);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
