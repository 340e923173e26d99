package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// --- Supply observations ---

// InsertObservations appends one poll cycle's observations. Duplicate
// (token, observed_at) pairs are dropped so a re-run of a cycle is harmless.
func (s *Store) InsertObservations(ctx context.Context, obs []tracker.SupplyObservation) error {
	if len(obs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(`
			INSERT INTO supply_observations (token, observed_at, supply, price, change_pct, forward_filled)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (token, observed_at) DO NOTHING`,
			o.Token, o.Timestamp, o.Supply, o.Price, o.ChangePct, o.ForwardFilled)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range obs {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ObservationsSince(ctx context.Context, token string, since time.Time) ([]tracker.SupplyObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token, observed_at, supply, price, change_pct, forward_filled
		FROM supply_observations
		WHERE token = $1 AND observed_at >= $2
		ORDER BY observed_at`, token, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []tracker.SupplyObservation
	for rows.Next() {
		var o tracker.SupplyObservation
		if err := rows.Scan(&o.Token, &o.Timestamp, &o.Supply, &o.Price, &o.ChangePct, &o.ForwardFilled); err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// --- Velocity stats ---

// VelocityPoint is one stored velocity measurement, used for charting.
type VelocityPoint struct {
	Token      string    `json:"token"`
	MeasuredAt time.Time `json:"measured_at"`
	TxCount    int       `json:"transaction_count"`
	Ratio      float64   `json:"velocity_ratio"`
}

func (s *Store) InsertVelocityStat(ctx context.Context, token string, ts time.Time, m tracker.VelocityMetric) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO velocity_stats (token, measured_at, tx_count, unique_wallets, volume, supply, ratio, duplicate_txs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		token, ts, m.TxCount, m.UniqueWallets, m.Volume, m.Supply, m.Ratio, m.DuplicateTxs)
	return err
}

func (s *Store) VelocityHistory(ctx context.Context, token string, since time.Time) ([]VelocityPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token, measured_at, tx_count, ratio
		FROM velocity_stats
		WHERE token = $1 AND measured_at >= $2
		ORDER BY measured_at`, token, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []VelocityPoint
	for rows.Next() {
		var p VelocityPoint
		if err := rows.Scan(&p.Token, &p.MeasuredAt, &p.TxCount, &p.Ratio); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CleanupOldVelocityStats deletes measurements older than maxAge.
func (s *Store) CleanupOldVelocityStats(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM velocity_stats WHERE measured_at < $1`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Flagged supply changes ---

func (s *Store) InsertFlaggedChanges(ctx context.Context, changes []tracker.FlaggedChange) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, c := range changes {
		_, err := tx.Exec(ctx, `
			INSERT INTO flagged_changes (token, flagged_at, change_pct, supply, price)
			VALUES ($1, $2, $3, $4, $5)`,
			c.Token, c.Timestamp, c.ChangePct, c.Supply, c.Price)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListFlaggedChanges(ctx context.Context, limit int) ([]tracker.FlaggedChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT token, flagged_at, change_pct, supply, price
		FROM flagged_changes
		ORDER BY flagged_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []tracker.FlaggedChange
	for rows.Next() {
		var c tracker.FlaggedChange
		if err := rows.Scan(&c.Token, &c.Timestamp, &c.ChangePct, &c.Supply, &c.Price); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// --- Alert events ---

type Event struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Token       string    `json:"token"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Store) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, token, enabled, created_at FROM events WHERE enabled = true ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Token, &e.Enabled, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EnsureTokenEvents seeds the alert events for every configured token.
// Idempotent, called at startup after migration.
func (s *Store) EnsureTokenEvents(ctx context.Context, symbols []string) error {
	for _, sym := range symbols {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO events (name, description, token) VALUES
				($1 || '_supply_change', 'Alert on significant ' || $1 || ' supply changes', $1),
				($1 || '_velocity', 'Alert when ' || $1 || ' velocity ratio crosses the threshold', $1),
				($1 || '_depeg', 'Alert when ' || $1 || ' price deviates from its peg', $1)
			ON CONFLICT (name) DO NOTHING`, sym)
		if err != nil {
			return fmt.Errorf("seed events for %s: %w", sym, err)
		}
	}
	return nil
}

// --- Telegram users ---

type TelegramUser struct {
	ID                int64     `json:"id"`
	TgChatID          int64     `json:"tg_chat_id"`
	TgUsername        string    `json:"tg_username"`
	LinkCode          string    `json:"link_code,omitempty"`
	LinkCodeExpiresAt time.Time `json:"link_code_expires_at,omitempty"`
	Linked            bool      `json:"linked"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s *Store) UpsertTelegramUser(ctx context.Context, chatID int64, username, linkCode string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO telegram_users (tg_chat_id, tg_username, link_code, link_code_expires_at, linked)
		VALUES ($1, $2, $3, $4, false)
		ON CONFLICT (tg_chat_id) DO UPDATE
			SET link_code = $3, link_code_expires_at = $4, tg_username = $2`,
		chatID, username, linkCode, expiresAt)
	return err
}

func (s *Store) LinkByCode(ctx context.Context, code string) (*TelegramUser, error) {
	var u TelegramUser
	err := s.pool.QueryRow(ctx, `
		UPDATE telegram_users SET linked = true, link_code = NULL, link_code_expires_at = NULL
		WHERE link_code = $1 AND link_code_expires_at > now()
		RETURNING id, tg_chat_id, tg_username, linked, created_at`, code).
		Scan(&u.ID, &u.TgChatID, &u.TgUsername, &u.Linked, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UnlinkTelegram(ctx context.Context, chatID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM subscriptions WHERE tg_user_id = (SELECT id FROM telegram_users WHERE tg_chat_id = $1)`, chatID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE telegram_users SET linked = false WHERE tg_chat_id = $1`, chatID)
	return err
}

func (s *Store) GetTelegramUser(ctx context.Context, chatID int64) (*TelegramUser, error) {
	var u TelegramUser
	err := s.pool.QueryRow(ctx, `
		SELECT id, tg_chat_id, tg_username, linked, created_at
		FROM telegram_users WHERE tg_chat_id = $1`, chatID).
		Scan(&u.ID, &u.TgChatID, &u.TgUsername, &u.Linked, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Subscriptions ---

type Subscription struct {
	ID           int64     `json:"id"`
	TgUserID     int64     `json:"tg_user_id"`
	EventID      int       `json:"event_id"`
	ThresholdPct float64   `json:"threshold_pct"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) ListSubscriptions(ctx context.Context, tgChatID int64) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.tg_user_id, s.event_id, s.threshold_pct, s.created_at
		FROM subscriptions s
		JOIN telegram_users u ON u.id = s.tg_user_id
		WHERE u.tg_chat_id = $1
		ORDER BY s.id`, tgChatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.TgUserID, &sub.EventID, &sub.ThresholdPct, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) Subscribe(ctx context.Context, tgChatID int64, eventID int, thresholdPct float64) (*Subscription, error) {
	var sub Subscription
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (tg_user_id, event_id, threshold_pct)
		SELECT u.id, $2, $3 FROM telegram_users u WHERE u.tg_chat_id = $1
		RETURNING id, tg_user_id, event_id, threshold_pct, created_at`,
		tgChatID, eventID, thresholdPct).
		Scan(&sub.ID, &sub.TgUserID, &sub.EventID, &sub.ThresholdPct, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, id int64, thresholdPct float64) (*Subscription, error) {
	var sub Subscription
	err := s.pool.QueryRow(ctx, `
		UPDATE subscriptions SET threshold_pct = $2
		WHERE id = $1
		RETURNING id, tg_user_id, event_id, threshold_pct, created_at`,
		id, thresholdPct).
		Scan(&sub.ID, &sub.TgUserID, &sub.EventID, &sub.ThresholdPct, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) Unsubscribe(ctx context.Context, subID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, subID)
	return err
}

func (s *Store) GetSubscriberChatIDs(ctx context.Context, eventName string) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.tg_chat_id
		FROM subscriptions s
		JOIN telegram_users u ON u.id = s.tg_user_id
		JOIN events e ON e.id = s.event_id
		WHERE e.name = $1 AND u.linked = true`, eventName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountSubscriptions returns the number of active subscriptions for an event.
func (s *Store) CountSubscriptions(ctx context.Context, eventName string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM subscriptions s
		JOIN events e ON e.id = s.event_id
		WHERE e.name = $1`, eventName).Scan(&count)
	return count, err
}

// CountLinkedUsers returns the number of linked Telegram users.
func (s *Store) CountLinkedUsers(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM telegram_users WHERE linked = true`).Scan(&count)
	return count, err
}

// Pool exposes the underlying connection pool for use by other packages.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
