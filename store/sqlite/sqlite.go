/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the persistence the engine consumes (payout rules, point
  ledger, gift sends, conversations, settlement runs) using SQLite. The
  same patterns apply to PostgreSQL with minor dialect differences.

INTERFACES IMPLEMENTED:
  points.TxStore:        Append-only point ledger with WithTx
  settlement.Repository: Rules + gift sends in, settlement runs out

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on point_ledger
  - Payout rules are deactivated (is_active = 0), never deleted

RULE ORDER:
  Rules are listed in insertion order (rowid). The resolver is first-match
  within a tier, so the order it sees must be stable across runs.

KEY TABLES:
  payout_rules:      Revenue-share rules with effective windows
  gifts:             Gift catalog
  point_ledger:      Immutable ledger of point deltas
  gift_sends:        Gifts sent by users to casts (settlement input)
  conversations:     Per-user chat state (inbox input)
  settlement_runs:   Batch headers
  settlement_lines:  Per-send payouts of a run

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/concierge.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := points.NewLedger(store)

SEE ALSO:
  - points/ledger.go: Store interface
  - settlement/service.go: Repository interface
  - store/memory/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/concierge-engine/generic"
	"github.com/warp/concierge-engine/inbox"
	"github.com/warp/concierge-engine/points"
	"github.com/warp/concierge-engine/settlement"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time interface checks
var (
	_ points.TxStore        = (*Store)(nil)
	_ settlement.Repository = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives on a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Payout rules (deactivated, never deleted)
	CREATE TABLE IF NOT EXISTS payout_rules (
		id TEXT PRIMARY KEY,
		rule_type TEXT NOT NULL,
		scope_type TEXT NOT NULL,
		cast_id TEXT NOT NULL DEFAULT '',
		gift_id TEXT NOT NULL DEFAULT '',
		gift_category TEXT NOT NULL DEFAULT '',
		percent TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payout_rules_cast
		ON payout_rules(cast_id);

	-- Gift catalog
	CREATE TABLE IF NOT EXISTS gifts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		price_points INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Point ledger (append-only)
	CREATE TABLE IF NOT EXISTS point_ledger (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		entry_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_point_ledger_user
		ON point_ledger(user_id);

	-- Gift sends (settlement input)
	CREATE TABLE IF NOT EXISTS gift_sends (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		cast_id TEXT NOT NULL,
		gift_id TEXT NOT NULL,
		gift_category TEXT NOT NULL DEFAULT '',
		amount_excl_tax INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		occurred_on TEXT NOT NULL
	);

	-- Settlement batches select by JST business day
	CREATE INDEX IF NOT EXISTS idx_gift_sends_occurred_on
		ON gift_sends(occurred_on);

	-- Conversations (inbox input), one row per end user
	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		cast_id TEXT NOT NULL,
		last_user_message_at TEXT,
		last_staff_message_at TEXT,
		last_checkin_at TEXT,
		has_risk BOOLEAN NOT NULL DEFAULT FALSE,
		is_paused BOOLEAN NOT NULL DEFAULT FALSE,
		plan_priority_level INTEGER NOT NULL DEFAULT 3,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_cast
		ON conversations(cast_id);

	-- Settlement runs
	CREATE TABLE IF NOT EXISTS settlement_runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		total_payout INTEGER NOT NULL,
		unmatched_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settlement_lines (
		run_id TEXT NOT NULL REFERENCES settlement_runs(id),
		gift_send_id TEXT NOT NULL,
		cast_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		occurred_on TEXT NOT NULL,
		amount_excl_tax INTEGER NOT NULL,
		percent_applied TEXT NOT NULL,
		payout_amount INTEGER NOT NULL,
		PRIMARY KEY (run_id, gift_send_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PAYOUT RULES
// =============================================================================

// SavePayoutRule inserts a new rule.
func (s *Store) SavePayoutRule(ctx context.Context, r settlement.PayoutRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payout_rules
		(id, rule_type, scope_type, cast_id, gift_id, gift_category, percent,
		 effective_from, effective_to, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.RuleType, r.ScopeType, r.CastID, r.GiftID, r.GiftCategory,
		r.Percent.String(), r.EffectiveFrom.String(), nullDate(r.EffectiveTo), r.IsActive,
		formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("payout rule %s already exists: %w", r.ID, generic.ErrDuplicateIdempotencyKey)
		}
		return fmt.Errorf("failed to save payout rule: %w", err)
	}
	return nil
}

// ListPayoutRules returns every rule in insertion order, active or not.
func (s *Store) ListPayoutRules(ctx context.Context) ([]settlement.PayoutRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_type, scope_type, cast_id, gift_id, gift_category, percent,
		       effective_from, effective_to, is_active
		FROM payout_rules
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payout rules: %w", err)
	}
	defer rows.Close()

	var rules []settlement.PayoutRule
	for rows.Next() {
		var (
			r       settlement.PayoutRule
			percent string
			from    string
			to      sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RuleType, &r.ScopeType, &r.CastID, &r.GiftID, &r.GiftCategory,
			&percent, &from, &to, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan payout rule: %w", err)
		}
		if r.Percent, err = decimal.NewFromString(percent); err != nil {
			return nil, fmt.Errorf("payout rule %s has invalid percent %q: %w", r.ID, percent, err)
		}
		if r.EffectiveFrom, err = generic.ParseDate(from); err != nil {
			return nil, fmt.Errorf("payout rule %s: %w", r.ID, err)
		}
		if to.Valid {
			d, err := generic.ParseDate(to.String)
			if err != nil {
				return nil, fmt.Errorf("payout rule %s: %w", r.ID, err)
			}
			r.EffectiveTo = &d
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeactivatePayoutRule marks a rule inactive.
func (s *Store) DeactivatePayoutRule(ctx context.Context, id generic.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE payout_rules SET is_active = FALSE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate payout rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payout rule %s: %w", id, generic.ErrNotFound)
	}
	return nil
}

// =============================================================================
// GIFTS
// =============================================================================

// SaveGift inserts or replaces a catalog gift.
func (s *Store) SaveGift(ctx context.Context, g settlement.Gift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gifts (id, name, category, price_points, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			price_points = excluded.price_points,
			is_active = excluded.is_active
	`, g.ID, g.Name, g.Category, g.PricePoints, g.IsActive, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save gift: %w", err)
	}
	return nil
}

// GetGift returns a gift or ErrNotFound.
func (s *Store) GetGift(ctx context.Context, id generic.GiftID) (*settlement.Gift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var g settlement.Gift
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, category, price_points, is_active FROM gifts WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &g.Category, &g.PricePoints, &g.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("gift %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}
	return &g, nil
}

// ListGifts returns the catalog ordered by ID.
func (s *Store) ListGifts(ctx context.Context) ([]settlement.Gift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, category, price_points, is_active FROM gifts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query gifts: %w", err)
	}
	defer rows.Close()

	var gifts []settlement.Gift
	for rows.Next() {
		var g settlement.Gift
		if err := rows.Scan(&g.ID, &g.Name, &g.Category, &g.PricePoints, &g.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

// =============================================================================
// POINT LEDGER (points.Store interface)
// =============================================================================

// AppendEntry adds an entry to the point ledger.
func (s *Store) AppendEntry(ctx context.Context, e points.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

// LoadEntries returns every entry of a user in insertion order.
func (s *Store) LoadEntries(ctx context.Context, userID generic.UserID) ([]points.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEntries(ctx, s.db, userID)
}

// EntryExists checks if an idempotency key exists.
func (s *Store) EntryExists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entryExists(ctx, s.db, idempotencyKey)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func appendEntry(ctx context.Context, q querier, e points.LedgerEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO point_ledger
		(id, user_id, delta, entry_type, reference_id, reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.UserID, e.Delta, e.Type, e.ReferenceID, e.Reason,
		nullString(e.IdempotencyKey), formatTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func loadEntries(ctx context.Context, q querier, userID generic.UserID) ([]points.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, delta, entry_type, reference_id, reason, idempotency_key, created_at
		FROM point_ledger
		WHERE user_id = ?
		ORDER BY rowid ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []points.LedgerEntry
	for rows.Next() {
		var (
			e         points.LedgerEntry
			ref       sql.NullString
			reason    sql.NullString
			idemKey   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Type, &ref, &reason, &idemKey, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.ReferenceID = ref.String
		e.Reason = reason.String
		e.IdempotencyKey = idemKey.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func entryExists(ctx context.Context, q querier, idempotencyKey string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM point_ledger WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

// =============================================================================
// GIFT SENDS
// =============================================================================

// SaveGiftSend records a gift send.
func (s *Store) SaveGiftSend(ctx context.Context, g settlement.GiftSend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveGiftSend(ctx, s.db, g)
}

func saveGiftSend(ctx context.Context, q querier, g settlement.GiftSend) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO gift_sends
		(id, user_id, cast_id, gift_id, gift_category, amount_excl_tax, occurred_at, occurred_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID, g.UserID, g.CastID, g.GiftID, g.GiftCategory, g.AmountExclTax,
		formatTime(g.OccurredAt), g.OccurredOn().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save gift send: %w", err)
	}
	return nil
}

// ListGiftSends returns sends whose JST business day is within period.
func (s *Store) ListGiftSends(ctx context.Context, period generic.Period) ([]settlement.GiftSend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, cast_id, gift_id, gift_category, amount_excl_tax, occurred_at
		FROM gift_sends
		WHERE occurred_on >= ? AND occurred_on <= ?
		ORDER BY occurred_at ASC, rowid ASC
	`, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query gift sends: %w", err)
	}
	defer rows.Close()

	var sends []settlement.GiftSend
	for rows.Next() {
		var (
			g          settlement.GiftSend
			occurredAt string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.CastID, &g.GiftID, &g.GiftCategory, &g.AmountExclTax, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan gift send: %w", err)
		}
		g.OccurredAt = parseTime(occurredAt)
		sends = append(sends, g)
	}
	return sends, rows.Err()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SaveConversation upserts the chat state of one user.
func (s *Store) SaveConversation(ctx context.Context, c inbox.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations
		(user_id, cast_id, last_user_message_at, last_staff_message_at, last_checkin_at,
		 has_risk, is_paused, plan_priority_level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			cast_id = excluded.cast_id,
			last_user_message_at = excluded.last_user_message_at,
			last_staff_message_at = excluded.last_staff_message_at,
			last_checkin_at = excluded.last_checkin_at,
			has_risk = excluded.has_risk,
			is_paused = excluded.is_paused,
			plan_priority_level = excluded.plan_priority_level,
			updated_at = excluded.updated_at
	`,
		c.UserID, c.CastID,
		nullTime(c.LastUserMessageAt), nullTime(c.LastStaffMessageAt), nullTime(c.LastCheckinAt),
		c.HasRisk, c.IsPaused, c.PlanPriorityLevel, formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// ListConversationsByCast returns a cast's conversations ordered by user ID.
// The inbox sort is stable, so this order is the tie-break.
func (s *Store) ListConversationsByCast(ctx context.Context, castID generic.CastID) ([]inbox.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, cast_id, last_user_message_at, last_staff_message_at, last_checkin_at,
		       has_risk, is_paused, plan_priority_level, updated_at
		FROM conversations
		WHERE cast_id = ?
		ORDER BY user_id ASC
	`, castID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []inbox.Conversation
	for rows.Next() {
		var (
			c                   inbox.Conversation
			lastUser, lastStaff sql.NullString
			lastCheckin         sql.NullString
			updatedAt           string
		)
		if err := rows.Scan(&c.UserID, &c.CastID, &lastUser, &lastStaff, &lastCheckin,
			&c.HasRisk, &c.IsPaused, &c.PlanPriorityLevel, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.LastUserMessageAt = parseNullTime(lastUser)
		c.LastStaffMessageAt = parseNullTime(lastStaff)
		c.LastCheckinAt = parseNullTime(lastCheckin)
		c.UpdatedAt = parseTime(updatedAt)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// =============================================================================
// SETTLEMENT RUNS (settlement.Repository interface)
// =============================================================================

// SaveSettlementRun stores a run header and its lines atomically.
func (s *Store) SaveSettlementRun(ctx context.Context, run settlement.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO settlement_runs (id, period_start, period_end, total_payout, unmatched_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Period.Start.String(), run.Period.End.String(),
		run.Result.TotalPayout(), len(run.Result.Unmatched), formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement run: %w", err)
	}

	for _, l := range run.Result.Lines {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO settlement_lines
			(run_id, gift_send_id, cast_id, rule_id, occurred_on, amount_excl_tax, percent_applied, payout_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, l.GiftSendID, l.CastID, l.RuleID, l.OccurredOn.String(),
			l.AmountExclTax, l.PercentApplied.String(), l.PayoutAmount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement line: %w", err)
		}
	}

	return sqlTx.Commit()
}

// ListSettlementRuns returns run headers, newest first.
func (s *Store) ListSettlementRuns(ctx context.Context) ([]settlement.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_start, period_end, total_payout, unmatched_count, created_at
		FROM settlement_runs
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlement runs: %w", err)
	}
	defer rows.Close()

	var runs []settlement.RunSummary
	for rows.Next() {
		var (
			r          settlement.RunSummary
			start, end string
			createdAt  string
		)
		if err := rows.Scan(&r.ID, &start, &end, &r.TotalPayout, &r.UnmatchedCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement run: %w", err)
		}
		r.Period = generic.Period{Start: generic.Date(start), End: generic.Date(end)}
		r.CreatedAt = parseTime(createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (points.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The store lock
// is held for the whole transaction, so concurrent debits are serialized.
func (s *Store) WithTx(ctx context.Context, fn func(points.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) AppendEntry(ctx context.Context, e points.LedgerEntry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) LoadEntries(ctx context.Context, userID generic.UserID) ([]points.LedgerEntry, error) {
	return loadEntries(ctx, ts.tx, userID)
}

func (ts *txStore) EntryExists(ctx context.Context, idempotencyKey string) (bool, error) {
	return entryExists(ctx, ts.tx, idempotencyKey)
}

func (ts *txStore) SaveGiftSend(ctx context.Context, g settlement.GiftSend) error {
	return saveGiftSend(ctx, ts.tx, g)
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
