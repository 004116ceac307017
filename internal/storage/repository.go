package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listDecisionsBetweenSQL = `SELECT
        asset_id,
        decided_at,
        target_weight::text,
        previous_target_weight::text,
        weight_change::text,
        current_weight::text,
        COALESCE(management_status, ''),
        COALESCE(rationale, ''),
        target_return::text,
        stop_loss::text,
        confidence::text,
        urgency::text,
        expected_volatility::text,
        COALESCE(risk_assessment, ''),
        COALESCE(market_regime, '')
    FROM cio_portfolio_decisions
    WHERE decided_at >= $1
      AND decided_at < $2
    ORDER BY decided_at DESC;`

	listHoldingStatusesSQL = `SELECT
        asset_id,
        COALESCE(management_status, ''),
        updated_at
    FROM holding_status
    ORDER BY updated_at ASC, asset_id ASC;`

	countDecisionsBetweenSQL = `SELECT COUNT(*)
    FROM cio_portfolio_decisions
    WHERE decided_at >= $1
      AND decided_at < $2;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// DecisionSource reads decisions and the authoritative holding status.
type DecisionSource interface {
	ListDecisionsBetween(ctx context.Context, from, to time.Time) ([]DecisionRecord, error)
	ListHoldingStatuses(ctx context.Context) ([]HoldingStatus, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store reads CIO decisions from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// a failed unlock is released with the session
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListDecisionsBetween lists decisions in [from, to), newest first.
func (s *Store) ListDecisionsBetween(ctx context.Context, from, to time.Time) ([]DecisionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listDecisionsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list decisions between: %w", queryErr)
	}
	defer rows.Close()

	records := make([]DecisionRecord, 0)
	for rows.Next() {
		rec, scanErr := scanDecision(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListHoldingStatuses lists the holding status table, oldest update first.
func (s *Store) ListHoldingStatuses(ctx context.Context) ([]HoldingStatus, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHoldingStatusesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list holding statuses: %w", queryErr)
	}
	defer rows.Close()

	statuses := make([]HoldingStatus, 0)
	for rows.Next() {
		var h HoldingStatus
		if err := rows.Scan(&h.AssetID, &h.ManagementStatus, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holding status: %w", err)
		}
		statuses = append(statuses, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return statuses, nil
}

// CountDecisionsBetween counts decisions in [from, to).
func (s *Store) CountDecisionsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countDecisionsBetweenSQL, from, to).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count decisions: %w", scanErr)
	}
	return count, nil
}

func scanDecision(rows pgx.Rows) (DecisionRecord, error) {
	var (
		rec                                         DecisionRecord
		targetStr, currentStr                       string
		previous, change                            sql.NullString
		targetReturn, stopLoss, confidence, urgency sql.NullString
		expectedVol                                 sql.NullString
	)

	if err := rows.Scan(
		&rec.AssetID,
		&rec.DecidedAt,
		&targetStr,
		&previous,
		&change,
		&currentStr,
		&rec.ManagementStatus,
		&rec.Rationale,
		&targetReturn,
		&stopLoss,
		&confidence,
		&urgency,
		&expectedVol,
		&rec.RiskAssessment,
		&rec.MarketRegime,
	); err != nil {
		return DecisionRecord{}, fmt.Errorf("scan decision: %w", err)
	}

	var err error
	if rec.TargetWeight, err = decimal.NewFromString(targetStr); err != nil {
		return DecisionRecord{}, fmt.Errorf("parse target weight: %w", err)
	}
	if rec.CurrentWeight, err = decimal.NewFromString(currentStr); err != nil {
		return DecisionRecord{}, fmt.Errorf("parse current weight: %w", err)
	}

	optional := []struct {
		name string
		src  sql.NullString
		dst  **decimal.Decimal
	}{
		{"previous target weight", previous, &rec.PreviousTargetWeight},
		{"weight change", change, &rec.WeightChange},
		{"target return", targetReturn, &rec.TargetReturn},
		{"stop loss", stopLoss, &rec.StopLoss},
		{"confidence", confidence, &rec.Confidence},
		{"urgency", urgency, &rec.Urgency},
		{"expected volatility", expectedVol, &rec.ExpectedVolatility},
	}
	for _, field := range optional {
		value, parseErr := parseNullDecimal(field.src)
		if parseErr != nil {
			return DecisionRecord{}, fmt.Errorf("parse %s: %w", field.name, parseErr)
		}
		*field.dst = value
	}

	return rec, nil
}

func parseNullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
