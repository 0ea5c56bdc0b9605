package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgRepository implements Repository with PostgreSQL. The hour guard is an
// atomic conditional append: the hour-marker insert and the batch insert
// share one transaction, so concurrent refreshes within the same hour cannot
// double-write.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) AppendHourly(ctx context.Context, hour time.Time, rows []CategoryRow) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO snapshot_hours (hour) VALUES ($1) ON CONFLICT (hour) DO NOTHING`,
		hour.UTC())
	if err != nil {
		return false, fmt.Errorf("claiming snapshot hour: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil // hour already written
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO category_history (recorded_at, history_type, name, usd_value)
			 VALUES ($1, $2, $3, $4::numeric)`,
			row.Timestamp.UTC(), row.HistoryType, row.Name, row.USDValue.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("appending category history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing snapshot: %w", err)
	}
	return true, nil
}

func (r *PgRepository) AppendWalletRows(ctx context.Context, rows []WalletRow) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO wallet_history
			   (full_address, blockchain, token_symbol, token_balance, usd_value, day, recorded_at)
			 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)`,
			row.FullAddress, row.Blockchain, row.TokenSymbol,
			row.TokenBalance.String(), row.USDValue.String(),
			row.Timestamp.UTC().Truncate(24*time.Hour), row.Timestamp.UTC())
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("appending wallet history: %w", err)
	}
	return nil
}

func (r *PgRepository) LoadHistory(ctx context.Context) ([]CategoryRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT recorded_at, history_type, name, usd_value::text
		 FROM category_history
		 ORDER BY recorded_at`)
	if err != nil {
		return nil, fmt.Errorf("loading category history: %w", err)
	}
	defer rows.Close()

	var out []CategoryRow
	skipped := 0
	for rows.Next() {
		var row CategoryRow
		var value string
		if err := rows.Scan(&row.Timestamp, &row.HistoryType, &row.Name, &value); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			skipped++
			continue
		}
		row.Timestamp = row.Timestamp.UTC()
		row.USDValue = v
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	if skipped > 0 {
		slog.Warn("skipped history rows with unparsable values", "count", skipped)
	}
	return out, nil
}

func (r *PgRepository) LoadWalletDay(ctx context.Context, day time.Time) ([]WalletRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT full_address, blockchain, token_symbol, token_balance::text, usd_value::text, recorded_at
		 FROM wallet_history
		 WHERE day = $1
		 ORDER BY recorded_at`,
		day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("loading wallet history for %s: %w", day.Format(DateLayout), err)
	}
	defer rows.Close()

	var out []WalletRow
	for rows.Next() {
		var row WalletRow
		var balance, value string
		if err := rows.Scan(&row.FullAddress, &row.Blockchain, &row.TokenSymbol, &balance, &value, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning wallet row: %w", err)
		}
		b, err1 := decimal.NewFromString(balance)
		v, err2 := decimal.NewFromString(value)
		if err1 != nil || err2 != nil {
			continue
		}
		row.TokenBalance = b
		row.USDValue = v
		row.Timestamp = row.Timestamp.UTC()
		row.Date = row.Timestamp.Format(DateLayout)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet rows: %w", err)
	}
	return out, nil
}
