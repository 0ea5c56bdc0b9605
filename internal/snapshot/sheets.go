package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// SheetStore is the subset of the sheets client the repository needs.
type SheetStore interface {
	ReadRange(ctx context.Context, a1Range string) ([][]string, error)
	LastRow(ctx context.Context, worksheet string) ([]string, error)
	Append(ctx context.Context, worksheet string, rows [][]any) error
	EnsureSheet(ctx context.Context, name string, header []any) error
}

// SheetsRepository implements Repository on two append-only worksheets. Its
// hour guard is advisory: it checks the worksheet's last row before
// appending, which is enough for a single writer but not for concurrent
// ones. Deployments that need the stronger guarantee use PgRepository.
type SheetsRepository struct {
	store           SheetStore
	historySheet    string
	walletSheet     string
	timestampLayout string
}

var historyHeader = []any{"timestamp", "history_type", "name", "usd_value"}

var walletHeader = []any{
	"full_address", "blockchain", "token_symbol",
	"token_balance", "usd_value", "date", "timestamp",
}

// NewSheetsRepository creates the repository and makes sure both worksheets
// exist with their header rows.
func NewSheetsRepository(ctx context.Context, store SheetStore, historySheet, walletSheet string) (*SheetsRepository, error) {
	if err := store.EnsureSheet(ctx, historySheet, historyHeader); err != nil {
		return nil, fmt.Errorf("ensuring history sheet: %w", err)
	}
	if err := store.EnsureSheet(ctx, walletSheet, walletHeader); err != nil {
		return nil, fmt.Errorf("ensuring wallet sheet: %w", err)
	}
	return &SheetsRepository{
		store:           store,
		historySheet:    historySheet,
		walletSheet:     walletSheet,
		timestampLayout: time.RFC3339,
	}, nil
}

func (r *SheetsRepository) AppendHourly(ctx context.Context, hour time.Time, rows []CategoryRow) (bool, error) {
	last, err := r.store.LastRow(ctx, r.historySheet)
	if err != nil {
		return false, fmt.Errorf("checking last history row: %w", err)
	}
	if len(last) > 0 {
		if ts, ok := parseSheetTime(last[0]); ok && !ts.Truncate(time.Hour).Before(hour) {
			return false, nil // batch for this hour already appended
		}
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{
			row.Timestamp.UTC().Format(r.timestampLayout),
			row.HistoryType,
			row.Name,
			row.USDValue.String(),
		})
	}
	if err := r.store.Append(ctx, r.historySheet, values); err != nil {
		return false, fmt.Errorf("appending history rows: %w", err)
	}
	return true, nil
}

func (r *SheetsRepository) AppendWalletRows(ctx context.Context, rows []WalletRow) error {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{
			row.FullAddress,
			row.Blockchain,
			row.TokenSymbol,
			row.TokenBalance.String(),
			row.USDValue.String(),
			row.Date,
			row.Timestamp.UTC().Format(r.timestampLayout),
		})
	}
	if err := r.store.Append(ctx, r.walletSheet, values); err != nil {
		return fmt.Errorf("appending wallet rows: %w", err)
	}
	return nil
}

func (r *SheetsRepository) LoadHistory(ctx context.Context) ([]CategoryRow, error) {
	raw, err := r.store.ReadRange(ctx, r.historySheet+"!A:D")
	if err != nil {
		return nil, fmt.Errorf("reading history sheet: %w", err)
	}

	var out []CategoryRow
	skipped := 0
	for i, row := range raw {
		if i == 0 || len(row) < 4 {
			continue
		}
		ts, ok := parseSheetTime(row[0])
		if !ok {
			skipped++
			continue
		}
		value, err := decimal.NewFromString(row[3])
		if err != nil {
			skipped++
			continue
		}
		out = append(out, CategoryRow{
			Timestamp:   ts,
			HistoryType: row[1],
			Name:        row[2],
			USDValue:    value,
		})
	}
	if skipped > 0 {
		slog.Warn("skipped malformed history sheet rows", "count", skipped, "sheet", r.historySheet)
	}
	return out, nil
}

func (r *SheetsRepository) LoadWalletDay(ctx context.Context, day time.Time) ([]WalletRow, error) {
	raw, err := r.store.ReadRange(ctx, r.walletSheet+"!A:G")
	if err != nil {
		return nil, fmt.Errorf("reading wallet sheet: %w", err)
	}

	date := day.UTC().Format(DateLayout)
	var out []WalletRow
	for i, row := range raw {
		if i == 0 || len(row) < 7 || row[5] != date {
			continue
		}
		balance, err1 := decimal.NewFromString(row[3])
		value, err2 := decimal.NewFromString(row[4])
		ts, ok := parseSheetTime(row[6])
		if err1 != nil || err2 != nil || !ok {
			continue
		}
		out = append(out, WalletRow{
			FullAddress:  row[0],
			Blockchain:   row[1],
			TokenSymbol:  row[2],
			TokenBalance: balance,
			USDValue:     value,
			Date:         row[5],
			Timestamp:    ts,
		})
	}
	return out, nil
}

// parseSheetTime accepts both RFC3339 and the zone-less layout older rows
// were written with.
func parseSheetTime(s string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), true
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}
