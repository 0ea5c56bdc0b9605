package snapshot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// History types of the hourly aggregate log.
const (
	HistoryTypeProtocol = "protocol"
	HistoryTypeToken    = "token"
)

// CategoryRow is one persisted hourly aggregate: a protocol or token-category
// USD sum tagged with the hour it was recorded.
type CategoryRow struct {
	Timestamp   time.Time       `json:"timestamp"` // hour-truncated, UTC
	HistoryType string          `json:"historyType"`
	Name        string          `json:"name"`
	USDValue    decimal.Decimal `json:"usdValue"`
}

// WalletRow is one persisted wallet-balance row, tagged with the exact write
// timestamp and its calendar day for point-in-time lookups.
type WalletRow struct {
	FullAddress  string          `json:"fullAddress"`
	Blockchain   string          `json:"blockchain"`
	TokenSymbol  string          `json:"tokenSymbol"`
	TokenBalance decimal.Decimal `json:"tokenBalance"`
	USDValue     decimal.Decimal `json:"usdValue"`
	Date         string          `json:"date"` // DD-MM-YYYY
	Timestamp    time.Time       `json:"timestamp"`
}

// Key identifies the row for latest-wins deduplication.
func (r WalletRow) Key() string {
	return r.FullAddress + "|" + r.Blockchain + "|" + r.TokenSymbol
}

// Repository is the append-only persistence behind the snapshot store.
//
// AppendHourly appends one batch of category rows for the given truncated
// hour and reports whether the batch was written: false means a batch for
// that hour already exists and the call was a no-op. Implementations decide
// how strong that guarantee is — the Postgres repository makes it an atomic
// conditional append, the Sheets repository a best-effort last-row check.
type Repository interface {
	AppendHourly(ctx context.Context, hour time.Time, rows []CategoryRow) (bool, error)
	AppendWalletRows(ctx context.Context, rows []WalletRow) error
	LoadHistory(ctx context.Context) ([]CategoryRow, error)
	LoadWalletDay(ctx context.Context, day time.Time) ([]WalletRow, error)
}

// DateLayout is the calendar-day format of wallet snapshot rows.
const DateLayout = "02-01-2006"
