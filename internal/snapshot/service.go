package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liquideth/vaultstat/internal/domain"
)

// topSeriesCount bounds the number of named history series; smaller series
// are folded into Others.
const topSeriesCount = 10

// Series is one named history line: a value per snapshot day.
type Series struct {
	Name   string            `json:"name"`
	Points []SeriesPoint     `json:"points"`
	Latest decimal.Decimal   `json:"latest"`
	values map[string]string // day -> value, build-time only
}

// SeriesPoint is one daily value of a history series.
type SeriesPoint struct {
	Day      string          `json:"day"` // YYYY-MM-DD
	USDValue decimal.Decimal `json:"usdValue"`
}

// Service persists hourly snapshots of refresh results and serves the
// history views derived from them.
type Service struct {
	repo Repository
}

// NewService creates a snapshot service.
func NewService(repo Repository) *Service {
	if repo == nil {
		panic("snapshot: repository is required")
	}
	return &Service{repo: repo}
}

// Write persists one refresh result: a category batch for the truncated hour
// plus the matching wallet-ledger rows. It reports whether anything was
// written — false means the result was empty or a batch for this hour
// already exists. Wallet rows are only appended alongside a written batch,
// so both logs advance in lockstep.
func (s *Service) Write(ctx context.Context, res domain.PipelineResult, now time.Time) (bool, error) {
	if res.Empty() {
		return false, nil
	}

	hour := now.UTC().Truncate(time.Hour)
	categories := buildCategoryRows(res, hour)

	written, err := s.repo.AppendHourly(ctx, hour, categories)
	if err != nil {
		return false, fmt.Errorf("writing hourly snapshot: %w", err)
	}
	if !written {
		return false, nil
	}

	wallets := buildWalletRows(res.WalletLedger, now)
	if err := s.repo.AppendWalletRows(ctx, wallets); err != nil {
		return true, fmt.Errorf("writing wallet snapshot: %w", err)
	}

	slog.Info("snapshot written",
		"hour", hour.Format(time.RFC3339),
		"categories", len(categories),
		"walletRows", len(wallets))
	return true, nil
}

// buildCategoryRows flattens the protocol and token-category breakdowns into
// one batch. The protocol breakdown already includes the wallet-balances
// pseudo-protocol. Values are rounded to cents.
func buildCategoryRows(res domain.PipelineResult, hour time.Time) []CategoryRow {
	rows := make([]CategoryRow, 0, len(res.ProtocolSums)+len(res.CategorySums))
	for _, s := range res.ProtocolSums {
		rows = append(rows, CategoryRow{
			Timestamp:   hour,
			HistoryType: HistoryTypeProtocol,
			Name:        s.Name,
			USDValue:    s.USDValue.Round(2),
		})
	}
	for _, s := range res.CategorySums {
		rows = append(rows, CategoryRow{
			Timestamp:   hour,
			HistoryType: HistoryTypeToken,
			Name:        s.Name,
			USDValue:    s.USDValue.Round(2),
		})
	}
	return rows
}

func buildWalletRows(ledger []domain.WalletBalanceRow, now time.Time) []WalletRow {
	ts := now.UTC().Truncate(time.Second)
	rows := make([]WalletRow, 0, len(ledger))
	for _, r := range ledger {
		rows = append(rows, WalletRow{
			FullAddress:  r.Wallet,
			Blockchain:   r.Chain,
			TokenSymbol:  r.Token,
			TokenBalance: r.Balance,
			USDValue:     r.USDValue.Round(2),
			Date:         ts.Format(DateLayout),
			Timestamp:    ts,
		})
	}
	return rows
}

// LoadHistory returns the full category history. A storage failure degrades
// to an empty history with a warning rather than failing the caller.
func (s *Service) LoadHistory(ctx context.Context) []CategoryRow {
	rows, err := s.repo.LoadHistory(ctx)
	if err != nil {
		slog.Warn("loading snapshot history failed", "error", err)
		return nil
	}
	return rows
}

// LoadWalletSnapshot returns the wallet ledger as of the given day: the rows
// of the day's latest write, deduplicated latest-wins per (wallet, chain,
// token).
func (s *Service) LoadWalletSnapshot(ctx context.Context, day time.Time) ([]WalletRow, error) {
	rows, err := s.repo.LoadWalletDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("loading wallet snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	latest := rows[0].Timestamp
	for _, r := range rows {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}

	index := make(map[string]int)
	var out []WalletRow
	for _, r := range rows {
		if !r.Timestamp.Equal(latest) {
			continue
		}
		if i, ok := index[r.Key()]; ok {
			out[i] = r
			continue
		}
		index[r.Key()] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// BuildSeries turns raw history rows of one type into charting series. Only
// each day's latest batch contributes, so intra-day snapshots never inflate
// a day. The top N series by most recent value keep their names; the rest
// are summed into Others per day.
func BuildSeries(rows []CategoryRow, historyType string) []Series {
	// latest batch hour per day
	latestHour := make(map[string]time.Time)
	for _, r := range rows {
		if r.HistoryType != historyType {
			continue
		}
		day := r.Timestamp.Format("2006-01-02")
		if r.Timestamp.After(latestHour[day]) {
			latestHour[day] = r.Timestamp
		}
	}
	if len(latestHour) == 0 {
		return nil
	}

	days := make([]string, 0, len(latestHour))
	for day := range latestHour {
		days = append(days, day)
	}
	sort.Strings(days)

	// per-name daily values from the winning batches
	index := make(map[string]int)
	var series []Series
	for _, r := range rows {
		if r.HistoryType != historyType {
			continue
		}
		day := r.Timestamp.Format("2006-01-02")
		if !r.Timestamp.Equal(latestHour[day]) {
			continue
		}
		i, ok := index[r.Name]
		if !ok {
			i = len(series)
			index[r.Name] = i
			series = append(series, Series{Name: r.Name, values: make(map[string]string)})
		}
		series[i].values[day] = r.USDValue.String()
		series[i].Latest = r.USDValue
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Latest.GreaterThan(series[j].Latest)
	})

	named := series
	var others []Series
	if len(series) > topSeriesCount {
		named = series[:topSeriesCount]
		others = series[topSeriesCount:]
	}

	out := make([]Series, 0, len(named)+1)
	for _, s := range named {
		out = append(out, materializeSeries(s, days))
	}
	if len(others) > 0 {
		merged := Series{Name: "Others", values: make(map[string]string)}
		for _, day := range days {
			sum := decimal.Zero
			for _, s := range others {
				if v, ok := s.values[day]; ok {
					d, err := decimal.NewFromString(v)
					if err != nil {
						continue
					}
					sum = sum.Add(d)
				}
			}
			merged.values[day] = sum.String()
			merged.Latest = sum
		}
		out = append(out, materializeSeries(merged, days))
	}
	return out
}

// materializeSeries converts the build-time day map into ordered points,
// filling days the series has no value for with zero.
func materializeSeries(s Series, days []string) Series {
	points := make([]SeriesPoint, 0, len(days))
	for _, day := range days {
		v := decimal.Zero
		if raw, ok := s.values[day]; ok {
			if d, err := decimal.NewFromString(raw); err == nil {
				v = d
			}
		}
		points = append(points, SeriesPoint{Day: day, USDValue: v})
	}
	return Series{Name: s.Name, Points: points, Latest: s.Latest}
}
