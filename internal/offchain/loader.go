package offchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/liquideth/vaultstat/internal/domain"
)

// RangeReader reads a worksheet range as string rows.
type RangeReader interface {
	ReadRange(ctx context.Context, a1Range string) ([][]string, error)
}

// PriceSource resolves token symbols to USD prices. Off-chain rows carry no
// embedded price, so the oracle is their only pricing path.
type PriceSource interface {
	Prices(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Loader reads manually recorded off-chain balances and prices them through
// the oracle, emitting rows shaped like protocol positions so they merge
// into the protocol ledger.
type Loader struct {
	reader    RangeReader
	prices    PriceSource
	worksheet string
}

// NewLoader creates an off-chain balance Loader.
func NewLoader(reader RangeReader, prices PriceSource, worksheet string) *Loader {
	return &Loader{reader: reader, prices: prices, worksheet: worksheet}
}

// Load returns priced off-chain rows plus any non-fatal warnings. Rows whose
// token has no oracle price are dropped; a sheet or oracle failure degrades
// to an empty result.
func (l *Loader) Load(ctx context.Context) ([]domain.ProtocolPositionRow, []string) {
	rows, err := l.reader.ReadRange(ctx, l.worksheet+"!A:E")
	if err != nil {
		w := fmt.Sprintf("off-chain sheet fetch failed, skipping: %v", err)
		slog.Warn(w)
		return nil, []string{w}
	}
	if len(rows) < 2 {
		return nil, nil
	}

	prices, err := l.prices.Prices(ctx)
	if err != nil {
		w := fmt.Sprintf("oracle price fetch failed, off-chain balances skipped: %v", err)
		slog.Warn(w)
		return nil, []string{w}
	}

	var out []domain.ProtocolPositionRow
	dropped := 0
	for _, row := range rows[1:] { // skip header
		if len(row) < 5 {
			continue
		}
		wallet, chain, symbol, balanceStr, protocol := row[0], row[1], row[2], row[3], row[4]
		if symbol == "" || balanceStr == "" {
			continue
		}

		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			dropped++
			continue
		}
		price, ok := prices[symbol]
		if !ok {
			dropped++
			continue
		}

		out = append(out, domain.ProtocolPositionRow{
			Protocol: protocol,
			Chain:    chain,
			Wallet:   wallet,
			Token:    symbol,
			Balance:  balance,
			USDValue: balance.Mul(price),
		})
	}

	var warnings []string
	if dropped > 0 {
		w := fmt.Sprintf("dropped %d off-chain row(s) with no price or unparsable balance", dropped)
		slog.Warn(w)
		warnings = append(warnings, w)
	}
	return out, warnings
}
