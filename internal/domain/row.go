package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletBalanceRow is one token holding of a tracked wallet on a single chain.
// Balance and USDValue are signed decimals; FetchedAt records when the row was
// produced so that duplicate keys can be resolved most-recent-first.
type WalletBalanceRow struct {
	Wallet    string          `json:"wallet"`
	Chain     string          `json:"chain"`
	Token     string          `json:"token"`
	Balance   decimal.Decimal `json:"tokenBalance"`
	USDValue  decimal.Decimal `json:"usdValue"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Key identifies the row for deduplication.
func (r WalletBalanceRow) Key() string {
	return r.Wallet + "|" + r.Chain + "|" + r.Token
}

// ProtocolPositionRow is one leg of a DeFi protocol position. Borrow legs
// carry negative Balance and USDValue so that debt reduces aggregate sums.
type ProtocolPositionRow struct {
	Protocol       string          `json:"protocol"`
	Classification string          `json:"classification"`
	Chain          string          `json:"chain"`
	PoolID         string          `json:"poolId,omitempty"`
	Wallet         string          `json:"wallet"`
	Token          string          `json:"token"`
	Balance        decimal.Decimal `json:"tokenBalance"`
	USDValue       decimal.Decimal `json:"usdValue"`
}

// Key identifies the leg for deduplication within one refresh.
func (r ProtocolPositionRow) Key() string {
	return r.Protocol + "|" + r.Classification + "|" + r.Chain + "|" + r.PoolID + "|" + r.Wallet + "|" + r.Token
}

// PoolRow is the synthetic row produced by collapsing all legs of one
// liquidity pool: Token lists every pool token ("tokenA + tokenB"), Balances
// the matching formatted per-token balances, USDValue the sum across legs.
type PoolRow struct {
	Protocol       string          `json:"protocol"`
	Classification string          `json:"classification"`
	Chain          string          `json:"chain"`
	PoolID         string          `json:"poolId"`
	Wallet         string          `json:"wallet"`
	Token          string          `json:"token"`
	Balances       string          `json:"tokenBalance"`
	USDValue       decimal.Decimal `json:"usdValue"`
}

// CategorySum is a derived aggregate over one grouping dimension (chain,
// protocol or token category). Recomputed on every refresh, never persisted
// except through the snapshot store.
type CategorySum struct {
	Name     string          `json:"name"`
	USDValue decimal.Decimal `json:"usdValue"`
}

// Totals are the headline counters of one refresh.
type Totals struct {
	Total   decimal.Decimal `json:"total"`
	DeFi    decimal.Decimal `json:"defi"`
	Wallets decimal.Decimal `json:"wallets"`
}

// PipelineResult is the full output of one refresh cycle. All slices are
// freshly built value records; an empty section is a valid result.
type PipelineResult struct {
	WalletLedger   []WalletBalanceRow    `json:"walletLedger"`
	ProtocolLedger []ProtocolPositionRow `json:"protocolLedger"`
	PoolRows       []PoolRow             `json:"poolRows"`
	ChainSums      []CategorySum         `json:"chainSums"`
	ProtocolSums   []CategorySum         `json:"protocolSums"`
	TopProtocols   []CategorySum         `json:"topProtocols"`
	CategorySums   []CategorySum         `json:"categorySums"`
	Totals         Totals                `json:"totals"`
	Warnings       []string              `json:"warnings,omitempty"`
	FetchedAt      time.Time             `json:"fetchedAt"`
}

// Empty reports whether the refresh produced no rows at all.
func (r PipelineResult) Empty() bool {
	return len(r.WalletLedger) == 0 && len(r.ProtocolLedger) == 0
}
