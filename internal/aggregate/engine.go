package aggregate

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/liquideth/vaultstat/internal/category"
	"github.com/liquideth/vaultstat/internal/domain"
)

// dustThresholdUSD is the fixed economic floor: rows below $1 absolute value
// are excluded from every ledger and aggregate.
var dustThresholdUSD = decimal.NewFromInt(1)

// WalletBalancesName is the pseudo-protocol under which plain wallet
// holdings appear in the protocol breakdown and in snapshots.
const WalletBalancesName = "Wallet Balances"

// topProtocolCount bounds the presentation copy of the protocol breakdown.
const topProtocolCount = 5

// Input is the full row set collected for one refresh. Chains filters by
// display name (empty means all); off-chain rows are exempt from the chain
// filter but not from the dust filter.
type Input struct {
	Balances   []domain.WalletBalanceRow
	Positions  []domain.ProtocolPositionRow
	OffChain   []domain.ProtocolPositionRow
	Chains     []string
	Classifier *category.Classifier
}

// Run executes the aggregation pipeline over the collected rows. It is a
// pure function: the same input always yields the identical result, and
// fetch order never affects aggregate values (only value-ordered tie-breaks).
//
// Processing order is fixed: filter chains, filter dust, merge off-chain,
// aggregate.
func Run(in Input) domain.PipelineResult {
	balances := filterDustBalances(filterChainsBalances(in.Balances, in.Chains))
	positions := filterDustPositions(filterChainsPositions(in.Positions, in.Chains))
	positions = append(positions, filterDustPositions(in.OffChain)...)

	walletLedger := dedupeBalances(balances)
	protocolLedger := dedupePositions(positions)
	poolRows := collapsePools(protocolLedger)

	walletTotal := sumBalances(walletLedger)
	defiTotal := sumPositions(protocolLedger)

	protocolSums := groupSumPositions(protocolLedger, func(r domain.ProtocolPositionRow) string { return r.Protocol })
	protocolSums = append(protocolSums, domain.CategorySum{Name: WalletBalancesName, USDValue: walletTotal})
	sortSumsDesc(protocolSums)

	return domain.PipelineResult{
		WalletLedger:   walletLedger,
		ProtocolLedger: protocolLedger,
		PoolRows:       poolRows,
		ChainSums:      chainSums(walletLedger, protocolLedger),
		ProtocolSums:   protocolSums,
		TopProtocols:   TruncateTop(protocolSums, topProtocolCount),
		CategorySums:   categorySums(walletLedger, protocolLedger, in.Classifier),
		Totals: domain.Totals{
			Total:   walletTotal.Add(defiTotal),
			DeFi:    defiTotal,
			Wallets: walletTotal,
		},
	}
}

func filterChainsBalances(rows []domain.WalletBalanceRow, chains []string) []domain.WalletBalanceRow {
	if len(chains) == 0 {
		return rows
	}
	allowed := lo.SliceToMap(chains, func(c string) (string, struct{}) { return c, struct{}{} })
	return lo.Filter(rows, func(r domain.WalletBalanceRow, _ int) bool {
		_, ok := allowed[r.Chain]
		return ok
	})
}

func filterChainsPositions(rows []domain.ProtocolPositionRow, chains []string) []domain.ProtocolPositionRow {
	if len(chains) == 0 {
		return rows
	}
	allowed := lo.SliceToMap(chains, func(c string) (string, struct{}) { return c, struct{}{} })
	return lo.Filter(rows, func(r domain.ProtocolPositionRow, _ int) bool {
		_, ok := allowed[r.Chain]
		return ok
	})
}

func filterDustBalances(rows []domain.WalletBalanceRow) []domain.WalletBalanceRow {
	return lo.Filter(rows, func(r domain.WalletBalanceRow, _ int) bool {
		return r.USDValue.Abs().GreaterThanOrEqual(dustThresholdUSD)
	})
}

func filterDustPositions(rows []domain.ProtocolPositionRow) []domain.ProtocolPositionRow {
	return lo.Filter(rows, func(r domain.ProtocolPositionRow, _ int) bool {
		return r.USDValue.Abs().GreaterThanOrEqual(dustThresholdUSD)
	})
}

// dedupeBalances collapses duplicate (wallet, chain, token) keys, keeping the
// most recently fetched row per key. First-seen order is preserved.
func dedupeBalances(rows []domain.WalletBalanceRow) []domain.WalletBalanceRow {
	index := make(map[string]int, len(rows))
	out := make([]domain.WalletBalanceRow, 0, len(rows))
	for _, r := range rows {
		key := r.Key()
		if i, ok := index[key]; ok {
			if r.FetchedAt.After(out[i].FetchedAt) {
				out[i] = r
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// dedupePositions merges legs sharing the full position key by summing
// balances and USD values, so a supply and a reward leg of the same pool
// token become one ledger row. First-seen order is preserved.
func dedupePositions(rows []domain.ProtocolPositionRow) []domain.ProtocolPositionRow {
	index := make(map[string]int, len(rows))
	out := make([]domain.ProtocolPositionRow, 0, len(rows))
	for _, r := range rows {
		key := r.Key()
		if i, ok := index[key]; ok {
			out[i].Balance = out[i].Balance.Add(r.Balance)
			out[i].USDValue = out[i].USDValue.Add(r.USDValue)
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// chainSums adds wallet-ledger and protocol-ledger per-chain totals key-wise,
// treating missing keys as zero. The full list is returned (no truncation),
// value-descending.
func chainSums(wallet []domain.WalletBalanceRow, protocol []domain.ProtocolPositionRow) []domain.CategorySum {
	acc := newGroupAccumulator()
	for _, r := range wallet {
		acc.add(r.Chain, r.USDValue)
	}
	for _, r := range protocol {
		acc.add(r.Chain, r.USDValue)
	}
	return acc.sorted()
}

// categorySums classifies every ledger token into a category and sums USD
// values per category.
func categorySums(wallet []domain.WalletBalanceRow, protocol []domain.ProtocolPositionRow, classifier *category.Classifier) []domain.CategorySum {
	acc := newGroupAccumulator()
	for _, r := range wallet {
		acc.add(classifier.Classify(r.Token), r.USDValue)
	}
	for _, r := range protocol {
		acc.add(classifier.Classify(r.Token), r.USDValue)
	}
	return acc.sorted()
}

func groupSumPositions(rows []domain.ProtocolPositionRow, key func(domain.ProtocolPositionRow) string) []domain.CategorySum {
	acc := newGroupAccumulator()
	for _, r := range rows {
		acc.add(key(r), r.USDValue)
	}
	return acc.entries()
}

func sumBalances(rows []domain.WalletBalanceRow) decimal.Decimal {
	return lo.Reduce(rows, func(acc decimal.Decimal, r domain.WalletBalanceRow, _ int) decimal.Decimal {
		return acc.Add(r.USDValue)
	}, decimal.Zero)
}

func sumPositions(rows []domain.ProtocolPositionRow) decimal.Decimal {
	return lo.Reduce(rows, func(acc decimal.Decimal, r domain.ProtocolPositionRow, _ int) decimal.Decimal {
		return acc.Add(r.USDValue)
	}, decimal.Zero)
}

// groupAccumulator sums values per key while remembering first-seen order,
// which serves as the deterministic tie-break when sorting by value.
type groupAccumulator struct {
	index map[string]int
	sums  []domain.CategorySum
}

func newGroupAccumulator() *groupAccumulator {
	return &groupAccumulator{index: make(map[string]int)}
}

func (a *groupAccumulator) add(key string, v decimal.Decimal) {
	if i, ok := a.index[key]; ok {
		a.sums[i].USDValue = a.sums[i].USDValue.Add(v)
		return
	}
	a.index[key] = len(a.sums)
	a.sums = append(a.sums, domain.CategorySum{Name: key, USDValue: v})
}

func (a *groupAccumulator) entries() []domain.CategorySum {
	return a.sums
}

func (a *groupAccumulator) sorted() []domain.CategorySum {
	sortSumsDesc(a.sums)
	return a.sums
}

// sortSumsDesc orders sums by value descending. The sort is stable so equal
// values keep their grouping insertion order rather than arrival order of
// any concurrent fetch.
func sortSumsDesc(sums []domain.CategorySum) {
	sort.SliceStable(sums, func(i, j int) bool {
		return sums[i].USDValue.GreaterThan(sums[j].USDValue)
	})
}

// poolCollapseExceptions lists protocols whose "Liquidity Pool" positions
// are two-leg staking-yield pairs that must stay as separate rows.
var poolCollapseExceptions = map[string]bool{
	"Pendle":    true,
	"Pendle V2": true,
}

// collapsePools emits one synthetic row per liquidity pool: legs sharing a
// (protocol, pool) are grouped per token symbol, and the row concatenates
// the ordered token symbols and their formatted balances. Running the
// collapse twice over the same ledger yields identical rows.
func collapsePools(ledger []domain.ProtocolPositionRow) []domain.PoolRow {
	type poolGroup struct {
		rows []domain.ProtocolPositionRow
	}

	index := make(map[string]int)
	var groups []*poolGroup
	for _, r := range ledger {
		if r.Classification != "Liquidity Pool" || poolCollapseExceptions[r.Protocol] || r.PoolID == "" {
			continue
		}
		key := r.Protocol + "|" + r.PoolID
		if i, ok := index[key]; ok {
			groups[i].rows = append(groups[i].rows, r)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, &poolGroup{rows: []domain.ProtocolPositionRow{r}})
	}

	out := make([]domain.PoolRow, 0, len(groups))
	for _, g := range groups {
		// per-token sums within the pool, ordered by first appearance
		tokenIdx := make(map[string]int)
		type tokenSum struct {
			token   string
			balance decimal.Decimal
		}
		var tokens []tokenSum
		total := decimal.Zero
		for _, r := range g.rows {
			total = total.Add(r.USDValue)
			if i, ok := tokenIdx[r.Token]; ok {
				tokens[i].balance = tokens[i].balance.Add(r.Balance)
				continue
			}
			tokenIdx[r.Token] = len(tokens)
			tokens = append(tokens, tokenSum{token: r.Token, balance: r.Balance})
		}

		symbols := make([]string, len(tokens))
		balances := make([]string, len(tokens))
		for i, t := range tokens {
			symbols[i] = t.token
			balances[i] = domain.FormatBalance(t.balance) + " " + t.token
		}

		first := g.rows[0]
		out = append(out, domain.PoolRow{
			Protocol:       first.Protocol,
			Classification: first.Classification,
			Chain:          first.Chain,
			PoolID:         first.PoolID,
			Wallet:         first.Wallet,
			Token:          strings.Join(symbols, " + "),
			Balances:       strings.Join(balances, " + "),
			USDValue:       total,
		})
	}
	return out
}

// TruncateTop keeps the N largest sums and buckets the remainder into
// "Others". The input must already be value-descending; the bucketed total
// equals the untruncated total exactly.
func TruncateTop(sums []domain.CategorySum, n int) []domain.CategorySum {
	if len(sums) <= n {
		return append([]domain.CategorySum(nil), sums...)
	}
	out := append([]domain.CategorySum(nil), sums[:n]...)
	rest := decimal.Zero
	for _, s := range sums[n:] {
		rest = rest.Add(s.USDValue)
	}
	return append(out, domain.CategorySum{Name: "Others", USDValue: rest})
}
