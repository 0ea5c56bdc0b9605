package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liquideth/vaultstat/internal/category"
	"github.com/liquideth/vaultstat/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func balanceRow(wallet, chain, token, usd string) domain.WalletBalanceRow {
	return domain.WalletBalanceRow{
		Wallet:    wallet,
		Chain:     chain,
		Token:     token,
		Balance:   dec("1"),
		USDValue:  dec(usd),
		FetchedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func positionRow(protocol, cls, chain, pool, token, balance, usd string) domain.ProtocolPositionRow {
	return domain.ProtocolPositionRow{
		Protocol:       protocol,
		Classification: cls,
		Chain:          chain,
		PoolID:         pool,
		Wallet:         "0xabc",
		Token:          token,
		Balance:        dec(balance),
		USDValue:       dec(usd),
	}
}

func TestDustFilterExcludesBothLedgers(t *testing.T) {
	res := Run(Input{
		Balances: []domain.WalletBalanceRow{
			balanceRow("0xabc", "Ethereum", "ETH", "6000"),
			balanceRow("0xabc", "Ethereum", "SHIB", "0.99"),
		},
		Positions: []domain.ProtocolPositionRow{
			positionRow("Aave V3", "Lending", "Ethereum", "", "USDC", "1000", "1000"),
			positionRow("Aave V3", "Lending", "Ethereum", "", "DUST", "0.5", "0.50"),
			positionRow("Aave V3", "Lending", "Ethereum", "", "WETH", "-0.5", "-1500"), // negative but above floor
		},
	})

	if len(res.WalletLedger) != 1 {
		t.Errorf("wallet ledger has %d rows, want 1", len(res.WalletLedger))
	}
	if len(res.ProtocolLedger) != 2 {
		t.Errorf("protocol ledger has %d rows, want 2", len(res.ProtocolLedger))
	}
	for _, s := range res.CategorySums {
		if s.Name == "Others" && s.USDValue.Equal(dec("0.99")) {
			t.Error("dust row leaked into category sums")
		}
	}
}

func TestDedupeBalancesMostRecentWins(t *testing.T) {
	older := balanceRow("0xabc", "Ethereum", "ETH", "5900")
	newer := balanceRow("0xabc", "Ethereum", "ETH", "6000")
	newer.FetchedAt = older.FetchedAt.Add(time.Minute)

	res := Run(Input{Balances: []domain.WalletBalanceRow{older, newer}})
	if len(res.WalletLedger) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.WalletLedger))
	}
	if !res.WalletLedger[0].USDValue.Equal(dec("6000")) {
		t.Errorf("kept row value = %s, want the most recent 6000", res.WalletLedger[0].USDValue)
	}
}

func TestDedupePositionsSumsLegs(t *testing.T) {
	res := Run(Input{Positions: []domain.ProtocolPositionRow{
		positionRow("Curve", "Liquidity Pool", "Ethereum", "p1", "WETH", "1", "3000"),
		positionRow("Curve", "Liquidity Pool", "Ethereum", "p1", "WETH", "0.1", "300"), // reward leg
	}})
	if len(res.ProtocolLedger) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.ProtocolLedger))
	}
	if !res.ProtocolLedger[0].USDValue.Equal(dec("3300")) {
		t.Errorf("merged USD = %s, want 3300", res.ProtocolLedger[0].USDValue)
	}
}

func TestPoolCollapse(t *testing.T) {
	in := Input{Positions: []domain.ProtocolPositionRow{
		positionRow("Aerodrome", "Liquidity Pool", "Base", "pool-1", "WETH", "2", "6000"),
		positionRow("Aerodrome", "Liquidity Pool", "Base", "pool-1", "USDC", "6000", "6000"),
		positionRow("Aerodrome", "Liquidity Pool", "Base", "pool-1", "WETH", "0.1", "300"), // reward, same token
	}}

	res := Run(in)
	if len(res.PoolRows) != 1 {
		t.Fatalf("got %d pool rows, want 1", len(res.PoolRows))
	}
	row := res.PoolRows[0]
	if row.Token != "WETH + USDC" {
		t.Errorf("token field = %q, want \"WETH + USDC\"", row.Token)
	}
	if row.Balances != "2.1000 WETH + 6000.0000 USDC" {
		t.Errorf("balances field = %q", row.Balances)
	}
	if !row.USDValue.Equal(dec("12300")) {
		t.Errorf("pool USD = %s, want 12300", row.USDValue)
	}

	// idempotence: rerunning over the same input yields the identical row
	again := Run(in)
	if len(again.PoolRows) != 1 {
		t.Fatalf("rerun produced %d pool rows, want 1", len(again.PoolRows))
	}
	rerun := again.PoolRows[0]
	if rerun.Token != row.Token || rerun.Balances != row.Balances || !rerun.USDValue.Equal(row.USDValue) {
		t.Errorf("pool collapse is not idempotent: %+v vs %+v", rerun, row)
	}
}

func TestPoolCollapseSkipsPendle(t *testing.T) {
	res := Run(Input{Positions: []domain.ProtocolPositionRow{
		positionRow("Pendle V2", "Liquidity Pool", "Ethereum", "p9", "PT-weETH", "1", "3000"),
		positionRow("Pendle V2", "Liquidity Pool", "Ethereum", "p9", "YT-weETH", "1", "200"),
	}})
	if len(res.PoolRows) != 0 {
		t.Errorf("Pendle pools must not collapse, got %d rows", len(res.PoolRows))
	}
}

func TestChainSumConservation(t *testing.T) {
	res := Run(Input{
		Balances: []domain.WalletBalanceRow{
			balanceRow("0xabc", "Ethereum", "ETH", "6000"),
			balanceRow("0xabc", "Base", "USDC", "100"),
		},
		Positions: []domain.ProtocolPositionRow{
			positionRow("Aave V3", "Lending", "Ethereum", "", "USDC", "1000", "1000"),
			positionRow("Aave V3", "Lending", "Ethereum", "", "WETH", "-0.5", "-1500"),
			positionRow("Aerodrome", "Liquidity Pool", "Base", "p1", "AERO", "10", "20"),
		},
	})

	chainTotal := decimal.Zero
	for _, s := range res.ChainSums {
		chainTotal = chainTotal.Add(s.USDValue)
	}
	if !chainTotal.Equal(res.Totals.Total) {
		t.Errorf("chain sums total %s != overall total %s", chainTotal, res.Totals.Total)
	}

	// key-wise addition across both ledgers
	for _, s := range res.ChainSums {
		if s.Name == "Ethereum" && !s.USDValue.Equal(dec("5500")) {
			t.Errorf("Ethereum sum = %s, want 5500", s.USDValue)
		}
		if s.Name == "Base" && !s.USDValue.Equal(dec("120")) {
			t.Errorf("Base sum = %s, want 120", s.USDValue)
		}
	}
}

func TestProtocolSumsIncludeWalletBalances(t *testing.T) {
	res := Run(Input{
		Balances: []domain.WalletBalanceRow{balanceRow("0xabc", "Ethereum", "ETH", "6000")},
		Positions: []domain.ProtocolPositionRow{
			positionRow("Aave V3", "Lending", "Ethereum", "", "USDC", "1000", "1000"),
		},
	})

	found := false
	for _, s := range res.ProtocolSums {
		if s.Name == WalletBalancesName {
			found = true
			if !s.USDValue.Equal(dec("6000")) {
				t.Errorf("%s = %s, want 6000", WalletBalancesName, s.USDValue)
			}
		}
	}
	if !found {
		t.Error("protocol sums missing the Wallet Balances pseudo-protocol")
	}
	if res.ProtocolSums[0].Name != WalletBalancesName {
		t.Errorf("sums not value-descending: first is %q", res.ProtocolSums[0].Name)
	}
}

func TestChainFilterExemptsOffChain(t *testing.T) {
	res := Run(Input{
		Balances: []domain.WalletBalanceRow{
			balanceRow("0xabc", "Ethereum", "ETH", "6000"),
			balanceRow("0xabc", "Base", "USDC", "100"),
		},
		OffChain: []domain.ProtocolPositionRow{
			positionRow("CEX", "", "Solana", "", "SOL", "10", "1500"),
		},
		Chains: []string{"Ethereum"},
	})

	if len(res.WalletLedger) != 1 || res.WalletLedger[0].Chain != "Ethereum" {
		t.Errorf("chain filter not applied to balances: %+v", res.WalletLedger)
	}
	if len(res.ProtocolLedger) != 1 || res.ProtocolLedger[0].Protocol != "CEX" {
		t.Errorf("off-chain rows must bypass the chain filter: %+v", res.ProtocolLedger)
	}
}

func TestTruncateTopPreservesTotal(t *testing.T) {
	sums := []domain.CategorySum{
		{Name: "A", USDValue: dec("500")},
		{Name: "B", USDValue: dec("400")},
		{Name: "C", USDValue: dec("300")},
		{Name: "D", USDValue: dec("200")},
		{Name: "E", USDValue: dec("100")},
		{Name: "F", USDValue: dec("50")},
		{Name: "G", USDValue: dec("25")},
	}

	truncated := TruncateTop(sums, 5)
	if len(truncated) != 6 {
		t.Fatalf("got %d entries, want 6 (top-5 + Others)", len(truncated))
	}
	if truncated[5].Name != "Others" || !truncated[5].USDValue.Equal(dec("75")) {
		t.Errorf("Others bucket = %+v, want 75", truncated[5])
	}

	var full, trunc decimal.Decimal
	for _, s := range sums {
		full = full.Add(s.USDValue)
	}
	for _, s := range truncated {
		trunc = trunc.Add(s.USDValue)
	}
	if !full.Equal(trunc) {
		t.Errorf("truncation changed the total: %s != %s", trunc, full)
	}
}

func TestTruncateTopShortInput(t *testing.T) {
	sums := []domain.CategorySum{{Name: "A", USDValue: dec("10")}}
	truncated := TruncateTop(sums, 5)
	if len(truncated) != 1 || truncated[0].Name != "A" {
		t.Errorf("short input should pass through, got %+v", truncated)
	}
}

func TestTruncateTiesAreStable(t *testing.T) {
	sums := []domain.CategorySum{
		{Name: "first", USDValue: dec("100")},
		{Name: "second", USDValue: dec("100")},
		{Name: "third", USDValue: dec("100")},
	}
	sortSumsDesc(sums)
	if sums[0].Name != "first" || sums[1].Name != "second" || sums[2].Name != "third" {
		t.Errorf("equal values must keep insertion order, got %+v", sums)
	}
}

func TestCategorySums(t *testing.T) {
	classifier := category.NewClassifier([]category.Rule{
		{Keyword: "eth", Category: "ETH"},
		{Keyword: "usd", Category: "Stables"},
	})

	res := Run(Input{
		Balances: []domain.WalletBalanceRow{
			balanceRow("0xabc", "Ethereum", "ETH", "6000"),
			balanceRow("0xabc", "Ethereum", "USDC", "1000"),
		},
		Positions: []domain.ProtocolPositionRow{
			positionRow("Aave V3", "Lending", "Ethereum", "", "weETH", "1", "3300"),
			positionRow("Aave V3", "Lending", "Ethereum", "", "WBTC", "0.1", "9000"),
		},
		Classifier: classifier,
	})

	want := map[string]string{"ETH": "9300", "Stables": "1000", "Others": "9000"}
	if len(res.CategorySums) != len(want) {
		t.Fatalf("got %d categories, want %d: %+v", len(res.CategorySums), len(want), res.CategorySums)
	}
	for _, s := range res.CategorySums {
		if !s.USDValue.Equal(dec(want[s.Name])) {
			t.Errorf("category %s = %s, want %s", s.Name, s.USDValue, want[s.Name])
		}
	}
}

func TestEmptyInput(t *testing.T) {
	res := Run(Input{})
	if !res.Empty() {
		t.Error("empty input should produce an empty result")
	}
	if !res.Totals.Total.Equal(decimal.Zero) {
		t.Errorf("total = %s, want 0", res.Totals.Total)
	}
}
