package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/liquideth/vaultstat/internal/debank"
	"github.com/liquideth/vaultstat/internal/domain"
)

// DebankAPI defines the wallet-analytics endpoints the fetcher consumes.
type DebankAPI interface {
	AllTokenList(ctx context.Context, wallet string, chainIDs []string) ([]debank.Token, error)
	AllComplexProtocolList(ctx context.Context, wallet string, chainIDs []string) ([]debank.Protocol, error)
}

// fetchConcurrency bounds parallel per-wallet fetches. Aggregation is order
// independent, so parallel fetches only need results reassembled in wallet
// order to keep truncation tie-breaks deterministic.
const fetchConcurrency = 4

// Service fetches and normalizes wallet balances and protocol positions.
// Results are memoized per (wallet, chain-set) for the cache TTL so a burst
// of refreshes does not hammer the API.
type Service struct {
	api    DebankAPI
	chains []string
	cache  *gocache.Cache
	now    func() time.Time
}

// NewService creates a fetcher Service. cacheTTL bounds how long a
// (wallet, chain-set) result is reused.
func NewService(api DebankAPI, chains []string, cacheTTL time.Duration) *Service {
	if api == nil {
		panic("fetcher.NewService: api is nil")
	}
	return &Service{
		api:    api,
		chains: chains,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		now:    time.Now,
	}
}

type walletResult struct {
	balances  []domain.WalletBalanceRow
	positions []domain.ProtocolPositionRow
	warnings  []string
}

// FetchAll fetches balances and positions for every wallet. Wallets are
// fetched concurrently but results are reassembled in wallet order.
// Malformed addresses are rejected before any network call; transport
// failures yield empty rows plus a warning, never an error.
func (s *Service) FetchAll(ctx context.Context, wallets []string) ([]domain.WalletBalanceRow, []domain.ProtocolPositionRow, []string) {
	results := make([]walletResult, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, wallet := range wallets {
		g.Go(func() error {
			results[i] = s.fetchWallet(gctx, wallet)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures become warnings

	var balances []domain.WalletBalanceRow
	var positions []domain.ProtocolPositionRow
	var warnings []string
	for _, res := range results {
		balances = append(balances, res.balances...)
		positions = append(positions, res.positions...)
		warnings = append(warnings, res.warnings...)
	}
	return balances, positions, warnings
}

func (s *Service) fetchWallet(ctx context.Context, wallet string) walletResult {
	if !domain.ValidAddress(wallet) {
		w := fmt.Sprintf("rejected malformed wallet address %q", wallet)
		slog.Warn(w)
		return walletResult{warnings: []string{w}}
	}

	key := wallet + "|" + strings.Join(s.chains, ",")
	if cached, ok := s.cache.Get(key); ok {
		return cached.(walletResult)
	}

	res := walletResult{}
	fetchedAt := s.now().UTC()

	tokens, err := s.api.AllTokenList(ctx, wallet, s.chains)
	if err != nil {
		w := fmt.Sprintf("Debank %s all_token_list failed: %v", domain.ShortAddress(wallet), err)
		slog.Warn(w)
		res.warnings = append(res.warnings, w)
	} else {
		res.balances = normalizeBalances(wallet, tokens, fetchedAt)
	}

	protocols, err := s.api.AllComplexProtocolList(ctx, wallet, s.chains)
	if err != nil {
		w := fmt.Sprintf("Debank %s complex_protocol_list failed: %v", domain.ShortAddress(wallet), err)
		slog.Warn(w)
		res.warnings = append(res.warnings, w)
	} else {
		res.positions = normalizePositions(wallet, protocols)
	}

	// Only fully successful fetches are memoized, so a failed wallet is
	// retried on the next refresh instead of caching its empty result.
	if len(res.warnings) == 0 {
		s.cache.SetDefault(key, res)
	}
	return res
}

// normalizeBalances flattens a token list into wallet-balance rows. Tokens
// without a strictly positive price or amount are not economically
// meaningful to the ledger and are dropped.
func normalizeBalances(wallet string, tokens []debank.Token, fetchedAt time.Time) []domain.WalletBalanceRow {
	rows := make([]domain.WalletBalanceRow, 0, len(tokens))
	for _, t := range tokens {
		if t.Price <= 0 || t.Amount <= 0 {
			continue
		}
		amount := decimal.NewFromFloat(t.Amount)
		price := decimal.NewFromFloat(t.Price)
		rows = append(rows, domain.WalletBalanceRow{
			Wallet:    wallet,
			Chain:     domain.ChainName(t.ChainRef()),
			Token:     t.PreferredSymbol(),
			Balance:   amount,
			USDValue:  amount.Mul(price),
			FetchedAt: fetchedAt,
		})
	}
	return rows
}

// normalizePositions flattens nested protocol positions into one row per
// token leg. Borrow legs are sign-negated so debt reduces the protocol's net
// contribution in aggregate sums.
func normalizePositions(wallet string, protocols []debank.Protocol) []domain.ProtocolPositionRow {
	var rows []domain.ProtocolPositionRow
	for _, p := range protocols {
		chain := domain.ChainName(p.Chain)
		for _, item := range p.PortfolioItemList {
			legs := make([]debank.Token, 0,
				len(item.Detail.SupplyTokenList)+len(item.Detail.RewardTokenList)+len(item.Detail.BorrowTokenList))
			legs = append(legs, item.Detail.SupplyTokenList...)
			legs = append(legs, item.Detail.RewardTokenList...)

			borrowStart := len(legs)
			legs = append(legs, item.Detail.BorrowTokenList...)

			for i, t := range legs {
				if t.Price <= 0 || t.Amount <= 0 {
					continue
				}
				amount := decimal.NewFromFloat(t.Amount)
				if i >= borrowStart {
					amount = amount.Neg()
				}
				rows = append(rows, domain.ProtocolPositionRow{
					Protocol:       p.Name,
					Classification: item.Name,
					Chain:          chain,
					PoolID:         item.Pool.ID,
					Wallet:         wallet,
					Token:          legSymbol(item.Detail.Description, t),
					Balance:        amount,
					USDValue:       amount.Mul(decimal.NewFromFloat(t.Price)),
				})
			}
		}
	}
	return rows
}

// legSymbol prefers the position description over the token symbol, unless
// the description is a bare position index like "#12".
func legSymbol(description string, t debank.Token) string {
	if description != "" && !strings.HasPrefix(description, "#") {
		return description
	}
	return t.PreferredSymbol()
}
