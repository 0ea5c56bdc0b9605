package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/liquideth/vaultstat/internal/aggregate"
	"github.com/liquideth/vaultstat/internal/category"
	"github.com/liquideth/vaultstat/internal/domain"
)

// Fetcher collects on-chain rows for a wallet set.
type Fetcher interface {
	FetchAll(ctx context.Context, wallets []string) ([]domain.WalletBalanceRow, []domain.ProtocolPositionRow, []string)
}

// WalletSource resolves the tracked wallet set.
type WalletSource interface {
	Load(ctx context.Context) ([]string, []string)
}

// OffChainSource loads externally held balances as position rows.
type OffChainSource interface {
	Load(ctx context.Context) ([]domain.ProtocolPositionRow, []string)
}

// RuleSource loads the token-category keyword rules.
type RuleSource interface {
	LoadRules(ctx context.Context) ([]category.Rule, []string)
}

// SnapshotWriter persists one refresh result; false means nothing was
// written for this hour.
type SnapshotWriter interface {
	Write(ctx context.Context, res domain.PipelineResult, now time.Time) (bool, error)
}

// Options narrow one refresh. Chains filters on-chain rows by display name;
// Wallets and Tokens are case-insensitive substring filters applied to the
// final ledgers. Empty fields select everything.
type Options struct {
	Chains  []string
	Wallets []string
	Tokens  []string
}

// Service runs the refresh cycle: resolve wallets, fetch, aggregate,
// snapshot.
type Service struct {
	fetcher   Fetcher
	wallets   WalletSource
	offchain  OffChainSource
	rules     RuleSource
	snapshots SnapshotWriter
	now       func() time.Time
}

// NewService creates the pipeline. The off-chain source and snapshot writer
// are optional; the rest are required.
func NewService(fetcher Fetcher, wallets WalletSource, rules RuleSource, offchain OffChainSource, snapshots SnapshotWriter) *Service {
	if fetcher == nil || wallets == nil || rules == nil {
		panic("pipeline: fetcher, wallet source and rule source are required")
	}
	return &Service{
		fetcher:   fetcher,
		wallets:   wallets,
		offchain:  offchain,
		rules:     rules,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Refresh executes one full cycle and returns the aggregated result. Source
// failures degrade to warnings on the result; Refresh itself only fails on
// context cancellation.
func (s *Service) Refresh(ctx context.Context, opts Options) (domain.PipelineResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PipelineResult{}, err
	}

	var warnings []string

	wallets, ws := s.wallets.Load(ctx)
	warnings = append(warnings, ws...)
	wallets = filterSubstring(wallets, opts.Wallets, func(w string) string { return w })

	balances, positions, fetchWarnings := s.fetcher.FetchAll(ctx, wallets)
	warnings = append(warnings, fetchWarnings...)

	var offchainRows []domain.ProtocolPositionRow
	if s.offchain != nil {
		var ows []string
		offchainRows, ows = s.offchain.Load(ctx)
		warnings = append(warnings, ows...)
	}

	rules, rws := s.rules.LoadRules(ctx)
	warnings = append(warnings, rws...)

	res := aggregate.Run(aggregate.Input{
		Balances:   balances,
		Positions:  positions,
		OffChain:   offchainRows,
		Chains:     opts.Chains,
		Classifier: category.NewClassifier(rules),
	})
	res.WalletLedger = filterSubstring(res.WalletLedger, opts.Tokens, func(r domain.WalletBalanceRow) string { return r.Token })
	res.ProtocolLedger = filterSubstring(res.ProtocolLedger, opts.Tokens, func(r domain.ProtocolPositionRow) string { return r.Token })
	res.Warnings = warnings
	res.FetchedAt = s.now().UTC()

	s.writeSnapshot(ctx, res, opts)

	slog.Info("refresh complete",
		"wallets", len(wallets),
		"walletRows", len(res.WalletLedger),
		"positionRows", len(res.ProtocolLedger),
		"warnings", len(warnings))
	return res, nil
}

// writeSnapshot persists unfiltered full refreshes only: a chain, wallet or
// token filter would poison the history with partial totals.
func (s *Service) writeSnapshot(ctx context.Context, res domain.PipelineResult, opts Options) {
	if s.snapshots == nil {
		return
	}
	if len(opts.Chains) > 0 || len(opts.Wallets) > 0 || len(opts.Tokens) > 0 {
		return
	}
	written, err := s.snapshots.Write(ctx, res, s.now())
	if err != nil {
		slog.Warn("snapshot write failed", "error", err)
		return
	}
	if written {
		slog.Info("hourly snapshot recorded")
	}
}

// filterSubstring keeps elements whose key contains any of the filters,
// case-insensitively. An empty filter list keeps everything.
func filterSubstring[T any](items []T, filters []string, key func(T) string) []T {
	if len(filters) == 0 {
		return items
	}
	lowered := lo.Map(filters, func(f string, _ int) string { return strings.ToLower(f) })
	return lo.Filter(items, func(item T, _ int) bool {
		k := strings.ToLower(key(item))
		for _, f := range lowered {
			if strings.Contains(k, f) {
				return true
			}
		}
		return false
	})
}
