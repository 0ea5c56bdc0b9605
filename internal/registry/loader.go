package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/liquideth/vaultstat/internal/domain"
)

// ColumnReader reads the first column of a worksheet.
type ColumnReader interface {
	ReadColumn(ctx context.Context, worksheet string) ([]string, error)
}

// fallbackWallets keeps the dashboard alive when the registry sheet is
// unreadable (bad credentials, deleted worksheet).
var fallbackWallets = []string{
	"0x86fBaEB3D6b5247F420590D303a6ffC9cd523790",
	"0x46cba1e9b1e5db32da28428f2fb85587bcb785e7",
	"0xf40bcc0845528873784F36e5C105E62a93ff7021",
}

const malformedPreviewLimit = 3

// Loader resolves the set of tracked wallet addresses from the registry
// worksheet, validating address syntax and skipping malformed rows.
type Loader struct {
	reader    ColumnReader
	worksheet string
}

// NewLoader creates a registry Loader reading the given worksheet.
func NewLoader(reader ColumnReader, worksheet string) *Loader {
	return &Loader{reader: reader, worksheet: worksheet}
}

// Load returns the validated wallet addresses plus any non-fatal warnings.
// A sheet read failure degrades to the built-in fallback list; malformed
// rows are skipped with a bounded preview in the warning.
func (l *Loader) Load(ctx context.Context) ([]string, []string) {
	raw, err := l.reader.ReadColumn(ctx, l.worksheet)
	if err != nil {
		w := fmt.Sprintf("unable to read wallet registry %q, using fallback list: %v", l.worksheet, err)
		slog.Warn(w)
		return append([]string(nil), fallbackWallets...), []string{w}
	}

	var warnings []string
	var good, bad []string
	for _, v := range raw {
		v = strings.TrimSpace(v)
		switch {
		case v == "":
		case domain.ValidAddress(v):
			good = append(good, v)
		case strings.HasPrefix(v, "0x"):
			bad = append(bad, v)
		}
	}

	if len(bad) > 0 {
		preview := strings.Join(bad[:min(len(bad), malformedPreviewLimit)], ", ")
		if len(bad) > malformedPreviewLimit {
			preview += "…"
		}
		w := fmt.Sprintf("ignored %d malformed address(es): %s", len(bad), preview)
		slog.Warn(w)
		warnings = append(warnings, w)
	}

	if len(good) == 0 {
		w := "no valid wallet addresses found in the registry sheet"
		slog.Warn(w)
		warnings = append(warnings, w)
	}

	return good, warnings
}
