package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/liquideth/vaultstat/internal/domain"
	"github.com/liquideth/vaultstat/internal/export"
	"github.com/liquideth/vaultstat/internal/pipeline"
	"github.com/liquideth/vaultstat/internal/snapshot"
)

// Refresher runs one aggregation cycle.
type Refresher interface {
	Refresh(ctx context.Context, opts pipeline.Options) (domain.PipelineResult, error)
}

// SnapshotReader serves the persisted history views.
type SnapshotReader interface {
	LoadHistory(ctx context.Context) []snapshot.CategoryRow
	LoadWalletSnapshot(ctx context.Context, day time.Time) ([]snapshot.WalletRow, error)
}

// Handler provides the HTTP endpoints of the aggregation API.
type Handler struct {
	refresher Refresher
	snapshots SnapshotReader
}

// NewHandler creates a new API handler.
func NewHandler(refresher Refresher, snapshots SnapshotReader) *Handler {
	return &Handler{refresher: refresher, snapshots: snapshots}
}

// GetPositions handles GET /api/v1/positions. Query params chains, wallets
// and tokens are comma-separated filters.
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.Options{
		Chains:  splitParam(r.URL.Query().Get("chains")),
		Wallets: splitParam(r.URL.Query().Get("wallets")),
		Tokens:  splitParam(r.URL.Query().Get("tokens")),
	}

	res, err := h.refresher.Refresh(r.Context(), opts)
	if err != nil {
		slog.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetChains handles GET /api/v1/chains: the chain filter vocabulary.
func (h *Handler) GetChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"chains": domain.ChainDisplayNames(domain.SupportedChainIDs()),
	})
}

// GetHistory handles GET /api/v1/history. The type query param selects the
// protocol or token-category series; default is protocol.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	historyType := r.URL.Query().Get("type")
	switch historyType {
	case "":
		historyType = snapshot.HistoryTypeProtocol
	case snapshot.HistoryTypeProtocol, snapshot.HistoryTypeToken:
	default:
		writeError(w, http.StatusBadRequest, "type must be protocol or token")
		return
	}

	rows := h.snapshots.LoadHistory(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"type":   historyType,
		"series": snapshot.BuildSeries(rows, historyType),
	})
}

// GetWalletSnapshot handles GET /api/v1/wallets/{date}.
func (h *Handler) GetWalletSnapshot(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDate(w, r)
	if !ok {
		return
	}

	rows, err := h.snapshots.LoadWalletSnapshot(r.Context(), day)
	if err != nil {
		slog.Error("loading wallet snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		writeError(w, http.StatusNotFound, "no wallet snapshot for date")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ExportWalletSnapshot handles GET /api/v1/wallets/{date}/export. The format
// query param selects csv (default) or xlsx.
func (h *Handler) ExportWalletSnapshot(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDate(w, r)
	if !ok {
		return
	}

	rows, err := h.snapshots.LoadWalletSnapshot(r.Context(), day)
	if err != nil {
		slog.Error("loading wallet snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		writeError(w, http.StatusNotFound, "no wallet snapshot for date")
		return
	}

	name := "wallets-" + day.Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "", "csv":
		data, err := export.WalletCSV(rows)
		if err != nil {
			slog.Error("csv export failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeAttachment(w, name+".csv", "text/csv", data)
	case "xlsx":
		data, err := export.WalletXLSX(rows)
		if err != nil {
			slog.Error("xlsx export failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeAttachment(w, name+".xlsx",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
	}
}

// GenerateSnapshot handles POST /api/v1/snapshots/generate: an unfiltered
// refresh, which records the hourly snapshot if this hour has none yet.
func (h *Handler) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	res, err := h.refresher.Refresh(r.Context(), pipeline.Options{})
	if err != nil {
		slog.Error("snapshot generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate snapshot")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write export body", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
