package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, refresher Refresher, snapshots SnapshotReader, adminAPIKey string) *http.Server {
	handler := NewHandler(refresher, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/chains", handler.GetChains)
	mux.HandleFunc("GET /api/v1/positions", handler.GetPositions)
	mux.HandleFunc("GET /api/v1/history", handler.GetHistory)
	mux.HandleFunc("GET /api/v1/wallets/{date}", handler.GetWalletSnapshot)
	mux.HandleFunc("GET /api/v1/wallets/{date}/export", handler.ExportWalletSnapshot)

	generateHandler := http.HandlerFunc(handler.GenerateSnapshot)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/snapshots/generate", requireAuth(adminAPIKey, generateHandler))
	} else {
		mux.Handle("POST /api/v1/snapshots/generate", generateHandler)
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
