package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/cri"
	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/indicator"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only risk API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           apiRouter(pool),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("risk API listening", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
			zap.L().Info("risk API stopped")
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return eris.Wrap(err, "serve: listen")
		}
	},
}

func apiRouter(pool db.Pool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/indicators", func(w http.ResponseWriter, req *http.Request) {
		type entry struct {
			Name          string  `json:"name"`
			Category      string  `json:"category"`
			Threshold     float64 `json:"threshold"`
			DefaultWeight float64 `json:"default_weight"`
			Stub          bool    `json:"stub"`
		}
		reg := indicator.NewRegistry(nil, config.EngineConfig{})
		var out []entry
		for _, in := range reg.All() {
			out = append(out, entry{
				Name:          in.Name(),
				Category:      string(in.Category()),
				Threshold:     in.Threshold(),
				DefaultWeight: in.DefaultWeight(),
				Stub:          in.Stub(),
			})
		}
		respondJSON(w, http.StatusOK, out)
	})

	r.Get("/tenders/{id}/risk", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		cs, err := cri.Load(req.Context(), pool, id)
		if err != nil {
			if eris.Is(err, pgx.ErrNoRows) {
				respondJSON(w, http.StatusNotFound, map[string]string{"error": "tender has no persisted score"})
				return
			}
			zap.L().Error("risk lookup failed", zap.String("tender_id", id), zap.Error(err))
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		respondJSON(w, http.StatusOK, cs)
	})

	r.Get("/rankings", func(w http.ResponseWriter, req *http.Request) {
		minScore := parseFloatQuery(req, "min_score", 0)
		limit := int(parseFloatQuery(req, "limit", 100))
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		ranked, err := cri.Rankings(req.Context(), pool, minScore, limit)
		if err != nil {
			zap.L().Error("rankings query failed", zap.Error(err))
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		respondJSON(w, http.StatusOK, ranked)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, v)
}

func parseFloatQuery(req *http.Request, key string, fallback float64) float64 {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (defaults to server.port config)")
	rootCmd.AddCommand(serveCmd)
}
