package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trade-cli/internal/export"
	"github.com/sells-group/trade-cli/internal/model"
	"github.com/sells-group/trade-cli/internal/rank"
	"github.com/sells-group/trade-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation ranking API",
	Long: `Serve an HTTP API over the stored RAIV results: interactive
composite-score ranking with user weights, the raw results table, CSV
export, and calc run history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// shutdownServer drains in-flight requests. The signal context is already
// canceled by the time shutdown starts, so it builds its own deadline.
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/results", handleResults(st))
		r.Post("/rank", handleRank(st))
		r.Get("/rank/export", handleRankExport(st))
		r.Get("/runs", handleRuns(st))
	})

	return r
}

func handleResults(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := st.Results(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "results": records})
	}
}

// rankRequest is the POST /api/rank body. Zero weights fall back to the
// configured defaults.
type rankRequest struct {
	Weights   rank.Weights `json:"weights"`
	Years     []int        `json:"years,omitempty"`
	HSCodes   []string     `json:"hs_codes,omitempty"`
	RawValues bool         `json:"raw_values,omitempty"`
	Top       int          `json:"top,omitempty"`
}

func handleRank(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
			return
		}
		if req.Weights == (rank.Weights{}) {
			req.Weights = defaultWeights()
		}
		if req.Top == 0 {
			req.Top = cfg.Rank.Top
		}

		ranked, err := rankFromStore(r, st, req)
		if err != nil {
			status := http.StatusInternalServerError
			if eris.Is(err, rank.ErrZeroWeights) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(ranked),
			"weights": req.Weights,
			"ranked":  ranked,
		})
	}
}

func handleRankExport(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRankQuery(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ranked, err := rankFromStore(r, st, req)
		if err != nil {
			status := http.StatusInternalServerError
			if eris.Is(err, rank.ErrZeroWeights) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", export.RankedFilename(req.Years)))
		if err := export.WriteRanked(w, ranked); err != nil {
			zap.L().Error("writing ranked export", zap.Error(err))
		}
	}
}

func handleRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, eris.Errorf("invalid limit %q", v))
				return
			}
			limit = n
		}
		runs, err := st.ListCalcRuns(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(runs), "runs": runs})
	}
}

func rankFromStore(r *http.Request, st store.Store, req rankRequest) ([]model.RankedCountry, error) {
	records, err := st.Results(r.Context())
	if err != nil {
		return nil, err
	}
	return rank.Rank(records, req.Weights,
		rank.Filter{Years: req.Years, HSCodes: req.HSCodes},
		rank.Options{RawValues: req.RawValues, Top: req.Top})
}

// parseRankQuery maps export download query parameters onto a rank request.
// Recognized: raiv, timeliness, risk (weights), years (repeatable), hs_codes
// (repeatable), top, raw.
func parseRankQuery(q url.Values) (rankRequest, error) {
	req := rankRequest{Weights: defaultWeights(), Top: cfg.Rank.Top}

	parse := func(key string, dst *float64) error {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return eris.Errorf("invalid %s weight %q", key, v)
		}
		*dst = f
		return nil
	}
	if err := parse("raiv", &req.Weights.RAIV); err != nil {
		return req, err
	}
	if err := parse("timeliness", &req.Weights.Timeliness); err != nil {
		return req, err
	}
	if err := parse("risk", &req.Weights.Risk); err != nil {
		return req, err
	}

	for _, v := range q["years"] {
		year, err := strconv.Atoi(v)
		if err != nil {
			return req, eris.Errorf("invalid year %q", v)
		}
		req.Years = append(req.Years, year)
	}
	req.HSCodes = append(req.HSCodes, q["hs_codes"]...)

	if v := q.Get("top"); v != "" {
		top, err := strconv.Atoi(v)
		if err != nil || top < 0 {
			return req, eris.Errorf("invalid top %q", v)
		}
		req.Top = top
	}
	req.RawValues = q.Get("raw") == "true"

	return req, nil
}

func defaultWeights() rank.Weights {
	return rank.Weights{
		RAIV:       cfg.Rank.RAIVWeight,
		Timeliness: cfg.Rank.TimelinessWeight,
		Risk:       cfg.Rank.RiskWeight,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("writing JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
