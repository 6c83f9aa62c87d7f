package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tender-intel/internal/pipeline"
)

var servePort int

// runRecord tracks one triggered pipeline run for the readout endpoint.
type runRecord struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"` // running | complete | failed
	Result    *pipeline.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	StartedAt time.Time        `json:"started_at"`
}

// runTracker serializes run execution: the upstream session and the
// artifact are single-occupancy resources, so at most one run may be in
// flight at a time.
type runTracker struct {
	mu       sync.Mutex
	inFlight bool
	runs     map[string]*runRecord
}

func newRunTracker() *runTracker {
	return &runTracker{runs: make(map[string]*runRecord)}
}

// begin registers a new run, refusing if one is already in flight.
func (t *runTracker) begin() (*runRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight {
		return nil, false
	}
	t.inFlight = true
	rec := &runRecord{
		ID:        uuid.NewString(),
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	t.runs[rec.ID] = rec
	return rec, true
}

func (t *runTracker) finish(id string, result *pipeline.Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = false
	rec, ok := t.runs[id]
	if !ok {
		return
	}
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		return
	}
	rec.Status = "complete"
	rec.Result = result
}

func (t *runTracker) get(id string) (*runRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.runs[id]
	return rec, ok
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the trigger and readout API for the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, csvSink, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		tracker := newRunTracker()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/api/runs", func(w http.ResponseWriter, _ *http.Request) {
			rec, ok := tracker.begin()
			if !ok {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in flight"})
				return
			}

			go func() {
				result, runErr := p.Run(ctx)
				if runErr != nil {
					zap.L().Error("serve: triggered run failed",
						zap.String("run_id", rec.ID),
						zap.Error(runErr),
					)
				}
				tracker.finish(rec.ID, result, runErr)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"run_id": rec.ID,
				"status": rec.Status,
			})
		})

		r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			rec, ok := tracker.get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown run"})
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		r.Get("/api/tenders", func(w http.ResponseWriter, _ *http.Request) {
			records, readErr := csvSink.Read()
			if readErr != nil {
				zap.L().Error("serve: read artifact", zap.Error(readErr))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "artifact unreadable"})
				return
			}
			writeJSON(w, http.StatusOK, records)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
