package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geo-tracker/internal/citation"
	"github.com/sells-group/geo-tracker/internal/model"
	"github.com/sells-group/geo-tracker/internal/store"
	"github.com/sells-group/geo-tracker/pkg/perplexity"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for citation check requests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Perplexity.Key == "" {
			return eris.New("perplexity API key is required (GEOTRACK_PERPLEXITY_KEY)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		runner := citation.NewRunner(client, st, citation.WithInterval(cfg.Check.Interval()))

		mux := buildMux(ctx, st, runner)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			return srv.Shutdown(context.Background())
		})

		return g.Wait()
	},
}

// buildMux wires the webhook server routes. The runner may be nil in tests;
// the check endpoint then accepts requests without starting a run.
func buildMux(ctx context.Context, st store.Store, runner *citation.Runner) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /webhook/check", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.ProjectID == "" {
			http.Error(w, `{"error":"project_id is required"}`, http.StatusBadRequest)
			return
		}

		project, err := st.GetProject(r.Context(), req.ProjectID)
		if err != nil {
			http.Error(w, `{"error":"project not found"}`, http.StatusNotFound)
			return
		}

		queries, err := st.ListQueries(r.Context(), project.ID)
		if err != nil {
			http.Error(w, `{"error":"load queries failed"}`, http.StatusInternalServerError)
			return
		}
		active := model.ActiveQueries(queries)

		// Run asynchronously; the webhook only triggers the check.
		go func() {
			if runner == nil {
				return
			}
			summary, err := runner.Run(ctx, project.ID, project.Domain, active)
			if err != nil {
				zap.L().Error("webhook check failed",
					zap.String("project_id", project.ID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("webhook check complete",
				zap.String("project_id", project.ID),
				zap.Int("checked", summary.Checked),
				zap.Int("failures", summary.Failures),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":     "accepted",
			"project_id": project.ID,
			"total":      len(active),
		})
	})

	mux.HandleFunc("GET /results", func(w http.ResponseWriter, r *http.Request) {
		projectID := r.URL.Query().Get("project")
		if projectID == "" {
			http.Error(w, `{"error":"project is required"}`, http.StatusBadRequest)
			return
		}
		results, err := st.LatestResults(r.Context(), projectID)
		if err != nil {
			http.Error(w, `{"error":"load results failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, buildReport(results))
	})

	return mux
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
