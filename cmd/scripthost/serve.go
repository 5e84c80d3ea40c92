package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/scripthost/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for script execution",
	Long: `Start an HTTP server that runs scripts on a pool of workers.

Each worker owns one engine thread, so globals set by a script stay on the
worker that ran it. Scripts exceeding the timeout are interrupted.

Endpoints:
  POST   /run       Run a script, body {"code":"...","timeout":"5s"}
  GET    /stats     Pool and cache counters
  GET    /health    Health check`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "Address to listen on")
	serveCmd.Flags().Int("workers", 0, "Worker threads (default: number of CPUs)")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "Default execution timeout")
	rootCmd.AddCommand(serveCmd)
}

type runRequest struct {
	Code    string `json:"code"`
	Timeout string `json:"timeout,omitempty"`
}

type runResponse struct {
	Value      any    `json:"value,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Stack      string `json:"stack,omitempty"`
}

type server struct {
	pool    *worker.Pool
	timeout time.Duration
	logger  *log.Logger
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}

	timeout := s.timeout
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			http.Error(w, "invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = d
	}

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := s.pool.Submit(ctx, []byte(req.Code))
	if err != nil {
		s.logger.Error("run failed", "err", err)
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := runResponse{
		Value:      result.Value,
		DurationMs: result.Duration.Milliseconds(),
	}
	if d := result.Diagnostic; d != nil {
		resp.Error = d.Message
		resp.Kind = d.Kind.String()
		resp.Stack = d.Stack
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.pool.Stats())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	pool, err := worker.New(engine, cfg.Workers)
	if err != nil {
		return err
	}
	defer pool.Close()

	s := &server{pool: pool, timeout: cfg.Timeout, logger: logger}
	srv := &http.Server{Addr: cfg.Listen, Handler: s.routes()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "workers", cfg.Workers, "cache_capacity", cfg.CacheCapacity)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
