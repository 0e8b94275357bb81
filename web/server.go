package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aweist/probables-watcher/models"
	"github.com/aweist/probables-watcher/notifier"
	"github.com/aweist/probables-watcher/report"
	"go.uber.org/zap"
)

// WindowReader serves the stored snapshot around a point in time.
type WindowReader interface {
	Window(ctx context.Context, now time.Time) ([]models.Assignment, error)
}

// RunLister serves the run history, newest first.
type RunLister interface {
	GetAllRuns() ([]models.Run, error)
}

type Server struct {
	store     WindowReader
	runs      RunLister
	notifiers []notifier.Notifier
	port      string
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewServer(store WindowReader, runs RunLister, port string, loc *time.Location, logger *zap.Logger) *Server {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  store,
		runs:   runs,
		port:   port,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (s *Server) SetNotifiers(notifiers []notifier.Notifier) {
	s.notifiers = notifiers
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePreview)
	mux.HandleFunc("/api/probables", s.handleAPIProbables)
	mux.HandleFunc("/api/runs", s.handleAPIRuns)
	mux.HandleFunc("/api/test-email", s.handleTestEmail)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Web server shutdown error", zap.Error(err))
		}
	}()

	s.logger.Info("Starting preview web server", zap.String("addr", "http://localhost:"+s.port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// handlePreview renders the grid for the stored window as the email would show it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	rows, err := s.store.Window(r.Context(), s.now().In(s.loc))
	if err != nil {
		http.Error(w, fmt.Sprintf("Error fetching probables: %v", err), http.StatusInternalServerError)
		return
	}

	body, err := report.Render(report.Select(models.Diff{}, rows))
	if err != nil {
		http.Error(w, fmt.Sprintf("Template execution error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (s *Server) handleAPIProbables(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Window(r.Context(), s.now().In(s.loc))
	if err != nil {
		http.Error(w, fmt.Sprintf("Error fetching probables: %v", err), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.Assignment{}
	}
	s.writeJSON(w, rows)
}

func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.GetAllRuns()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error fetching runs: %v", err), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	s.writeJSON(w, runs)
}

// handleTestEmail sends the current grid through every configured notifier.
func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(s.notifiers) == 0 {
		s.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "No notifiers configured",
		})
		return
	}

	now := s.now().In(s.loc)
	rows, err := s.store.Window(r.Context(), now)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error fetching probables: %v", err), http.StatusInternalServerError)
		return
	}

	body, err := report.Render(report.Select(models.Diff{}, rows))
	if err != nil {
		http.Error(w, fmt.Sprintf("Template execution error: %v", err), http.StatusInternalServerError)
		return
	}

	subject := now.Format("2006-01-02") + " | Test"
	for _, n := range s.notifiers {
		if err := n.Send(r.Context(), subject, body); err != nil {
			s.logger.Error("Test notification failed", zap.String("type", n.GetType()), zap.Error(err))
			s.writeJSON(w, map[string]string{
				"status":  "error",
				"message": fmt.Sprintf("%s test failed: %v", n.GetType(), err),
			})
			return
		}
	}

	s.logger.Info("Test notification sent", zap.String("subject", subject))
	s.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Test email sent successfully!",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Error encoding response", zap.Error(err))
	}
}
