// Package http exposes the catalog and ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ledgerd/internal/core"
)

// Store is the data-access surface the handlers depend on.
type Store interface {
	Ping(ctx context.Context) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListExpenses(ctx context.Context, start, end *time.Time) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (*core.Expense, error)
	CreateExpense(ctx context.Context, e core.NewExpense) (int64, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	MonthlySummary(ctx context.Context, year, month int) (core.MonthlySummary, error)
}

// EventPublisher notifies downstream consumers after a successful write.
// Publishing is best-effort: failures are logged, never surfaced to the
// HTTP caller.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, action string, id int64) error
}

type Server struct {
	http.Server
	store  Store
	events EventPublisher
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. events may be nil to run without fan-out.
func NewServer(addr string, store Store, events EventPublisher) *Server {
	s := &Server{
		Server: http.Server{Addr: addr},
		store:  store,
		events: events,
	}

	r := mux.NewRouter()
	r.Use(s.withRequestTrace)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/summary/{year}/{month}", s.handleMonthlySummary).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}", s.handleDeleteExpense).Methods(http.MethodDelete)

	s.Handler = r
	return s
}
