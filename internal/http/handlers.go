package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ledgerd/internal/amqp"
	"ledgerd/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "list categories")
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	start, err := optionalDateParam(r, "startDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be an ISO-8601 timestamp")
		return
	}
	end, err := optionalDateParam(r, "endDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be an ISO-8601 timestamp")
		return
	}

	expenses, err := s.store.ListExpenses(r.Context(), start, end)
	if err != nil {
		writeStoreError(w, r, err, "list expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	expense, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "get expense")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// createExpenseRequest recognizes exactly these four fields; anything else
// in the body is ignored.
type createExpenseRequest struct {
	Amount      core.Money     `json:"amount"`
	CategoryID  int64          `json:"categoryId"`
	Description *string        `json:"description"`
	ExpenseDate core.Timestamp `json:"expenseDate"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if core.IsValidation(err) {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newExpense := core.NewExpense{
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		ExpenseDate: req.ExpenseDate,
	}
	if err := newExpense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	id, err := s.store.CreateExpense(r.Context(), newExpense)
	if err != nil {
		writeStoreError(w, r, err, "create expense")
		return
	}

	// Read the row back so the response carries the store-assigned
	// creation timestamp and joined category name.
	created, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "read back created expense")
		return
	}

	s.publishEvent(r, amqp.ActionCreated, id)

	w.Header().Set("Location", fmt.Sprintf("/api/expenses/%d", id))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	removed, err := s.store.DeleteExpense(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "delete expense")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}

	s.publishEvent(r, amqp.ActionDeleted, id)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(core.ErrInvalidYear))
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(core.ErrInvalidMonth))
		return
	}
	if err := core.ValidateYearMonth(year, month); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	summary, err := s.store.MonthlySummary(r.Context(), year, month)
	if err != nil {
		writeStoreError(w, r, err, "monthly summary")
		return
	}
	if summary == nil {
		summary = core.MonthlySummary{}
	}
	writeJSON(w, http.StatusOK, summary)
}

// publishEvent fans the write out to the broker. Best-effort: the HTTP
// response never depends on the broker being up.
func (s *Server) publishEvent(r *http.Request, action string, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(r.Context(), action, id); err != nil {
		slog.WarnContext(r.Context(), "Expense event publish failed",
			"request_id", requestID(r.Context()),
			"action", action,
			"id", id,
			"error", err)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func optionalDateParam(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	ts, err := core.ParseTimestamp(v)
	if err != nil {
		return nil, err
	}
	return &ts.Time, nil
}
