// Package storage implements the data-access layer on sqlite. Every method
// is one logical unit of work on a pooled connection, released on every
// exit path; all consistency is delegated to the store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerd/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the store is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListCategories returns the full catalog ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			cat         core.Category
			description sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if description.Valid {
			cat.Description = &description.String
		}
		if cat.CreatedAt, err = core.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("parse category created_at %q: %w", createdAt, err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

const expenseColumns = `
	e.id, e.amount_cents, e.category_id, e.description, e.expense_date, e.created_at, c.name`

// ListExpenses returns expenses joined with their category name, newest
// expense date first. Both bounds are optional and inclusive; an inverted
// range simply matches nothing.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, start, end *time.Time) ([]core.Expense, error) {
	query := `
		SELECT` + expenseColumns + `
		FROM expenses e
		INNER JOIN categories c ON c.id = e.category_id`

	var (
		conds []string
		args  []any
	)
	if start != nil {
		conds = append(conds, "e.expense_date >= ?")
		args = append(args, storedTime(*start))
	}
	if end != nil {
		conds = append(conds, "e.expense_date <= ?")
		args = append(args, storedTime(*end))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.expense_date DESC, e.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, nil
}

// GetExpense returns the expense with the given id, or core.ErrNotFound.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+expenseColumns+`
		FROM expenses e
		INNER JOIN categories c ON c.id = e.category_id
		WHERE e.id = ?`, id)

	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// CreateExpense inserts one row and returns its generated id. The creation
// timestamp is assigned by the store. A foreign key rejection is reported
// as core.ErrUnknownCategory.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.NewExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (amount_cents, category_id, description, expense_date)
		VALUES (?, ?, ?, ?)`,
		e.Amount.Cents, e.CategoryID, nullString(e.Description), e.ExpenseDate.String())
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint") {
			return 0, core.ErrUnknownCategory
		}
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"amount_cents", e.Amount.Cents,
		"category_id", e.CategoryID,
		"expense_date", e.ExpenseDate.String())

	return id, nil
}

// DeleteExpense removes one row by id and reports whether anything matched.
// Deleting an absent id is not an error.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read affected rows: %w", err)
	}
	return affected > 0, nil
}

// MonthlySummary aggregates expense amounts per category for one calendar
// month. Categories with no matching expenses appear with a zero total.
// Ordering is total descending, then name, so results are deterministic
// run-to-run.
func (r *SQLiteRepository) MonthlySummary(ctx context.Context, year, month int) (core.MonthlySummary, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	start, end := core.MonthWindow(year, month)

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, COALESCE(SUM(e.amount_cents), 0) AS total_cents
		FROM categories c
		LEFT JOIN expenses e
			ON e.category_id = c.id
			AND e.expense_date >= ?
			AND e.expense_date < ?
		GROUP BY c.id, c.name
		ORDER BY total_cents DESC, c.name ASC`,
		storedTime(start), storedTime(end))
	if err != nil {
		return nil, fmt.Errorf("query monthly summary: %w", err)
	}
	defer rows.Close()

	var summary core.MonthlySummary
	for rows.Next() {
		var (
			name  string
			cents int64
		)
		if err := rows.Scan(&name, &cents); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary = append(summary, core.CategoryTotal{Name: name, Total: core.Money{Cents: cents}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	return summary, nil
}

// ExpenseEvent is one row of the insert-only audit trail maintained by the
// event worker.
type ExpenseEvent struct {
	ID           int64
	ExpenseID    int64
	Action       string
	AmountCents  *int64
	CategoryName *string
	OccurredAt   core.Timestamp
	RecordedAt   core.Timestamp
}

// RecordExpenseEvent appends one audit trail row.
func (r *SQLiteRepository) RecordExpenseEvent(ctx context.Context, ev ExpenseEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expense_events (expense_id, action, amount_cents, category_name, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ExpenseID, ev.Action, nullInt64(ev.AmountCents), nullString(ev.CategoryName), ev.OccurredAt.String())
	if err != nil {
		return fmt.Errorf("insert expense event: %w", err)
	}

	slog.InfoContext(ctx, "Expense event recorded",
		"expense_id", ev.ExpenseID,
		"action", ev.Action)
	return nil
}

// ListExpenseEvents returns the newest audit rows for one expense.
func (r *SQLiteRepository) ListExpenseEvents(ctx context.Context, expenseID int64) ([]ExpenseEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, expense_id, action, amount_cents, category_name, occurred_at, recorded_at
		FROM expense_events
		WHERE expense_id = ?
		ORDER BY id DESC`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("query expense events: %w", err)
	}
	defer rows.Close()

	var events []ExpenseEvent
	for rows.Next() {
		var (
			ev           ExpenseEvent
			amountCents  sql.NullInt64
			categoryName sql.NullString
			occurredAt   string
			recordedAt   string
		)
		if err := rows.Scan(&ev.ID, &ev.ExpenseID, &ev.Action, &amountCents, &categoryName, &occurredAt, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan expense event: %w", err)
		}
		if amountCents.Valid {
			ev.AmountCents = &amountCents.Int64
		}
		if categoryName.Valid {
			ev.CategoryName = &categoryName.String
		}
		if ev.OccurredAt, err = core.ParseTimestamp(occurredAt); err != nil {
			return nil, fmt.Errorf("parse event occurred_at %q: %w", occurredAt, err)
		}
		if ev.RecordedAt, err = core.ParseTimestamp(recordedAt); err != nil {
			return nil, fmt.Errorf("parse event recorded_at %q: %w", recordedAt, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense events: %w", err)
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		exp         core.Expense
		description sql.NullString
		expenseDate string
		createdAt   string
	)
	err := row.Scan(&exp.ID, &exp.Amount.Cents, &exp.CategoryID, &description, &expenseDate, &createdAt, &exp.CategoryName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	if description.Valid {
		exp.Description = &description.String
	}
	if exp.ExpenseDate, err = core.ParseTimestamp(expenseDate); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense_date %q: %w", expenseDate, err)
	}
	if exp.CreatedAt, err = core.ParseTimestamp(createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return exp, nil
}

// storedTime renders a time in the fixed-width UTC format timestamps are
// stored in, so lexicographic comparison in SQL is chronological.
func storedTime(t time.Time) string {
	return core.Timestamp{Time: t}.String()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
