package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNotFound        = errors.New("not found")
)

// IsValidation reports whether err is caller error: permanent, never worth
// retrying, mapped to a 4xx at the HTTP boundary. Everything else coming out
// of the storage layer is treated as transient.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidYear) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrUnknownCategory)
}

// TimestampLayout is the wire and storage format for timestamps:
// ISO-8601 with millisecond precision, always UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp is a point in time that serializes as millisecond-precision
// UTC ISO-8601 on the wire and in the store.
type Timestamp struct {
	time.Time
}

// ParseTimestamp accepts ISO-8601 timestamps (any offset, normalized to
// UTC) and, leniently, bare YYYY-MM-DD dates.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Timestamp{Time: t.UTC()}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Timestamp{Time: t.UTC()}, nil
	}
	return Timestamp{}, ErrInvalidDate
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return ErrInvalidDate
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type (
	// Category is a named spending bucket. Rows are seeded at store
	// initialization and never change afterwards.
	Category struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		Description *string   `json:"description"`
		CreatedAt   Timestamp `json:"createdAt"`
	}

	// Expense is one recorded spend. CategoryName is resolved by join at
	// read time and is never written independently.
	Expense struct {
		ID           int64     `json:"id"`
		Amount       Money     `json:"amount"`
		CategoryID   int64     `json:"categoryId"`
		Description  *string   `json:"description"`
		ExpenseDate  Timestamp `json:"expenseDate"`
		CreatedAt    Timestamp `json:"createdAt"`
		CategoryName string    `json:"categoryName"`
	}

	// NewExpense carries the caller-supplied fields of a create request.
	NewExpense struct {
		Amount      Money
		CategoryID  int64
		Description *string
		ExpenseDate Timestamp
	}
)

// Validate checks the caller-controlled invariants before any store
// interaction. The category reference is left to the store's foreign key.
func (n NewExpense) Validate() error {
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	if n.CategoryID <= 0 {
		return ErrUnknownCategory
	}
	if n.ExpenseDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ValidateYearMonth guards the monthly summary parameters. Months outside
// 1-12 must never reach the SQL layer.
func ValidateYearMonth(year, month int) error {
	if year < 1000 || year > 9999 {
		return ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// MonthWindow returns the half-open UTC interval [start, end) covering the
// given calendar month.
func MonthWindow(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
