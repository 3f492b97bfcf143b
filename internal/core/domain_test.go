package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-01-05T00:00:00.000Z", "2025-01-05T00:00:00.000Z", true},
		{"2025-01-05T10:30:00Z", "2025-01-05T10:30:00.000Z", true},
		{"2025-01-05T10:30:00+02:00", "2025-01-05T08:30:00.000Z", true},
		{"2025-01-05", "2025-01-05T00:00:00.000Z", true},
		{"05/01/2025", "", false},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q: expected %q, got %q (err=%v)", tc.in, tc.want, got.String(), err)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	ts := Timestamp{Time: time.Date(2025, 2, 1, 12, 0, 0, 500e6, time.UTC)}
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-02-01T12:00:00.500Z"` {
		t.Fatalf("unexpected wire form: %s", b)
	}
	var back Timestamp
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(ts.Time) {
		t.Fatalf("round trip changed the instant: %v != %v", back, ts)
	}
}

func TestNewExpenseValidate(t *testing.T) {
	date, _ := ParseTimestamp("2025-01-05")
	valid := NewExpense{Amount: Money{Cents: 1000}, CategoryID: 1, ExpenseDate: date}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(e *NewExpense)
		want error
	}{
		{"zero amount", func(e *NewExpense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *NewExpense) { e.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"zero category", func(e *NewExpense) { e.CategoryID = 0 }, ErrUnknownCategory},
		{"negative category", func(e *NewExpense) { e.CategoryID = -3 }, ErrUnknownCategory},
		{"missing date", func(e *NewExpense) { e.ExpenseDate = Timestamp{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		e := valid
		tc.mut(&e)
		if err := e.Validate(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateYearMonth(t *testing.T) {
	cases := []struct {
		year, month int
		want        error
	}{
		{2025, 1, nil},
		{2025, 12, nil},
		{2025, 0, ErrInvalidMonth},
		{2025, 13, ErrInvalidMonth},
		{999, 6, ErrInvalidYear},
		{10000, 6, ErrInvalidYear},
	}
	for _, tc := range cases {
		if got := ValidateYearMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("(%d,%d): expected %v, got %v", tc.year, tc.month, tc.want, got)
		}
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(2024, 12)
	if start.Format("2006-01-02") != "2024-12-01" || end.Format("2006-01-02") != "2025-01-01" {
		t.Fatalf("december window wrong: [%v, %v)", start, end)
	}
	start, end = MonthWindow(2024, 2) // leap year
	if end.Sub(start).Hours() != 29*24 {
		t.Fatalf("february 2024 should span 29 days, got %v", end.Sub(start))
	}
}

func TestMonthlySummaryMarshalOrdered(t *testing.T) {
	s := MonthlySummary{
		{Name: "Food", Total: Money{Cents: 1500}},
		{Name: "Transport", Total: Money{Cents: 0}},
		{Name: "Bills", Total: Money{Cents: 0}},
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Food":15.00,"Transport":0.00,"Bills":0.00}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}
	if s.GrandTotal().Cents != 1500 {
		t.Fatalf("grand total expected 1500, got %d", s.GrandTotal().Cents)
	}
}
