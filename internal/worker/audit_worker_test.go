package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledgerd/internal/amqp"
	"ledgerd/internal/core"
	"ledgerd/internal/storage"
)

func newTestWorker(t *testing.T) (*AuditWorker, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewAuditWorker(repo), repo
}

func seedExpense(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()
	cats, err := repo.ListCategories(ctx)
	if err != nil || len(cats) == 0 {
		t.Fatalf("list categories: %v", err)
	}
	date, _ := core.ParseTimestamp("2025-05-01")
	id, err := repo.CreateExpense(ctx, core.NewExpense{
		Amount:      core.Money{Cents: 4200},
		CategoryID:  cats[0].ID,
		ExpenseDate: date,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return id
}

func TestHandleCreatedEventEnrichesAuditRow(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	id := seedExpense(t, repo)

	msg := &amqp.ExpenseEventMessage{ID: id, Action: amqp.ActionCreated, OccurredAt: time.Now().UTC()}
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	events, err := repo.ListExpenseEvents(ctx, id)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(events))
	}
	ev := events[0]
	if ev.Action != amqp.ActionCreated {
		t.Errorf("action: got %s", ev.Action)
	}
	if ev.AmountCents == nil || *ev.AmountCents != 4200 {
		t.Errorf("audit row should carry the expense amount")
	}
	if ev.CategoryName == nil || *ev.CategoryName == "" {
		t.Errorf("audit row should carry the category name")
	}
}

func TestHandleDeletedEventRecordsBareRow(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	id := seedExpense(t, repo)
	if _, err := repo.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("delete expense: %v", err)
	}

	msg := &amqp.ExpenseEventMessage{ID: id, Action: amqp.ActionDeleted, OccurredAt: time.Now().UTC()}
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	events, err := repo.ListExpenseEvents(ctx, id)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].AmountCents != nil {
		t.Fatalf("deleted event should record a bare row")
	}
}

func TestHandleCreatedEventForVanishedExpense(t *testing.T) {
	w, _ := newTestWorker(t)

	// Created event arriving after the row was deleted again must still
	// be recorded, not requeued forever.
	msg := &amqp.ExpenseEventMessage{ID: 12345, Action: amqp.ActionCreated, OccurredAt: time.Now().UTC()}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle event: %v", err)
	}
}
