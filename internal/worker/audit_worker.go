// Package worker turns expense events into audit trail rows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledgerd/internal/amqp"
	"ledgerd/internal/core"
	"ledgerd/internal/storage"
)

// AuditWorker consumes expense events and appends one audit row per event.
type AuditWorker struct {
	storage *storage.SQLiteRepository
}

func NewAuditWorker(st *storage.SQLiteRepository) *AuditWorker {
	return &AuditWorker{storage: st}
}

// HandleEvent records one event. For created events the expense is read
// back to enrich the row; an expense already deleted again is recorded
// bare rather than failing the delivery.
func (w *AuditWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	ev := storage.ExpenseEvent{
		ExpenseID:  msg.ID,
		Action:     msg.Action,
		OccurredAt: core.Timestamp{Time: msg.OccurredAt},
	}

	if msg.Action == amqp.ActionCreated {
		exp, err := w.storage.GetExpense(ctx, msg.ID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			slog.WarnContext(ctx, "Expense gone before audit enrichment",
				"id", msg.ID)
		case err != nil:
			return fmt.Errorf("get expense for audit: %w", err)
		default:
			ev.AmountCents = &exp.Amount.Cents
			ev.CategoryName = &exp.CategoryName
		}
	}

	if err := w.storage.RecordExpenseEvent(ctx, ev); err != nil {
		return fmt.Errorf("record audit row: %w", err)
	}
	return nil
}
