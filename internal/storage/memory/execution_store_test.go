package memory

import (
	"context"
	"errors"
	"testing"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

func TestExecutionStore_InsertAndGetByActor(t *testing.T) {
	store := NewExecutionStore()
	ctx := context.Background()

	records := []*domain.ExecutionRecord{
		{RecordID: "r2", ActorID: "1234", Kind: domain.ExecutionTransfer, Status: domain.ExecutionSucceeded, ExecutedAt: 2000},
		{RecordID: "r1", ActorID: "1234", Kind: domain.ExecutionUnlock, Status: domain.ExecutionSucceeded, ExecutedAt: 1000},
		{RecordID: "r3", ActorID: "2345", Kind: domain.ExecutionTransfer, Status: domain.ExecutionFailed, ExecutedAt: 1500},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RecordID, err)
		}
	}

	result, err := store.GetByActor(ctx, "1234")
	if err != nil {
		t.Fatalf("GetByActor failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result))
	}
	if result[0].RecordID != "r1" || result[1].RecordID != "r2" {
		t.Errorf("expected [r1 r2] by executed_at, got [%s %s]", result[0].RecordID, result[1].RecordID)
	}
}

func TestExecutionStore_DuplicateKey(t *testing.T) {
	store := NewExecutionStore()
	ctx := context.Background()

	r := &domain.ExecutionRecord{RecordID: "r1", ActorID: "1234"}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
