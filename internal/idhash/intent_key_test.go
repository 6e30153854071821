package idhash

import (
	"testing"

	"l2-tipbot/internal/domain"
)

func TestComputeIntentKey(t *testing.T) {
	tests := []struct {
		name     string
		actorID  string
		kind     domain.ExecutionKind
		ticker   string
		amount   string
		targetID string
	}{
		{name: "transfer", actorID: "1234", kind: domain.ExecutionTransfer, ticker: "ETH", amount: "0.2", targetID: "2345"},
		{name: "unlock", actorID: "1234", kind: domain.ExecutionUnlock, ticker: "DAI", amount: "", targetID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeIntentKey(tt.actorID, tt.kind, tt.ticker, tt.amount, tt.targetID)

			if len(got) != 64 {
				t.Errorf("ComputeIntentKey() length = %d, want 64", len(got))
			}

			// Same inputs, same key
			got2 := ComputeIntentKey(tt.actorID, tt.kind, tt.ticker, tt.amount, tt.targetID)
			if got != got2 {
				t.Errorf("ComputeIntentKey() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeIntentKey_DistinctFields(t *testing.T) {
	base := ComputeIntentKey("1234", domain.ExecutionTransfer, "ETH", "0.2", "2345")

	variants := []string{
		ComputeIntentKey("1235", domain.ExecutionTransfer, "ETH", "0.2", "2345"),
		ComputeIntentKey("1234", domain.ExecutionUnlock, "ETH", "0.2", "2345"),
		ComputeIntentKey("1234", domain.ExecutionTransfer, "DAI", "0.2", "2345"),
		ComputeIntentKey("1234", domain.ExecutionTransfer, "ETH", "0.3", "2345"),
		ComputeIntentKey("1234", domain.ExecutionTransfer, "ETH", "0.2", "2346"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
}

func TestComputeRecordID(t *testing.T) {
	key := ComputeIntentKey("1234", domain.ExecutionTransfer, "ETH", "0.2", "2345")

	a := ComputeRecordID(key, "attempt-1", "0xabc", 1704067200000)
	b := ComputeRecordID(key, "attempt-1", "0xabc", 1704067200001)

	if len(a) != 64 {
		t.Errorf("ComputeRecordID() length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("records executed at different times must not share an id")
	}
}

func TestComputeRecordID_FailedAttemptsInSameMillisecond(t *testing.T) {
	key := ComputeIntentKey("1234", domain.ExecutionTransfer, "ETH", "0.2", "2345")

	a := ComputeRecordID(key, "attempt-1", "", 1704067200000)
	b := ComputeRecordID(key, "attempt-2", "", 1704067200000)

	if a == b {
		t.Error("distinct attempts without a tx hash must not share an id")
	}
	if a != ComputeRecordID(key, "attempt-1", "", 1704067200000) {
		t.Error("ComputeRecordID() not deterministic")
	}
}
