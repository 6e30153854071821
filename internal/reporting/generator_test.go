package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage/memory"
)

func setupLedger(t *testing.T) *memory.ExecutionStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewExecutionStore()

	records := []*domain.ExecutionRecord{
		{RecordID: "r1", Kind: domain.ExecutionUnlock, Status: domain.ExecutionSucceeded, ActorID: "1234",
			FeeTicker: "DAI", Fee: "0.5", TxHash: "sync-tx:01", ExecutedAt: 1000},
		{RecordID: "r2", Kind: domain.ExecutionTransfer, Status: domain.ExecutionSucceeded, ActorID: "1234", TargetID: "2345",
			Ticker: "DAI", Amount: "0.25", FeeTicker: "DAI", Fee: "0.01", TxHash: "sync-tx:02", ExecutedAt: 2000},
		{RecordID: "r3", Kind: domain.ExecutionTransfer, Status: domain.ExecutionSucceeded, ActorID: "1234", TargetID: "2345",
			Ticker: "DAI", Amount: "0.75", FeeTicker: "ETH", Fee: "0.0001", TxHash: "sync-tx:03", ExecutedAt: 3000},
		{RecordID: "r4", Kind: domain.ExecutionTransfer, Status: domain.ExecutionFailed, ActorID: "1234", TargetID: "2345",
			Ticker: "ETH", Amount: "5", FeeTicker: "ETH", Fee: "0.0001", FailReason: "insufficient balance", ExecutedAt: 4000},
		{RecordID: "r5", Kind: domain.ExecutionTransfer, Status: domain.ExecutionSucceeded, ActorID: "9999", TargetID: "1234",
			Ticker: "ETH", Amount: "1", FeeTicker: "ETH", Fee: "0.0001", ExecutedAt: 5000},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert record failed: %v", err)
		}
	}
	return store
}

func newTestGenerator(store *memory.ExecutionStore) *Generator {
	g := NewGenerator(store)
	g.now = func() time.Time { return time.UnixMilli(10000) }
	return g
}

func TestGenerator_History(t *testing.T) {
	h, err := newTestGenerator(setupLedger(t)).History(context.Background(), "1234")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}

	if len(h.Records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(h.Records))
	}
	s := h.Summary
	if s.Total != 4 || s.Succeeded != 3 || s.Failed != 1 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.Transfers != 3 || s.Unlocks != 1 {
		t.Errorf("Unexpected kinds: transfers=%d unlocks=%d", s.Transfers, s.Unlocks)
	}
	if len(s.Sent) != 1 || s.Sent[0].Ticker != "DAI" || s.Sent[0].Amount != "1" {
		t.Errorf("Unexpected sent totals: %+v", s.Sent)
	}
	wantFees := []TickerTotal{{Ticker: "DAI", Amount: "0.51"}, {Ticker: "ETH", Amount: "0.0001"}}
	if len(s.FeesPaid) != 2 || s.FeesPaid[0] != wantFees[0] || s.FeesPaid[1] != wantFees[1] {
		t.Errorf("Unexpected fee totals: %+v", s.FeesPaid)
	}
	if h.GeneratedAt != 10000 {
		t.Errorf("Expected GeneratedAt 10000, got %d", h.GeneratedAt)
	}
}

func TestGenerator_EmptyHistory(t *testing.T) {
	h, err := newTestGenerator(memory.NewExecutionStore()).History(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if h.Summary.Total != 0 || len(h.Summary.Sent) != 0 {
		t.Errorf("Expected empty summary, got %+v", h.Summary)
	}

	md := RenderMarkdown(h)
	if !strings.Contains(md, "No executions recorded.") {
		t.Errorf("Expected empty marker in markdown:\n%s", md)
	}
}

func TestGenerator_MalformedAmount(t *testing.T) {
	store := memory.NewExecutionStore()
	err := store.Insert(context.Background(), &domain.ExecutionRecord{
		RecordID: "bad", Kind: domain.ExecutionTransfer, Status: domain.ExecutionSucceeded,
		ActorID: "1234", Ticker: "ETH", Amount: "pizza",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := newTestGenerator(store).History(context.Background(), "1234"); err == nil {
		t.Error("Expected error for malformed amount")
	}
}

func TestRenderCSV(t *testing.T) {
	h, err := newTestGenerator(setupLedger(t)).History(context.Background(), "1234")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	out, err := RenderCSV(h)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected header + 4 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "record_id,executed_at,kind,status") {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if lines[4] != "r4,4000,TRANSFER,FAILED,2345,ETH,5,ETH,0.0001,,insufficient balance" {
		t.Errorf("Unexpected failed row: %s", lines[4])
	}
}

func TestRenderMarkdown(t *testing.T) {
	h, err := newTestGenerator(setupLedger(t)).History(context.Background(), "1234")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	md := RenderMarkdown(h)

	for _, want := range []string{
		"# Execution History: 1234",
		"Generated: 1970-01-01T00:00:10Z",
		"| Executions | 4 |",
		"| Failed | 1 |",
		"### Sent",
		"- 1 DAI",
		"### Fees Paid",
		"- 0.51 DAI",
		"| UNLOCK | SUCCEEDED | - | 0.5 DAI | - | sync-tx:01 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}
}
