package memory

import (
	"context"
	"errors"
	"testing"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

func TestTokenStore_ListPreservesInsertionOrder(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	for _, tok := range []*domain.Token{
		{Ticker: "ETH", Name: "Ethereum", Decimals: 18},
		{Ticker: "DAI", Name: "Dai", Decimals: 18, NetworkID: 1},
		{Ticker: "BAT", Name: "Basic Attention Token", Decimals: 18, NetworkID: 2},
	} {
		if err := store.Insert(ctx, tok); err != nil {
			t.Fatalf("Insert %s failed: %v", tok.Ticker, err)
		}
	}

	tokens, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"ETH", "DAI", "BAT"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, tok := range tokens {
		if tok.Ticker != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tok.Ticker, want[i])
		}
		if tok.Position != i+1 {
			t.Errorf("token %d: position %d, want %d", i, tok.Position, i+1)
		}
	}
}

func TestTokenStore_GetByTicker(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Token{Ticker: "DAI", Name: "Dai", Decimals: 18}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	tok, err := store.GetByTicker(ctx, "DAI")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	if tok.Name != "Dai" {
		t.Errorf("Name mismatch: got %s, want Dai", tok.Name)
	}

	if _, err := store.GetByTicker(ctx, "DOGE"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_DuplicateTicker(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Token{Ticker: "ETH", Name: "Ethereum"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, &domain.Token{Ticker: "ETH", Name: "Ether"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
