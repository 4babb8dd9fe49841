package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

func TestLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	if err := l.Mint(ctx, "ACME", "alice", 100); err != nil {
		t.Fatal(err)
	}

	if err := l.Transfer(ctx, "ACME", "alice", "bob", 40); err != nil {
		t.Fatal(err)
	}
	if err := l.Transfer(ctx, "ACME", "alice", "bob", 61); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	a, _ := l.BalanceOf(ctx, "ACME", "alice")
	b, _ := l.BalanceOf(ctx, "ACME", "bob")
	if a != 60 || b != 40 {
		t.Fatalf("balances alice=%d bob=%d", a, b)
	}
}

func TestLedgerRollsBackWithJournal(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	_ = l.Mint(ctx, "USD", "alice", 500)

	j := memtx.New()
	err := j.WithTx(ctx, func(ctx context.Context) error {
		if err := l.Transfer(ctx, "USD", "alice", "bob", 200); err != nil {
			return err
		}
		if err := l.Mint(ctx, "USD", "bob", 5); err != nil {
			return err
		}
		return l.Transfer(ctx, "USD", "alice", "carol", 301)
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	a, _ := l.BalanceOf(ctx, "USD", "alice")
	b, _ := l.BalanceOf(ctx, "USD", "bob")
	if a != 500 || b != 0 {
		t.Fatalf("expected full rollback, alice=%d bob=%d", a, b)
	}
}

func TestVaultDrain(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	_ = l.Mint(ctx, "USD", "bob", 600)

	v := domain.OrderVault(l, "ACME", 2)
	if err := v.Lock(ctx, "USD", "bob", 600); err != nil {
		t.Fatal(err)
	}
	if err := v.Release(ctx, "USD", "alice", 500); err != nil {
		t.Fatal(err)
	}
	n, err := v.Drain(ctx, "USD", "bob")
	if err != nil || n != 100 {
		t.Fatalf("Drain = %d, %v", n, err)
	}
	if bal, _ := v.Balance(ctx, "USD"); bal != 0 {
		t.Fatalf("vault balance = %d", bal)
	}
	if v.Account() != "custody:order:ACME:2" {
		t.Fatalf("unexpected account %q", v.Account())
	}
}
