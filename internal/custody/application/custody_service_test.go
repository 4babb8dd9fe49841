package application

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

func TestCustodyServiceRejectsCustodyAccounts(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	svc := NewCustodyService(ledger, memtx.New())

	if _, err := svc.Deposit(ctx, DepositCommand{Asset: "USD", Account: "alice", Amount: 100}); err != nil {
		t.Fatal(err)
	}

	vault := domain.OrderCustodyAccount("ACME", 1)
	if _, err := svc.Deposit(ctx, DepositCommand{Asset: "USD", Account: vault, Amount: 1}); !errors.Is(err, domain.ErrReservedAccount) {
		t.Fatalf("deposit into custody: %v", err)
	}
	if err := svc.Transfer(ctx, TransferCommand{From: "alice", Asset: "USD", To: vault, Amount: 1}); !errors.Is(err, domain.ErrReservedAccount) {
		t.Fatalf("transfer into custody: %v", err)
	}
	if err := svc.Transfer(ctx, TransferCommand{From: vault, Asset: "USD", To: "alice", Amount: 1}); !errors.Is(err, domain.ErrReservedAccount) {
		t.Fatalf("transfer out of custody: %v", err)
	}

	if err := svc.Transfer(ctx, TransferCommand{From: "alice", Asset: "USD", To: "bob", Amount: 30}); err != nil {
		t.Fatal(err)
	}
	bal, err := svc.Balance(ctx, "USD", "bob")
	if err != nil || bal.Amount != 30 {
		t.Fatalf("bob balance = %+v, %v", bal, err)
	}
}

func TestCustodyServiceRejectsPlatformAccounts(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	svc := NewCustodyService(ledger, memtx.New())
	_ = ledger.Mint(ctx, "USD", "platform:fees", 50)

	if err := svc.Transfer(ctx, TransferCommand{From: "platform:fees", Asset: "USD", To: "mallory", Amount: 50}); !errors.Is(err, domain.ErrReservedAccount) {
		t.Fatalf("transfer out of fee account: %v", err)
	}
	if _, err := svc.Deposit(ctx, DepositCommand{Asset: "USD", Account: "platform:fees", Amount: 1}); !errors.Is(err, domain.ErrReservedAccount) {
		t.Fatalf("deposit into fee account: %v", err)
	}
	if bal, _ := ledger.BalanceOf(ctx, "USD", "platform:fees"); bal != 50 {
		t.Fatalf("fee account = %d", bal)
	}
}

func TestBalanceNeverSeesHalfAppliedTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	journal := memtx.New()
	svc := NewCustodyService(ledger, journal)
	_ = ledger.Mint(ctx, "USD", "alice", 100)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- journal.WithTx(ctx, func(ctx context.Context) error {
			if err := ledger.Transfer(ctx, "USD", "alice", "bob", 40); err != nil {
				return err
			}
			close(entered)
			<-release
			return errors.New("abort")
		})
	}()
	<-entered

	got := make(chan uint64, 1)
	go func() {
		bal, err := svc.Balance(ctx, "USD", "alice")
		if err != nil {
			got <- 0
			return
		}
		got <- bal.Amount
	}()
	close(release)
	if amount := <-got; amount != 100 {
		t.Fatalf("alice balance = %d, want 100 after rollback", amount)
	}
	if err := <-done; err == nil {
		t.Fatal("expected abort")
	}
}
