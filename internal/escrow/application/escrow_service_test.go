package application

import (
	"context"
	"errors"
	"testing"
	"time"

	custody "github.com/wyfcoding/tokenexchange/internal/custody/domain"
	custodymem "github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
	"github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/messaging"
	"github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/internal/platform/infrastructure"
	"github.com/wyfcoding/tokenexchange/pkg/config"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
	"github.com/wyfcoding/tokenexchange/pkg/sequence"
)

const ins = "ACME"

type harness struct {
	svc    *EscrowService
	ledger *custodymem.Ledger
	outbox *outbox.MemoryStore
}

func newHarness(t *testing.T, cfg config.ExchangeConfig) *harness {
	t.Helper()
	cfg.SettlementAsset = "USD"
	cfg.FeeAccount = "platform:fees"
	settings, err := infrastructure.NewStaticSettings(cfg)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{ledger: custodymem.NewLedger(), outbox: outbox.NewMemoryStore()}
	h.svc = NewEscrowService(Deps{
		Escrows:   memory.NewEscrowRepository(),
		Ledger:    h.ledger,
		Sequences: sequence.NewMemoryGenerator(),
		Settings:  settings,
		Publisher: messaging.NewOutboxEventPublisher(h.outbox),
		Tx:        memtx.New(),
	})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.svc.now = func() time.Time { return fixed }

	if err := h.ledger.Mint(context.Background(), ins, "alice", 100); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) balance(t *testing.T, account string) uint64 {
	t.Helper()
	bal, err := h.ledger.BalanceOf(context.Background(), ins, account)
	if err != nil {
		t.Fatal(err)
	}
	return bal
}

func (h *harness) create(t *testing.T, amount uint64) *EscrowDTO {
	t.Helper()
	e, err := h.svc.CreateEscrow(context.Background(), CreateEscrowCommand{
		Payer: "alice", Instrument: ins, Recipient: "bob", Amount: amount,
	})
	if err != nil {
		t.Fatalf("create escrow: %v", err)
	}
	return e
}

func TestEscrowRelease(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.ExchangeConfig{})

	e := h.create(t, 40)
	if e.EscrowID != 1 || e.Status != string(domain.StatusActive) {
		t.Fatalf("created: %+v", e)
	}
	if got := h.balance(t, custody.EscrowCustodyAccount(e.EscrowID)); got != 40 {
		t.Fatalf("custody = %d", got)
	}
	if got := h.balance(t, "alice"); got != 60 {
		t.Fatalf("alice = %d", got)
	}

	if _, err := h.svc.ReleaseEscrow(ctx, "mallory", e.EscrowID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("third party release: %v", err)
	}
	released, err := h.svc.ReleaseEscrow(ctx, "bob", e.EscrowID)
	if err != nil {
		t.Fatal(err)
	}
	if released.Status != string(domain.StatusReleased) || released.ReleasedAt == nil {
		t.Fatalf("released: %+v", released)
	}
	if got := h.balance(t, "bob"); got != 40 {
		t.Fatalf("bob = %d", got)
	}
	if got := h.balance(t, custody.EscrowCustodyAccount(e.EscrowID)); got != 0 {
		t.Fatalf("custody after release = %d", got)
	}
	if _, err := h.svc.ReleaseEscrow(ctx, "alice", e.EscrowID); !errors.Is(err, domain.ErrInvalidEscrowStatus) {
		t.Fatalf("second release: %v", err)
	}
	if got := h.outbox.Pending(); got != 2 {
		t.Fatalf("outbox pending = %d, want 2", got)
	}
}

func TestEscrowCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.ExchangeConfig{})
	e := h.create(t, 25)

	if _, err := h.svc.CancelEscrow(ctx, "bob", e.EscrowID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("recipient cancel: %v", err)
	}
	cancelled, err := h.svc.CancelEscrow(ctx, "alice", e.EscrowID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != string(domain.StatusCancelled) || cancelled.ReleasedAt == nil {
		t.Fatalf("cancelled: %+v", cancelled)
	}
	if got := h.balance(t, "alice"); got != 100 {
		t.Fatalf("alice after refund = %d", got)
	}
	if _, err := h.svc.ReleaseEscrow(ctx, "bob", e.EscrowID); !errors.Is(err, domain.ErrInvalidEscrowStatus) {
		t.Fatalf("release after cancel: %v", err)
	}
	if got := h.balance(t, "bob"); got != 0 {
		t.Fatalf("bob = %d", got)
	}
}

func TestCreateEscrowRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  config.ExchangeConfig
		cmd  CreateEscrowCommand
		want error
	}{
		{"zero amount", config.ExchangeConfig{}, CreateEscrowCommand{Payer: "alice", Instrument: ins, Recipient: "bob"}, domain.ErrInvalidTradeAmount},
		{"self", config.ExchangeConfig{}, CreateEscrowCommand{Payer: "alice", Instrument: ins, Recipient: "alice", Amount: 1}, domain.ErrInvalidEscrowParams},
		{"custody recipient", config.ExchangeConfig{}, CreateEscrowCommand{Payer: "alice", Instrument: ins, Recipient: "custody:order:ACME:1", Amount: 1}, domain.ErrInvalidEscrowParams},
		{"insufficient", config.ExchangeConfig{}, CreateEscrowCommand{Payer: "alice", Instrument: ins, Recipient: "bob", Amount: 101}, domain.ErrInsufficientTokens},
		{"paused", config.ExchangeConfig{Paused: true}, CreateEscrowCommand{Payer: "alice", Instrument: ins, Recipient: "bob", Amount: 1}, domain.ErrPlatformPaused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cfg)
			if _, err := h.svc.CreateEscrow(ctx, tt.cmd); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got := h.balance(t, "alice"); got != 100 {
				t.Fatalf("alice = %d, rejected create moved funds", got)
			}
			if got := h.outbox.Pending(); got != 0 {
				t.Fatalf("outbox pending = %d", got)
			}
		})
	}

	// 余额不足的失败不消耗托管单号
	h := newHarness(t, config.ExchangeConfig{})
	if _, err := h.svc.CreateEscrow(ctx, CreateEscrowCommand{Payer: "alice", Instrument: ins, Recipient: "bob", Amount: 500}); err == nil {
		t.Fatal("expected failure")
	}
	if e := h.create(t, 1); e.EscrowID != 1 {
		t.Fatalf("escrow id after rollback = %d", e.EscrowID)
	}
}

func TestListEscrowsByParty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.ExchangeConfig{})
	h.create(t, 1)
	h.create(t, 2)

	for _, party := range []string{"alice", "bob"} {
		list, total, err := h.svc.ListEscrowsByParty(ctx, party, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if total != 2 || len(list) != 2 || list[0].EscrowID != 2 {
			t.Fatalf("%s: total=%d list=%+v", party, total, list)
		}
	}
	if _, total, _ := h.svc.ListEscrowsByParty(ctx, "carol", 10, 0); total != 0 {
		t.Fatalf("carol total = %d", total)
	}
	if _, err := h.svc.GetEscrow(ctx, 99); !errors.Is(err, domain.ErrEscrowNotFound) {
		t.Fatalf("get missing: %v", err)
	}
}
