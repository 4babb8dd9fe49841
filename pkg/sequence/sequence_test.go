package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

func TestMemoryGeneratorIsGaplessAcrossRollback(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGenerator()
	j := memtx.New()

	first, _ := g.Next(ctx, Trade)
	_ = j.WithTx(ctx, func(ctx context.Context) error {
		if _, err := g.Next(ctx, Trade); err != nil {
			return err
		}
		return errors.New("abort")
	})
	second, _ := g.Next(ctx, Trade)
	other, _ := g.Next(ctx, Escrow)

	if first != 1 || second != 2 {
		t.Fatalf("trade sequence = %d, %d", first, second)
	}
	if other != 1 {
		t.Fatalf("escrow sequence must be independent, got %d", other)
	}
}
