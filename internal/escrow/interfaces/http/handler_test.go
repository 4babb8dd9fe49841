package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	custodymem "github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/internal/escrow/application"
	"github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/messaging"
	"github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/internal/platform/infrastructure"
	"github.com/wyfcoding/tokenexchange/pkg/config"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/middleware"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
	"github.com/wyfcoding/tokenexchange/pkg/sequence"
)

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	settings, err := infrastructure.NewStaticSettings(config.ExchangeConfig{FeeAccount: "platform:fees", SettlementAsset: "USD"})
	if err != nil {
		t.Fatal(err)
	}
	ledger := custodymem.NewLedger()
	if err := ledger.Mint(context.Background(), "ACME", "alice", 100); err != nil {
		t.Fatal(err)
	}
	svc := application.NewEscrowService(application.Deps{
		Escrows:   memory.NewEscrowRepository(),
		Ledger:    ledger,
		Sequences: sequence.NewMemoryGenerator(),
		Settings:  settings,
		Publisher: messaging.NewOutboxEventPublisher(outbox.NewMemoryStore()),
		Tx:        memtx.New(),
	})

	r := gin.New()
	r.Use(middleware.GinIdentityMiddleware())
	NewEscrowHandler(svc).RegisterRoutes(&r.RouterGroup)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, user string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
	}
	return w.Code, env
}

func TestEscrowFlowOverHTTP(t *testing.T) {
	r := setupRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/escrows", "alice", gin.H{"instrument": "ACME", "recipient": "bob", "amount": 30, "trade_id": 7})
	if code != http.StatusOK {
		t.Fatalf("create: %d %s", code, env.Message)
	}
	var e application.EscrowDTO
	if err := json.Unmarshal(env.Data, &e); err != nil {
		t.Fatal(err)
	}
	if e.EscrowID != 1 || e.TradeID == nil || *e.TradeID != 7 || e.Status != "ACTIVE" {
		t.Fatalf("escrow = %+v", e)
	}

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
		code   string
	}{
		{"anonymous create", http.MethodPost, "/api/v1/escrows", "", gin.H{"instrument": "ACME", "recipient": "bob", "amount": 1}, http.StatusUnauthorized, "Unauthorized"},
		{"over balance", http.MethodPost, "/api/v1/escrows", "alice", gin.H{"instrument": "ACME", "recipient": "bob", "amount": 71}, http.StatusConflict, "InsufficientTokens"},
		{"missing", http.MethodGet, "/api/v1/escrows/9", "", nil, http.StatusNotFound, "EscrowNotFound"},
		{"third party release", http.MethodPost, "/api/v1/escrows/1/release", "mallory", nil, http.StatusForbidden, "Unauthorized"},
		{"recipient cancel", http.MethodPost, "/api/v1/escrows/1/cancel", "bob", nil, http.StatusForbidden, "Unauthorized"},
		{"payer cancel", http.MethodPost, "/api/v1/escrows/1/cancel", "alice", nil, http.StatusOK, "OK"},
		{"release after cancel", http.MethodPost, "/api/v1/escrows/1/release", "bob", nil, http.StatusConflict, "InvalidEscrowStatus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, tt.method, tt.path, tt.user, tt.body)
			if status != tt.status || env.Code != tt.code {
				t.Fatalf("got %d %s (%s), want %d %s", status, env.Code, env.Message, tt.status, tt.code)
			}
		})
	}

	code, env = do(t, r, http.MethodGet, "/api/v1/escrows", "bob", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	var list struct {
		Escrows []application.EscrowDTO `json:"escrows"`
		Total   int64                   `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Escrows[0].Status != "CANCELLED" {
		t.Fatalf("list = %+v", list)
	}
}
