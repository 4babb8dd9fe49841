package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/internal/custody/application"
	"github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/middleware"
)

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, allowDeposits bool) (*gin.Engine, *memory.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := memory.NewLedger()
	svc := application.NewCustodyService(ledger, memtx.New())

	r := gin.New()
	r.Use(middleware.GinIdentityMiddleware())
	NewCustodyHandler(svc, allowDeposits).RegisterRoutes(&r.RouterGroup)
	return r, ledger
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
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func TestDepositRouteIsOffByDefault(t *testing.T) {
	r, ledger := setupRouter(t, false)

	code, _ := do(t, r, http.MethodPost, "/api/v1/custody/deposits", "", gin.H{"asset": "USD", "account": "mallory", "amount": 1000000000})
	if code != http.StatusNotFound {
		t.Fatalf("deposit without switch: %d", code)
	}
	if bal, _ := ledger.BalanceOf(context.Background(), "USD", "mallory"); bal != 0 {
		t.Fatalf("mallory minted %d", bal)
	}
}

func TestDepositRouteWhenEnabled(t *testing.T) {
	r, _ := setupRouter(t, true)

	code, env := do(t, r, http.MethodPost, "/api/v1/custody/deposits", "", gin.H{"asset": "USD", "account": "alice", "amount": 100})
	if code != http.StatusOK {
		t.Fatalf("deposit: %d %s", code, env.Message)
	}
	var bal application.BalanceDTO
	if err := json.Unmarshal(env.Data, &bal); err != nil {
		t.Fatal(err)
	}
	if bal.Amount != 100 {
		t.Fatalf("balance = %+v", bal)
	}

	code, env = do(t, r, http.MethodPost, "/api/v1/custody/deposits", "", gin.H{"asset": "USD", "account": "platform:fees", "amount": 1})
	if code != http.StatusBadRequest || env.Code != "ReservedAccount" {
		t.Fatalf("deposit into fee account: %d %s", code, env.Code)
	}
}

func TestTransfersOverHTTP(t *testing.T) {
	r, ledger := setupRouter(t, false)
	ctx := context.Background()
	_ = ledger.Mint(ctx, "USD", "alice", 100)
	_ = ledger.Mint(ctx, "USD", "platform:fees", 500)

	tests := []struct {
		name   string
		user   string
		body   any
		status int
		code   string
	}{
		{"anonymous", "", gin.H{"asset": "USD", "to": "bob", "amount": 1}, http.StatusUnauthorized, "Unauthorized"},
		{"fee account as caller", "platform:fees", gin.H{"asset": "USD", "to": "mallory", "amount": 500}, http.StatusBadRequest, "ReservedAccount"},
		{"into custody", "alice", gin.H{"asset": "USD", "to": "custody:escrow:1", "amount": 1}, http.StatusBadRequest, "ReservedAccount"},
		{"overdraw", "alice", gin.H{"asset": "USD", "to": "bob", "amount": 101}, http.StatusConflict, "InsufficientBalance"},
		{"ok", "alice", gin.H{"asset": "USD", "to": "bob", "amount": 30}, http.StatusOK, "OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, http.MethodPost, "/api/v1/custody/transfers", tt.user, tt.body)
			if status != tt.status || env.Code != tt.code {
				t.Fatalf("got %d %s (%s), want %d %s", status, env.Code, env.Message, tt.status, tt.code)
			}
		})
	}

	if bal, _ := ledger.BalanceOf(ctx, "USD", "platform:fees"); bal != 500 {
		t.Fatalf("fee account = %d", bal)
	}
	if bal, _ := ledger.BalanceOf(ctx, "USD", "mallory"); bal != 0 {
		t.Fatalf("mallory = %d", bal)
	}

	code, env := do(t, r, http.MethodGet, "/api/v1/custody/balances/bob?asset=USD", "", nil)
	if code != http.StatusOK {
		t.Fatalf("balance: %d %s", code, env.Message)
	}
}
