package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/application"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/messaging"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/middleware"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
)

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := application.NewPortfolioService(application.Deps{
		Holdings:   memory.NewHoldingRepository(),
		Portfolios: memory.NewPortfolioRepository(),
		Applied:    memory.NewAppliedTradeRepository(),
		Publisher:  messaging.NewOutboxEventPublisher(outbox.NewMemoryStore()),
		Tx:         memtx.New(),
	})
	r := gin.New()
	r.Use(middleware.GinIdentityMiddleware())
	NewPortfolioHandler(svc).RegisterRoutes(&r.RouterGroup)
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

func TestPortfolioOverHTTP(t *testing.T) {
	r := setupRouter()

	for _, price := range []uint64{100, 200} {
		if code, env := do(t, r, http.MethodPost, "/api/v1/portfolio/holdings/acquire", "alice", gin.H{"instrument": "ACME", "amount": 10, "price": price}); code != http.StatusOK {
			t.Fatalf("acquire @%d: %d %s", price, code, env.Message)
		}
	}

	code, env := do(t, r, http.MethodGet, "/api/v1/portfolio/holdings/ACME", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("get holding: %d", code)
	}
	var h application.HoldingDTO
	if err := json.Unmarshal(env.Data, &h); err != nil {
		t.Fatal(err)
	}
	if h.AveragePrice != 150 || h.Amount != 20 {
		t.Fatalf("holding = %+v", h)
	}

	if code, _ := do(t, r, http.MethodPost, "/api/v1/portfolio/marks", "", gin.H{"instrument": "ACME", "price": 120}); code != http.StatusOK {
		t.Fatalf("mark: %d", code)
	}
	code, env = do(t, r, http.MethodGet, "/api/v1/portfolio", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("portfolio: %d", code)
	}
	var p application.PortfolioDTO
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.TotalValue != 2400 || p.TotalProfitLoss != -600 || p.ReturnRate != "-0.2" {
		t.Fatalf("portfolio = %+v", p)
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
		{"anonymous", http.MethodGet, "/api/v1/portfolio", "", nil, http.StatusUnauthorized, "Unauthorized"},
		{"over dispose", http.MethodPost, "/api/v1/portfolio/holdings/dispose", "alice", gin.H{"instrument": "ACME", "amount": 21, "price": 1}, http.StatusConflict, "InsufficientTokens"},
		{"no holding", http.MethodPost, "/api/v1/portfolio/holdings/dispose", "bob", gin.H{"instrument": "ACME", "amount": 1, "price": 1}, http.StatusNotFound, "HoldingNotFound"},
		{"zero price", http.MethodPost, "/api/v1/portfolio/holdings/acquire", "bob", gin.H{"instrument": "ACME", "amount": 1}, http.StatusBadRequest, "InvalidPosition"},
		{"no portfolio", http.MethodGet, "/api/v1/portfolio", "bob", nil, http.StatusNotFound, "PortfolioNotFound"},
		{"dispose", http.MethodPost, "/api/v1/portfolio/holdings/dispose", "alice", gin.H{"instrument": "ACME", "amount": 5, "price": 120}, http.StatusOK, "OK"},
		{"refresh", http.MethodPost, "/api/v1/portfolio/refresh", "alice", nil, http.StatusOK, "OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, tt.method, tt.path, tt.user, tt.body)
			if status != tt.status || env.Code != tt.code {
				t.Fatalf("got %d %s (%s), want %d %s", status, env.Code, env.Message, tt.status, tt.code)
			}
		})
	}
}
