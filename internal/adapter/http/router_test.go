package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/campuswallet/internal/adapter/http/handler"
	apimiddleware "github.com/iho/campuswallet/internal/adapter/http/middleware"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/auth"
	"github.com/iho/campuswallet/internal/infrastructure/notify"
	"github.com/iho/campuswallet/internal/usecase"
)

const testSecret = "router-test-secret"

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RequiresAuthentication(t *testing.T) {
	router := NewRouter(newRouterConfig())

	for _, path := range []string{"/api/v1/me", "/api/v1/history", "/api/v1/ledger/consistency"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected %s to require a token, got %d", path, rec.Code)
		}
	}
}

func TestNewRouter_AuthenticatedRequest(t *testing.T) {
	router := NewRouter(newRouterConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 7, "S001"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"external_id":"S001"`) {
		t.Fatalf("expected caller's account, got %s", rec.Body.String())
	}
}

func TestNewRouter_RateLimiterBlocksExcessLogins(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(map[string]apimiddleware.Policy{
		apimiddleware.ClassAuth: {Rate: 0.001, Burst: 1},
	}, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"external_id":"S001","password":"x"}`))
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := login(); code == http.StatusTooManyRequests {
		t.Fatalf("expected first login attempt to be allowed")
	}
	if code := login(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second attempt to be throttled, got %d", code)
	}

	// Health checks are never limited.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to stay available, got %d", rec.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"receiver_id":"S002","amount":"5","s_pin":"1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, 7, "S001"))
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(store.key, "S001|") {
		t.Fatalf("expected key scoped to caller, got %q", store.key)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/auth/login",
		"GET /api/v1/me",
		"GET /api/v1/accounts",
		"POST /api/v1/accounts",
		"GET /api/v1/accounts/{externalID}",
		"POST /api/v1/transfers",
		"POST /api/v1/transfers/group",
		"POST /api/v1/topups",
		"POST /api/v1/adjustments",
		"GET /api/v1/history/",
		"GET /api/v1/history/statement",
		"GET /api/v1/history/export",
		"GET /api/v1/history/{id}",
		"GET /api/v1/ledger/consistency",
		"GET /api/v1/notifications/stream",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func token(t *testing.T, id int64, ext string) string {
	t.Helper()
	tok, err := auth.NewJWTManager(testSecret, time.Hour).Generate(&domain.Principal{AccountID: id, ExternalID: ext, Role: domain.RoleMember})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	jwt := auth.NewJWTManager(testSecret, time.Hour)
	gate := allowAll{}
	nop := zerolog.Nop()

	cfg := RouterConfig{
		AuthHandler:         handler.NewAuthHandler(stubAuthenticator{}, jwt, nil),
		AccountHandler:      handler.NewAccountHandler(stubAccountService{}, gate),
		TransferHandler:     handler.NewTransferHandler(stubTransferService{}, gate),
		TopUpHandler:        handler.NewTopUpHandler(stubTopUpService{}, gate),
		HistoryHandler:      handler.NewHistoryHandler(stubHistoryService{}, stubAccountLookup{}, gate, time.UTC),
		NotificationHandler: handler.NewNotificationHandler(notify.NewHub(1, nop, nil), time.Second),
		LedgerHandler:       handler.NewLedgerHandler(stubLedgerService{}, gate, nil),
		HealthHandler:       handler.NewHealthHandler(handler.PingerFunc(func(context.Context) error { return nil }), nil),
		Verifier:            jwt,
		Logger:              &nop,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type allowAll struct{}

func (allowAll) Authorize(context.Context, *domain.Principal, usecase.Operation, string) error {
	return nil
}

type stubAuthenticator struct{}

func (stubAuthenticator) Login(ctx context.Context, externalID, password string) (*domain.Account, error) {
	return nil, domain.ErrInvalidCredentials
}

type stubAccountService struct{}

func (stubAccountService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return &domain.Account{ID: id, ExternalID: "S001", Name: "Ann", Role: domain.RoleMember}, nil
}

func (stubAccountService) GetPublicProfile(ctx context.Context, externalID string) (*usecase.PublicProfile, error) {
	return &usecase.PublicProfile{ExternalID: externalID}, nil
}

func (stubAccountService) Provision(ctx context.Context, actorID int64, inputs []usecase.ProvisionInput) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

func (stubAccountService) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

type stubTransferService struct{}

func (stubTransferService) Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
	return &usecase.TransferResult{
		Transaction: &domain.Transaction{
			ID:         "tx-1",
			Type:       domain.TypeTransfer,
			Amount:     input.Amount,
			SenderID:   input.SenderID,
			ReceiverID: input.SenderID + 1,
		},
		SenderBalance: decimal.Zero,
	}, nil
}

func (stubTransferService) GroupTransfer(ctx context.Context, input usecase.GroupTransferInput) (*usecase.GroupTransferResult, error) {
	return &usecase.GroupTransferResult{}, nil
}

type stubTopUpService struct{}

func (stubTopUpService) TopUp(ctx context.Context, input usecase.TopUpInput) (*usecase.CreditResult, error) {
	return nil, domain.ErrPolicyDenied
}

func (stubTopUpService) Adjust(ctx context.Context, input usecase.AdjustInput) (*usecase.CreditResult, error) {
	return nil, domain.ErrPolicyDenied
}

type stubHistoryService struct{}

func (stubHistoryService) List(ctx context.Context, filter domain.HistoryFilter) (*usecase.HistoryPage, error) {
	return &usecase.HistoryPage{Items: []*domain.Transaction{}}, nil
}

func (stubHistoryService) Get(ctx context.Context, accountID int64, id string) (*domain.Transaction, error) {
	return nil, domain.ErrTransactionNotFound
}

func (stubHistoryService) Statement(ctx context.Context, filter domain.HistoryFilter) (*domain.Statement, error) {
	return &domain.Statement{}, nil
}

func (stubHistoryService) ExportCSV(ctx context.Context, filter domain.HistoryFilter, w io.Writer) (int, error) {
	return 0, nil
}

type stubAccountLookup struct{}

func (stubAccountLookup) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

type stubLedgerService struct{}

func (stubLedgerService) CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error) {
	return &usecase.ConsistencyReport{Consistent: true}, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
	key         string
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	s.key = key
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
