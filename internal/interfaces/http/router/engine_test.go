package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appevent "github.com/erp/ledger/internal/application/event"
	inventoryapp "github.com/erp/ledger/internal/application/inventory"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/masterdata"
	periodapp "github.com/erp/ledger/internal/application/period"
	procurementapp "github.com/erp/ledger/internal/application/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPushToken = "push-secret"

type testAPI struct {
	engine *gin.Engine
	h      *testutil.Harness
	fix    *testutil.Fixture
}

func newTestAPI(t *testing.T, checks map[string]handler.HealthCheck) *testAPI {
	t.Helper()
	h := testutil.NewHarness(t)
	log := zap.NewNop()

	posting := ledgerapp.NewPostingService(log)
	costing := inventoryapp.NewCostingService(inventoryapp.CostingConfig{RecalculateInline: true}, log)
	purchasing := procurementapp.NewService(h.Executor, h.Reads, posting, costing, procurementapp.AccountingConfig{
		InventoryAccount: testutil.InventoryAccount,
		GRNIAccount:      testutil.GRNIAccount,
		PayableAccount:   testutil.PayableAccount,
	}, log)

	bus := event.NewInMemoryEventBus(log)
	consumer := event.NewPushConsumer(h.Serializer, bus, cache.NewMemoryConsumedStore(), shared.DefaultDedupConfig(), log)

	if checks == nil {
		checks = map[string]handler.HealthCheck{
			"database": func(context.Context) error { return h.DB.Ping() },
		}
	}

	engine, err := NewEngine(Config{Logger: log}, Handlers{
		System:         handler.NewSystemHandler("ledger", "test", checks),
		PurchaseOrders: handler.NewPurchaseOrderHandler(purchasing),
		Receipts:       handler.NewPurchaseReceiptHandler(purchasing),
		Bills:          handler.NewPurchaseBillHandler(purchasing),
		Journal:        handler.NewJournalHandler(ledgerapp.NewJournalService(h.Reads.JournalEntries(), posting, h.Executor)),
		Periods:        handler.NewAccountingPeriodHandler(periodapp.NewService(h.Executor)),
		MasterData:     handler.NewMasterDataHandler(masterdata.NewService(h.Executor, h.Reads)),
		Stock:          handler.NewStockHandler(inventoryapp.NewStockQueryService(h.Reads)),
		Outbox:         handler.NewOutboxHandler(appevent.NewOutboxService(h.Outbox, log)),
		Push:           handler.NewPushHandler(consumer, testPushToken),
	})
	require.NoError(t, err)
	return &testAPI{engine: engine, h: h, fix: h.Seed(t)}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func (a *testAPI) do(t *testing.T, method, path, key string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testAPI) path(suffix string) string {
	return "/api/v1/companies/" + a.fix.TenantID.String() + suffix
}

func (a *testAPI) createOrder(t *testing.T, key string, qty string) procurementapp.PurchaseOrderResponse {
	t.Helper()
	w, env := a.do(t, http.MethodPost, a.path("/purchase-orders"), key, map[string]any{
		"vendorId":   uuid.New(),
		"vendorName": "Acme Supplies",
		"locationId": a.fix.LocationID,
		"orderDate":  "2024-03-01T00:00:00Z",
		"lines": []map[string]any{
			{"itemId": a.fix.Widget.ID, "quantity": qty, "unitCost": "10.00"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order procurementapp.PurchaseOrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &order))
	return order
}

func TestEngine_RouteTable(t *testing.T) {
	api := newTestAPI(t, nil)
	mounted := make(map[string]bool)
	for _, r := range api.engine.Routes() {
		mounted[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/companies/:id/purchase-orders/:poId/receive-and-bill",
		"POST /api/v1/companies/:id/purchase-orders/:poId/convert-to-bill",
		"POST /api/v1/companies/:id/purchase-bills/:billId/payments",
		"POST /api/v1/companies/:id/journal-entries",
		"POST /api/v1/companies/:id/journal-entries/:entryId/reverse",
		"POST /api/v1/companies/:id/accounting-periods/:periodId/close",
		"GET /api/v1/companies/:id/items/:itemId/locations/:locationId/stock",
		"GET /api/v1/system/ping",
		"POST /pubsub/push",
	} {
		assert.True(t, mounted[want], want)
	}
}

func TestEngine_Health(t *testing.T) {
	api := newTestAPI(t, nil)
	w, _ := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestEngine_HealthFailingDependency(t *testing.T) {
	api := newTestAPI(t, map[string]handler.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w, _ := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestEngine_UnknownRoute(t *testing.T) {
	api := newTestAPI(t, nil)
	w, env := api.do(t, http.MethodGet, "/api/v1/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeRouteNotFound, env.Error.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestEngine_MutationRequiresIdempotencyKey(t *testing.T) {
	api := newTestAPI(t, nil)
	w, env := api.do(t, http.MethodPost, api.path("/purchase-orders"), "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.CodeMissingIdempotencyKey, env.Error.Code)
}

func TestEngine_InvalidCompanyID(t *testing.T) {
	api := newTestAPI(t, nil)
	w, env := api.do(t, http.MethodGet, "/api/v1/companies/not-a-uuid/accounts", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.CodeInvalidInput, env.Error.Code)
}

func TestEngine_ValidationError(t *testing.T) {
	api := newTestAPI(t, nil)
	w, env := api.do(t, http.MethodPost, api.path("/purchase-orders"), "po-invalid", map[string]any{
		"vendorId":   uuid.New(),
		"vendorName": "Acme",
		"locationId": api.fix.LocationID,
		"orderDate":  "2024-03-01T00:00:00Z",
		"lines": []map[string]any{
			{"itemId": api.fix.Widget.ID, "quantity": "0", "unitCost": "10"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	require.NotEmpty(t, env.Error.Fields)
	assert.Equal(t, "lines[0].quantity", env.Error.Fields[0].Field)
}

func TestEngine_MalformedJSON(t *testing.T) {
	api := newTestAPI(t, nil)
	req := httptest.NewRequest(http.MethodPost, api.path("/accounts"), bytes.NewBufferString(`{"code":`))
	req.Header.Set(middleware.HeaderIdempotencyKey, "acc-bad")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
}

func TestEngine_PurchaseOrderNotFound(t *testing.T) {
	api := newTestAPI(t, nil)
	w, env := api.do(t, http.MethodGet, api.path("/purchase-orders/"+uuid.NewString()), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.CodeNotFound, env.Error.Code)

	w, env = api.do(t, http.MethodGet, api.path("/purchase-orders/nope"), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.CodeInvalidInput, env.Error.Code)
}

func TestEngine_OrdersAreTenantScoped(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "po-1", "5")

	other := "/api/v1/companies/" + uuid.NewString() + "/purchase-orders/" + order.ID.String()
	w, _ := api.do(t, http.MethodGet, other, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngine_PurchaseFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "po-create", "100")
	assert.Equal(t, "DRAFT", order.Status)
	assert.Equal(t, "PO-000001", order.OrderNumber)

	w, env := api.do(t, http.MethodPost, api.path("/purchase-orders/"+order.ID.String()+"/approve"), "po-approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "APPROVED", order.Status)

	// Approving again under a new key is a state conflict carrying expected/actual.
	w, env = api.do(t, http.MethodPost, api.path("/purchase-orders/"+order.ID.String()+"/approve"), "po-approve-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeInvalidState, env.Error.Code)
	assert.Equal(t, "APPROVED", env.Error.Details["actual"])

	rabPath := api.path("/purchase-orders/" + order.ID.String() + "/receive-and-bill")
	rabBody := map[string]any{"receiptDate": "2024-03-05T00:00:00Z", "billDate": "2024-03-06T00:00:00Z"}
	w, env = api.do(t, http.MethodPost, rabPath, "po-rab", rabBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result procurementapp.ReceiveAndBillResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.Receipt)
	require.NotNil(t, result.Bill)
	assert.True(t, decimal.NewFromInt(1000).Equal(result.Bill.Total))

	// Same key, same body: the stored result is replayed and nothing is written twice.
	before := api.h.CountRows(t, api.fix.TenantID)
	w, replayed := api.do(t, http.MethodPost, rabPath, "po-rab", rabBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, string(env.Data), string(replayed.Data))
	assert.Equal(t, before, api.h.CountRows(t, api.fix.TenantID))

	// Same key, different body.
	w, env = api.do(t, http.MethodPost, rabPath, "po-rab", map[string]any{"receiptDate": "2024-03-07T00:00:00Z"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, shared.CodeIdempotencyKeyReused, env.Error.Code)

	w, env = api.do(t, http.MethodGet, api.path("/purchase-orders/"+order.ID.String()+"/receiving/summary"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		FullyReceived bool `json:"fullyReceived"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.True(t, summary.FullyReceived)

	w, _ = api.do(t, http.MethodGet, api.path("/purchase-receipts/"+result.Receipt.ID.String()), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, api.path("/purchase-bills/"+result.Bill.ID.String()), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, result.Receipt.JournalEntryID)
	w, _ = api.do(t, http.MethodGet, api.path("/journal-entries/"+result.Receipt.JournalEntryID.String()), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Nothing is left to receive.
	w, env = api.do(t, http.MethodPost, api.path("/purchase-orders/"+order.ID.String()+"/receipts"), "po-receipt", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)

	// The receipt valued 100 widgets at 10.00 in the main location.
	stockPath := api.path("/items/" + api.fix.Widget.ID.String() + "/locations/" + api.fix.LocationID.String() + "/stock?moves=true")
	w, env = api.do(t, http.MethodGet, stockPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var position inventoryapp.StockPositionResponse
	require.NoError(t, json.Unmarshal(env.Data, &position))
	assert.True(t, decimal.NewFromInt(100).Equal(position.Quantity))
	assert.True(t, decimal.NewFromInt(1000).Equal(position.TotalValue))
	require.Len(t, position.Moves, 1)
	assert.Equal(t, result.Receipt.ID, position.Moves[0].SourceID)
}

func TestEngine_ReceiptInClosedPeriod(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "po-create", "10")
	w, _ := api.do(t, http.MethodPost, api.path("/purchase-orders/"+order.ID.String()+"/approve"), "po-approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := api.do(t, http.MethodPost, api.path("/accounting-periods"), "period-create", map[string]any{
		"name": "2024-03", "startDate": "2024-03-01T00:00:00Z", "endDate": "2024-03-31T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p periodapp.PeriodResponse
	require.NoError(t, json.Unmarshal(env.Data, &p))

	w, _ = api.do(t, http.MethodPost, api.path("/accounting-periods/"+p.ID.String()+"/close"), "period-close", nil)
	require.Equal(t, http.StatusOK, w.Code)

	receiptPath := api.path("/purchase-orders/" + order.ID.String() + "/receipts")
	w, env = api.do(t, http.MethodPost, receiptPath, "rcpt-closed", map[string]any{"receiptDate": "2024-03-15T00:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodePeriodClosed, env.Error.Code)

	w, _ = api.do(t, http.MethodPost, api.path("/accounting-periods/"+p.ID.String()+"/reopen"), "period-reopen", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodPost, receiptPath, "rcpt-open", map[string]any{"receiptDate": "2024-03-15T00:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var receipt procurementapp.ReceiptResponse
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.Equal(t, "DRAFT", receipt.Status)

	w, _ = api.do(t, http.MethodPost, api.path("/purchase-receipts/"+receipt.ID.String()+"/post"), "rcpt-post", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestEngine_ManualJournalEntry(t *testing.T) {
	api := newTestAPI(t, nil)
	entry := func(debit, credit string, account string) map[string]any {
		return map[string]any{
			"entryDate":   "2024-03-31T00:00:00Z",
			"description": "Accrue March services",
			"lines": []map[string]any{
				{"accountCode": testutil.ExpenseAccount, "debit": debit},
				{"accountCode": account, "credit": credit},
			},
		}
	}

	w, env := api.do(t, http.MethodPost, api.path("/journal-entries"), "je-unbalanced", entry("100.00", "90.00", testutil.PayableAccount))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeUnbalancedEntry, env.Error.Code)
	assert.Equal(t, "100.00", env.Error.Details["totalDebit"])
	assert.Equal(t, "90.00", env.Error.Details["totalCredit"])

	w, env = api.do(t, http.MethodPost, api.path("/journal-entries"), "je-unknown", entry("100.00", "100.00", "9999"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", env.Error.Code)
	assert.Zero(t, api.h.CountRows(t, api.fix.TenantID).JournalEntries)

	body := entry("100.00", "100.00", testutil.PayableAccount)
	w, env = api.do(t, http.MethodPost, api.path("/journal-entries"), "je-1", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var posted ledgerapp.JournalEntryResponse
	require.NoError(t, json.Unmarshal(env.Data, &posted))
	assert.Equal(t, "MANUAL", posted.SourceType)
	assert.Equal(t, "2024-03-31", posted.EntryDate)
	assert.True(t, decimal.NewFromInt(100).Equal(posted.TotalDebit))
	require.Len(t, posted.Lines, 2)

	before := api.h.CountRows(t, api.fix.TenantID)
	w, replayed := api.do(t, http.MethodPost, api.path("/journal-entries"), "je-1", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, string(env.Data), string(replayed.Data))
	assert.Equal(t, before, api.h.CountRows(t, api.fix.TenantID))
	assert.Equal(t, int64(1), before.JournalEntries)

	w, _ = api.do(t, http.MethodGet, api.path("/journal-entries/"+posted.ID.String()), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_MasterData(t *testing.T) {
	api := newTestAPI(t, nil)

	w, _ := api.do(t, http.MethodPost, api.path("/accounts"), "acc-1", map[string]any{
		"code": "1000", "name": "Cash", "type": "ASSET",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := api.do(t, http.MethodPost, api.path("/accounts"), "acc-2", map[string]any{
		"code": "1000", "name": "Cash again", "type": "ASSET",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, shared.CodeAlreadyExists, env.Error.Code)
	assert.Empty(t, w.Header().Get(middleware.HeaderRetryAfter))

	w, env = api.do(t, http.MethodPost, api.path("/accounts"), "acc-3", map[string]any{
		"code": "1001", "name": "Bogus", "type": "CASH",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)

	w, env = api.do(t, http.MethodGet, api.path("/accounts"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var accounts []masterdata.AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	assert.Len(t, accounts, 5)

	w, _ = api.do(t, http.MethodPost, api.path("/locations"), "loc-1", map[string]any{"code": "ANNEX"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = api.do(t, http.MethodPost, api.path("/items"), "item-1", map[string]any{"code": "BOLT", "name": "Bolt", "tracked": true})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, env = api.do(t, http.MethodGet, api.path("/items"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []masterdata.ItemResponse
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 3)
}

func TestEngine_OutboxStats(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createOrder(t, "po-1", "1")

	w, env := api.do(t, http.MethodGet, api.path("/outbox/stats"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats appevent.OutboxStatsDTO
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Positive(t, stats.Pending)

	w, _ = api.do(t, http.MethodGet, api.path("/outbox/dead?pageSize=10"), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, api.path("/outbox/"+uuid.NewString()), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngine_PubSubPush(t *testing.T) {
	api := newTestAPI(t, nil)
	env, err := json.Marshal(event.Envelope{
		EventID:       uuid.NewString(),
		EventType:     "purchase.order.approved",
		SchemaVersion: event.EnvelopeSchemaVersion,
		OccurredAt:    time.Now().UTC(),
		CompanyID:     api.fix.TenantID.String(),
		Payload:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	body := map[string]any{"message": map[string]any{"data": env, "messageId": "m-1"}}

	w, _ := api.do(t, http.MethodPost, "/pubsub/push?token=wrong", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = api.do(t, http.MethodPost, "/pubsub/push?token="+testPushToken, "", body)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = api.do(t, http.MethodPost, "/pubsub/push?token="+testPushToken, "", map[string]any{"message": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
