package router

import (
	"net/http"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// defaultMaxBodySize applies when Config.MaxBodySize is unset
const defaultMaxBodySize = 1 << 20

// Config holds the middleware settings of the engine
type Config struct {
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        middleware.TracingConfig
	// MeterProvider may be nil; HTTP metrics are then skipped
	MeterProvider *telemetry.MeterProvider
	Profiling     bool
	JWT           middleware.JWTMiddlewareConfig
}

// Handlers are the route handlers. Push may be nil when push delivery is off.
type Handlers struct {
	System         *handler.SystemHandler
	PurchaseOrders *handler.PurchaseOrderHandler
	Receipts       *handler.PurchaseReceiptHandler
	Bills          *handler.PurchaseBillHandler
	Journal        *handler.JournalHandler
	Periods        *handler.AccountingPeriodHandler
	MasterData     *handler.MasterDataHandler
	Stock          *handler.StockHandler
	Outbox         *handler.OutboxHandler
	Push           *handler.PushHandler
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	if cfg.JWT.Logger == nil {
		cfg.JWT.Logger = log
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true
	engine.Use(
		middleware.RequestContext(log),
		logger.Recovery(),
		logger.AccessLog(),
		middleware.Tracing(cfg.Tracing),
		middleware.SpanErrors(),
		middleware.HTTPMetrics(cfg.MeterProvider),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.Fail(dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.Fail(dto.ErrCodeBadRequest, "Method not allowed", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.System.Health)
	if h.Push != nil {
		engine.POST("/pubsub/push", h.Push.Receive)
	}

	api := engine.Group(APIPrefix)
	for _, res := range resources(cfg, h) {
		res.Mount(api)
	}
	return engine, nil
}

// resources declares the versioned API. Everything under a company runs
// behind authentication, tenant binding and the Idempotency-Key check.
func resources(cfg Config, h Handlers) []*Resource {
	system := NewResource("/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	company := NewResource("/companies/:"+middleware.CompanyParam,
		middleware.JWTAuthMiddleware(cfg.JWT),
		middleware.CompanyScope(),
		middleware.RequireIdempotencyKey(),
		middleware.SpanTags(),
		middleware.ProfilingLabels(cfg.Profiling),
	)

	company.Nest("/purchase-orders").
		POST("", h.PurchaseOrders.Create).
		GET("/:poId", h.PurchaseOrders.Get).
		PUT("/:poId", h.PurchaseOrders.Update).
		DELETE("/:poId", h.PurchaseOrders.Delete).
		POST("/:poId/approve", h.PurchaseOrders.Approve).
		POST("/:poId/cancel", h.PurchaseOrders.Cancel).
		GET("/:poId/receiving/summary", h.PurchaseOrders.ReceivingSummary).
		POST("/:poId/receipts", h.PurchaseOrders.CreateReceipt).
		POST("/:poId/convert-to-bill", h.PurchaseOrders.ConvertToBill).
		POST("/:poId/receive-and-bill", h.PurchaseOrders.ReceiveAndBill)

	company.Nest("/purchase-receipts").
		GET("/:receiptId", h.Receipts.Get).
		POST("/:receiptId/post", h.Receipts.Post)

	company.Nest("/purchase-bills").
		GET("/:billId", h.Bills.Get).
		POST("/:billId/post", h.Bills.Post).
		POST("/:billId/payments", h.Bills.RecordPayment)

	company.Nest("/journal-entries").
		POST("", h.Journal.Create).
		GET("/:entryId", h.Journal.Get).
		POST("/:entryId/reverse", h.Journal.Reverse)

	company.Nest("/accounting-periods").
		POST("", h.Periods.Create).
		POST("/:periodId/close", h.Periods.Close).
		POST("/:periodId/reopen", h.Periods.Reopen)

	company.Nest("/accounts").
		GET("", h.MasterData.ListAccounts).
		POST("", h.MasterData.CreateAccount)
	company.Nest("/items").
		GET("", h.MasterData.ListItems).
		POST("", h.MasterData.CreateItem).
		GET("/:itemId/locations/:locationId/stock", h.Stock.GetPosition)
	company.Nest("/locations").
		GET("", h.MasterData.ListLocations).
		POST("", h.MasterData.CreateLocation)

	company.Nest("/outbox").
		GET("/stats", h.Outbox.Stats).
		GET("/dead", h.Outbox.ListDead).
		POST("/dead/retry-all", h.Outbox.ReviveAll).
		GET("/:entryId", h.Outbox.Entry).
		POST("/:entryId/retry", h.Outbox.Revive)

	return []*Resource{system, company}
}
