// Package httpapi — REST API кассы. Имена полей JSON совпадают с контрактом
// мобильного приложения (португальские).
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/metrics"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/pos/internal/service/checkout"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/preorder"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	headerRequestID      = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

// SaleService — операции продаж, которые нужны API.
type SaleService interface {
	CreateSale(ctx context.Context, cart checkout.Cart) (checkout.Receipt, error)
	GetSale(ctx context.Context, saleID string) (checkout.SaleDetails, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	ConfirmPayment(ctx context.Context, saleID string) (domain.Sale, error)
	CancelSale(ctx context.Context, saleID, reason string) (domain.Sale, error)
}

// CatalogService — операции каталога товаров и акций.
type CatalogService interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, in catalog.NewProduct) (domain.Product, error)
	AdjustStock(ctx context.Context, id string, quantity int) (domain.Product, error)
	SetSalePrice(ctx context.Context, id string, price domain.Money) (domain.Product, error)
	Deactivate(ctx context.Context, id string) (domain.Product, error)
	ListActivePromotions(ctx context.Context) ([]domain.Promotion, error)
	SavePromotion(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error)
	SetPromotionActive(ctx context.Context, id string, active bool) (domain.Promotion, error)
}

// PreorderService — операции с предзаказами (encomendas).
type PreorderService interface {
	Create(ctx context.Context, in preorder.NewPreorder) (domain.Preorder, error)
	Get(ctx context.Context, id string) (domain.Preorder, error)
	List(ctx context.Context, status domain.PreorderStatus, limit int) ([]domain.Preorder, error)
	UpdateStatus(ctx context.Context, id string, next domain.PreorderStatus) (domain.Preorder, error)
}

// Config — зависимости обработчика. Sales и Catalog обязательны;
// без Preorders маршруты /encomendas не регистрируются.
type Config struct {
	Sales     SaleService
	Catalog   CatalogService
	Preorders PreorderService
	Guard     *idempotency.Guard
	Metrics   *metrics.HTTPMetrics
	Logger    *log.Entry
	// Location задаёт часовой пояс для дат в истории продаж; по умолчанию UTC.
	Location *time.Location
}

// Handler обслуживает REST API.
type Handler struct {
	sales     SaleService
	catalog   CatalogService
	preorders PreorderService
	guard     *idempotency.Guard
	metrics   *metrics.HTTPMetrics
	logger    *log.Entry
	loc       *time.Location
	mux       *http.ServeMux
}

// NewHandler собирает маршруты API.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	h := &Handler{
		sales:     cfg.Sales,
		catalog:   cfg.Catalog,
		preorders: cfg.Preorders,
		guard:     cfg.Guard,
		metrics:   cfg.Metrics,
		logger:    logger,
		loc:       loc,
		mux:       http.NewServeMux(),
	}

	h.handle("POST /vendas", h.createSale)
	h.handle("GET /vendas", h.listSales)
	h.handle("GET /vendas/{id}", h.getSale)
	h.handle("PATCH /vendas/{id}/pagar", h.confirmPayment)
	h.handle("PATCH /vendas/{id}/cancelar", h.cancelSale)

	h.handle("GET /produtos", h.listProducts)
	h.handle("POST /produtos", h.createProduct)
	h.handle("GET /produtos/{id}", h.getProduct)
	h.handle("PATCH /produtos/{id}/estoque", h.adjustStock)
	h.handle("PATCH /produtos/{id}/preco", h.setPrice)
	h.handle("DELETE /produtos/{id}", h.deactivateProduct)

	h.handle("GET /promocoes", h.listPromotions)
	h.handle("POST /promocoes", h.savePromotion)
	h.handle("PATCH /promocoes/{id}/ativar", h.togglePromotion(true))
	h.handle("PATCH /promocoes/{id}/desativar", h.togglePromotion(false))

	if h.preorders != nil {
		h.handle("POST /encomendas", h.createPreorder)
		h.handle("GET /encomendas", h.listPreorders)
		h.handle("GET /encomendas/{id}", h.getPreorder)
		h.handle("PATCH /encomendas/{id}/status", h.updatePreorderStatus)
	}

	return h
}

func (h *Handler) handle(pattern string, fn http.HandlerFunc) {
	h.mux.Handle(pattern, h.metrics.Instrument(pattern, fn))
}

// ServeHTTP добавляет request id, журналирование и восстановление после паники.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(headerRequestID, requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	entry := h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	defer func() {
		if p := recover(); p != nil {
			entry.WithField("panic", p).Error("http handler panicked")
			writeJSON(rec, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		entry = entry.WithFields(log.Fields{
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("http request failed")
			return
		}
		entry.Debug("http request served")
	}()

	h.mux.ServeHTTP(rec, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
