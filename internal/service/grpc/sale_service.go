package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/checkout"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
	posv1 "github.com/vladislavdragonenkov/pos/proto/pos/v1"
)

const (
	idempotencyKeyHeader = "idempotency-key"

	defaultListSalesLimit = 100
)

// Sales — операции продаж, которые отдаёт gRPC API.
type Sales interface {
	CreateSale(ctx context.Context, cart checkout.Cart) (checkout.Receipt, error)
	GetSale(ctx context.Context, saleID string) (checkout.SaleDetails, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	ConfirmPayment(ctx context.Context, saleID string) (domain.Sale, error)
	CancelSale(ctx context.Context, saleID, reason string) (domain.Sale, error)
}

// SaleService реализует pos.v1.SaleService поверх сервиса оформления продаж.
type SaleService struct {
	posv1.UnimplementedSaleServiceServer

	sales  Sales
	guard  *idempotency.Guard
	logger *log.Entry
}

// NewSaleService конструирует сервис. Без guard изменяющие методы выполняются без кеша ответов.
func NewSaleService(sales Sales, guard *idempotency.Guard, logger *log.Entry) *SaleService {
	if logger == nil {
		logger = log.New().WithField("component", "sale-grpc")
	}
	return &SaleService{
		sales:  sales,
		guard:  guard,
		logger: logger,
	}
}

// CreateSale оформляет продажу. Требует metadata idempotency-key.
func (s *SaleService) CreateSale(ctx context.Context, req *posv1.CreateSaleRequest) (*posv1.CreateSaleResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cart := checkout.Cart{
		Items:   make([]checkout.CartItem, 0, len(req.GetItems())),
		Toggles: pricing.Toggles{Family: req.GetFamily(), Special: req.GetSpecial()},
	}
	for _, item := range req.GetItems() {
		if item == nil {
			return nil, status.Error(codes.InvalidArgument, "cart item is required")
		}
		cart.Items = append(cart.Items, checkout.CartItem{
			ProductID: strings.TrimSpace(item.GetProductId()),
			Quantity:  int(item.GetQuantity()),
		})
	}

	return withIdempotency(s, ctx, posv1.SaleService_CreateSale_FullMethodName, req,
		func() *posv1.CreateSaleResponse { return &posv1.CreateSaleResponse{} },
		func(ctx context.Context) (*posv1.CreateSaleResponse, error) {
			receipt, err := s.sales.CreateSale(ctx, cart)
			if err != nil {
				return nil, s.toStatus(err, "create sale")
			}
			return &posv1.CreateSaleResponse{Sale: receiptToProto(receipt)}, nil
		})
}

// GetSale возвращает продажу с историей.
func (s *SaleService) GetSale(ctx context.Context, req *posv1.GetSaleRequest) (*posv1.GetSaleResponse, error) {
	saleID := strings.TrimSpace(req.GetSaleId())
	if saleID == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	details, err := s.sales.GetSale(ctx, saleID)
	if err != nil {
		return nil, s.toStatus(err, "get sale")
	}

	resp := &posv1.GetSaleResponse{
		Sale:     toProtoSale(details.Sale),
		Timeline: make([]*posv1.TimelineEvent, 0, len(details.Timeline)),
	}
	for _, event := range details.Timeline {
		resp.Timeline = append(resp.Timeline, &posv1.TimelineEvent{
			Type:     event.Type,
			Reason:   event.Reason,
			UnixTime: event.Occurred.Unix(),
		})
	}
	return resp, nil
}

// ListSales возвращает последние продажи, новые первыми.
func (s *SaleService) ListSales(ctx context.Context, req *posv1.ListSalesRequest) (*posv1.ListSalesResponse, error) {
	if req.GetLimit() < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be >= 0")
	}
	limit := defaultListSalesLimit
	if req.GetLimit() > 0 {
		limit = int(req.GetLimit())
	}

	sales, err := s.sales.ListSales(ctx, limit)
	if err != nil {
		return nil, s.toStatus(err, "list sales")
	}
	resp := &posv1.ListSalesResponse{Sales: make([]*posv1.Sale, 0, len(sales))}
	for _, sale := range sales {
		resp.Sales = append(resp.Sales, toProtoSale(sale))
	}
	return resp, nil
}

// ConfirmPayment переводит продажу в paid. Требует metadata idempotency-key.
func (s *SaleService) ConfirmPayment(ctx context.Context, req *posv1.ConfirmPaymentRequest) (*posv1.ConfirmPaymentResponse, error) {
	saleID := strings.TrimSpace(req.GetSaleId())
	if saleID == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	return withIdempotency(s, ctx, posv1.SaleService_ConfirmPayment_FullMethodName, req,
		func() *posv1.ConfirmPaymentResponse { return &posv1.ConfirmPaymentResponse{} },
		func(ctx context.Context) (*posv1.ConfirmPaymentResponse, error) {
			sale, err := s.sales.ConfirmPayment(ctx, saleID)
			if err != nil {
				return nil, s.toStatus(err, "confirm payment")
			}
			return &posv1.ConfirmPaymentResponse{Sale: toProtoSale(sale)}, nil
		})
}

// CancelSale отменяет продажу в любом статусе. Требует metadata idempotency-key.
func (s *SaleService) CancelSale(ctx context.Context, req *posv1.CancelSaleRequest) (*posv1.CancelSaleResponse, error) {
	saleID := strings.TrimSpace(req.GetSaleId())
	if saleID == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	return withIdempotency(s, ctx, posv1.SaleService_CancelSale_FullMethodName, req,
		func() *posv1.CancelSaleResponse { return &posv1.CancelSaleResponse{} },
		func(ctx context.Context) (*posv1.CancelSaleResponse, error) {
			sale, err := s.sales.CancelSale(ctx, saleID, strings.TrimSpace(req.GetReason()))
			if err != nil {
				return nil, s.toStatus(err, "cancel sale")
			}
			return &posv1.CancelSaleResponse{Sale: toProtoSale(sale)}, nil
		})
}

// toStatus сопоставляет доменную ошибку коду gRPC.
func (s *SaleService) toStatus(err error, operation string) error {
	var recErr *domain.StockReconciliationError
	switch {
	case errors.As(err, &recErr):
		s.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"sale_id":   recErr.SaleID,
			"degraded":  recErr.Degraded,
		}).Error("stock commit failed")
		return status.Errorf(codes.Internal, "stock commit failed for sale %s", recErr.SaleID)
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrInvalidStateTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.IsVersionConflict(err):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.WithError(err).WithField("operation", operation).Error("sale operation failed")
		return status.Errorf(codes.Internal, "failed to %s", operation)
	}
}

type idempotencyErrorPayload struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// withIdempotency выполняет handler под ключом из metadata. Ответ (успешный или ошибка)
// сохраняется в protojson и возвращается при повторе без повторного выполнения.
func withIdempotency[T proto.Message](
	s *SaleService,
	ctx context.Context,
	method string,
	req proto.Message,
	newResp func() T,
	handler func(context.Context) (T, error),
) (T, error) {
	var zero T
	if s.guard == nil {
		return handler(ctx)
	}

	key, err := readIdempotencyKey(ctx)
	if err != nil {
		return zero, err
	}
	hash, err := buildIdempotencyRequestHash(method, req)
	if err != nil {
		s.logger.WithError(err).WithField("method", method).Warn("failed to build idempotency request hash")
		return zero, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	var live T
	resp, replayed, err := s.guard.Do(ctx, key, hash, func(ctx context.Context) (idempotency.Response, error) {
		out, runErr := handler(ctx)
		if runErr != nil {
			return encodeFailure(runErr), runErr
		}
		live = out
		data, marshalErr := protojson.Marshal(out)
		if marshalErr != nil {
			s.logger.WithError(marshalErr).WithField("idempotency_key", key).Warn("failed to encode idempotent success response")
			return idempotency.Response{Status: int(codes.OK)}, nil
		}
		return idempotency.Response{Body: data, Status: int(codes.OK)}, nil
	})
	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return zero, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(err, idempotency.ErrRequestInProgress):
		return zero, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
	case err != nil && !replayed && resp.Status == 0:
		s.logger.WithError(err).WithField("method", method).Warn("idempotency guard failed")
		return zero, status.Error(codes.Internal, "failed to initialize idempotency request")
	case err != nil:
		return zero, err
	}

	if !replayed {
		return live, nil
	}
	return decodeReplay(s, key, resp, newResp)
}

func encodeFailure(runErr error) idempotency.Response {
	st := status.Convert(runErr)
	code := st.Code()
	if code == codes.OK {
		code = codes.Internal
	}
	payload, err := json.Marshal(idempotencyErrorPayload{
		Code:    int32(code), //nolint:gosec // codes.Code is a bounded enum value.
		Message: st.Message(),
	})
	if err != nil {
		payload = nil
	}
	return idempotency.Response{Body: payload, Status: int(code)}
}

func decodeReplay[T proto.Message](s *SaleService, key string, resp idempotency.Response, newResp func() T) (T, error) {
	var zero T
	code, ok := grpcCodeFromInt(resp.Status)
	if !ok {
		return zero, status.Error(codes.Internal, "unknown idempotency record status")
	}
	if code != codes.OK {
		var payload idempotencyErrorPayload
		if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.Message != "" {
			return zero, status.Error(code, payload.Message)
		}
		return zero, status.Error(code, "previous request with the same idempotency key failed")
	}

	if len(resp.Body) == 0 {
		return zero, status.Error(codes.Internal, "idempotency cache is empty")
	}
	out := newResp()
	if err := protojson.Unmarshal(resp.Body, out); err != nil {
		s.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to decode cached idempotency response")
		return zero, status.Error(codes.Internal, "failed to decode cached idempotency response")
	}
	return out, nil
}

func grpcCodeFromInt(value int) (codes.Code, bool) {
	if value < int(codes.OK) || value > int(codes.Unauthenticated) {
		return codes.Internal, false
	}
	return codes.Code(uint32(value)), true
}

func readIdempotencyKey(ctx context.Context) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(idempotencyKeyHeader)
		if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), nil
		}
	}
	return "", status.Error(codes.InvalidArgument, "idempotency-key metadata is required")
}

// buildIdempotencyRequestHash хеширует метод и детерминированную protobuf-форму запроса.
func buildIdempotencyRequestHash(method string, req proto.Message) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(req)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(method)+1+len(data))
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, data...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func receiptToProto(receipt checkout.Receipt) *posv1.Sale {
	sale := &posv1.Sale{
		Id:         receipt.SaleID,
		Status:     toProtoStatus(receipt.Status),
		TotalCents: int64(receipt.Total),
		Total:      receipt.TotalFormatted,
		Lines:      make([]*posv1.SaleLine, 0, len(receipt.Lines)),
	}
	for _, line := range receipt.Lines {
		sale.Lines = append(sale.Lines, &posv1.SaleLine{
			ProductId:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        int32(line.Quantity), //nolint:gosec // cart quantities are small positive numbers.
			AmountPaidCents: int64(line.AmountPaid),
			AmountPaid:      line.AmountPaidFormatted,
		})
	}
	return sale
}

func toProtoSale(sale domain.Sale) *posv1.Sale {
	out := &posv1.Sale{
		Id:            sale.ID,
		Status:        toProtoStatus(sale.Status),
		TotalCents:    int64(sale.Total),
		Total:         sale.FormattedTotal(),
		Summary:       sale.ItemsSummary(),
		Lines:         make([]*posv1.SaleLine, 0, len(sale.Lines)),
		Version:       sale.Version,
		CreatedAtUnix: sale.CreatedAt.Unix(),
		UpdatedAtUnix: sale.UpdatedAt.Unix(),
	}
	for _, line := range sale.Lines {
		out.Lines = append(out.Lines, &posv1.SaleLine{
			ProductId:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        int32(line.Quantity), //nolint:gosec // cart quantities are small positive numbers.
			AmountPaidCents: int64(line.TotalPaid),
			AmountPaid:      line.TotalPaid.Format(),
			PromotionId:     line.PromotionID,
		})
	}
	return out
}

func toProtoStatus(status domain.SaleStatus) posv1.SaleStatus {
	switch status {
	case domain.SaleStatusPending:
		return posv1.SaleStatus_SALE_STATUS_PENDING
	case domain.SaleStatusPaid:
		return posv1.SaleStatus_SALE_STATUS_PAID
	case domain.SaleStatusCancelled:
		return posv1.SaleStatus_SALE_STATUS_CANCELLED
	default:
		return posv1.SaleStatus_SALE_STATUS_UNSPECIFIED
	}
}
