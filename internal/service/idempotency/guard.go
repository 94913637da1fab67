package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// DefaultTTL — срок хранения ответа по ключу.
const DefaultTTL = 24 * time.Hour

// ErrRequestInProgress — запрос с тем же ключом ещё обрабатывается.
var ErrRequestInProgress = errors.New("request with the same idempotency key is already processing")

// Response — ответ транспорта, который сохраняется и отдаётся при повторе.
// Status — HTTP-статус или код gRPC, в зависимости от транспорта.
type Response struct {
	Body   []byte
	Status int
}

// Guard выполняет операцию не более одного раза на ключ идемпотентности.
// Используется и HTTP-, и gRPC-транспортом.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
	now    func() time.Time
}

// NewGuard создаёт guard. Нулевой ttl заменяется на DefaultTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency-guard")
	}
	return &Guard{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Do выполняет fn под ключом key. Пустой ключ (или guard без репозитория) означает
// обычное выполнение без кеширования. replayed = true, когда ответ взят из хранилища:
// для завершённых запросов (успешных и с ошибкой) fn повторно не вызывается.
//
// fn возвращает ответ и ошибку; ответ сохраняется в обоих случаях, поэтому при ошибке
// fn должна заполнить Response телом с описанием ошибки.
func (g *Guard) Do(ctx context.Context, key, requestHash string, fn func(context.Context) (Response, error)) (resp Response, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || g == nil || g.repo == nil {
		resp, err = fn(ctx)
		return resp, false, err
	}

	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	if err != nil {
		resp, err = g.replay(key, record, err)
		return resp, err == nil, err
	}

	resp, runErr := fn(ctx)
	store := g.repo.MarkDone
	if runErr != nil {
		store = g.repo.MarkFailed
	}
	// Ответ сохраняем даже при отменённом запросе: операция уже выполнена.
	if cacheErr := store(context.WithoutCancel(ctx), key, resp.Body, resp.Status); cacheErr != nil {
		g.logger.WithError(cacheErr).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
	return resp, false, runErr
}

func (g *Guard) replay(key string, record domain.IdempotencyRecord, createErr error) (Response, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		return Response{}, createErr
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
	default:
		g.logger.WithError(createErr).WithField("idempotency_key", key).Warn("failed to create idempotency record")
		return Response{}, fmt.Errorf("create idempotency record: %w", createErr)
	}

	switch record.Status {
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		if len(record.ResponseBody) == 0 && record.HTTPStatus == 0 {
			return Response{}, errors.New("idempotency cache is empty")
		}
		return Response{Body: record.ResponseBody, Status: record.HTTPStatus}, nil
	case domain.IdempotencyStatusProcessing:
		return Response{}, ErrRequestInProgress
	default:
		return Response{}, fmt.Errorf("unknown idempotency record status %q", record.Status)
	}
}

// HashRequest считает sha256 от имени метода и JSON-представления запроса.
// Для одинаковых структур encoding/json даёт одинаковый результат.
func HashRequest(method string, req any) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	data, err := json.Marshal(req)
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
