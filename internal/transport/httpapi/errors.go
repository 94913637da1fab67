package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
)

type errorResponse struct {
	Error string `json:"error"`
	// Заполняются только для продаж, требующих ручной сверки склада.
	VendaID             string `json:"vendaId,omitempty"`
	ReconciliacaoManual bool   `json:"reconciliacaoManual,omitempty"`
}

var errBadJSON = errors.New("invalid request body")

// errorStatus сопоставляет доменную ошибку HTTP-статусу и безопасному телу ответа.
func errorStatus(err error) (int, errorResponse) {
	var recErr *domain.StockReconciliationError
	switch {
	case errors.As(err, &recErr):
		return http.StatusInternalServerError, errorResponse{
			Error:               "stock commit failed, sale rolled back",
			VendaID:             recErr.SaleID,
			ReconciliacaoManual: recErr.Degraded,
		}
	case errors.Is(err, errBadJSON), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidStateTransition),
		domain.IsVersionConflict(err):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusConflict, errorResponse{Error: "Idempotency-Key is already used with a different request payload"}
	case errors.Is(err, idempotency.ErrRequestInProgress):
		return http.StatusConflict, errorResponse{Error: "request with the same Idempotency-Key is still processing"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadJSON)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}
