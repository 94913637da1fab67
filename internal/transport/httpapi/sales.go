package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/checkout"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
)

const (
	methodCreateSale = "POST /vendas"
	historyDate      = "02/01/2006"
)

type cartItemRequest struct {
	ProdutoID  string `json:"produtoId"`
	Quantidade int    `json:"quantidade"`
}

type selectedPromotions struct {
	Family  bool `json:"family"`
	Special bool `json:"special"`
}

func (p *selectedPromotions) toggles() pricing.Toggles {
	if p == nil {
		return pricing.Toggles{}
	}
	return pricing.Toggles{Family: p.Family, Special: p.Special}
}

type createSaleRequest struct {
	Itens                 []cartItemRequest   `json:"itens"`
	PromocoesSelecionadas *selectedPromotions `json:"promocoesSelecionadas,omitempty"`
}

type receiptLineResponse struct {
	ProdutoID           string `json:"produtoId,omitempty"`
	NomeProduto         string `json:"nomeProduto"`
	Quantidade          int    `json:"quantidade"`
	PrecoPagoEmCentavos int64  `json:"precoPagoEmCentavos"`
	PrecoPagoFormatado  string `json:"precoPagoFormatado"`
}

type receiptResponse struct {
	VendaID             string                `json:"vendaId"`
	TotalPagoEmCentavos int64                 `json:"totalPagoEmCentavos"`
	TotalFormatado      string                `json:"totalFormatado"`
	Status              string                `json:"status"`
	ItensProcessados    []receiptLineResponse `json:"itensProcessados"`
}

type saleSummaryResponse struct {
	VendaID             string `json:"vendaId"`
	Status              string `json:"status"`
	TotalPagoEmCentavos int64  `json:"totalPagoEmCentavos"`
	TotalFormatado      string `json:"totalFormatado"`
	Data                string `json:"data"`
	ResumoItens         string `json:"resumoItens"`
}

type timelineEventResponse struct {
	Tipo       string    `json:"tipo"`
	Motivo     string    `json:"motivo,omitempty"`
	OcorridoEm time.Time `json:"ocorridoEm"`
}

type saleDetailResponse struct {
	VendaID             string                  `json:"vendaId"`
	Status              string                  `json:"status"`
	TotalPagoEmCentavos int64                   `json:"totalPagoEmCentavos"`
	TotalFormatado      string                  `json:"totalFormatado"`
	CriadoEm            time.Time               `json:"criadoEm"`
	Itens               []receiptLineResponse   `json:"itens"`
	Historico           []timelineEventResponse `json:"historico"`
}

type statusChangeResponse struct {
	VendaID    string `json:"vendaId"`
	NovoStatus string `json:"novoStatus"`
}

type cancelSaleRequest struct {
	Motivo string `json:"motivo"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	cart := checkout.Cart{
		Items:   make([]checkout.CartItem, 0, len(req.Itens)),
		Toggles: req.PromocoesSelecionadas.toggles(),
	}
	for _, item := range req.Itens {
		cart.Items = append(cart.Items, checkout.CartItem{
			ProductID: strings.TrimSpace(item.ProdutoID),
			Quantity:  item.Quantidade,
		})
	}

	key := r.Header.Get(headerIdempotencyKey)
	hash, err := idempotency.HashRequest(methodCreateSale, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, replayed, err := h.guard.Do(r.Context(), key, hash, func(ctx context.Context) (idempotency.Response, error) {
		receipt, err := h.sales.CreateSale(ctx, cart)
		if err != nil {
			status, body := errorStatus(err)
			return encodeResponse(status, body), err
		}
		return encodeResponse(http.StatusCreated, toReceiptResponse(receipt)), nil
	})
	if resp.Status == 0 {
		// Ответа нет: конфликт ключа или сбой хранилища идемпотентности.
		h.writeError(w, r, err)
		return
	}
	if err != nil && resp.Status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("create sale failed")
	}
	if replayed {
		w.Header().Set(headerReplayed, "true")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func encodeResponse(status int, body any) idempotency.Response {
	data, err := json.Marshal(body)
	if err != nil {
		return idempotency.Response{Status: http.StatusInternalServerError, Body: []byte(`{"error":"internal error"}`)}
	}
	return idempotency.Response{Status: status, Body: append(data, '\n')}
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sales, err := h.sales.ListSales(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]saleSummaryResponse, 0, len(sales))
	for i := range sales {
		sale := &sales[i]
		out = append(out, saleSummaryResponse{
			VendaID:             sale.ID,
			Status:              string(sale.Status),
			TotalPagoEmCentavos: int64(sale.Total),
			TotalFormatado:      sale.FormattedTotal(),
			Data:                sale.CreatedAt.In(h.loc).Format(historyDate),
			ResumoItens:         sale.ItemsSummary(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	details, err := h.sales.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sale := details.Sale
	out := saleDetailResponse{
		VendaID:             sale.ID,
		Status:              string(sale.Status),
		TotalPagoEmCentavos: int64(sale.Total),
		TotalFormatado:      sale.FormattedTotal(),
		CriadoEm:            sale.CreatedAt,
		Itens:               make([]receiptLineResponse, 0, len(sale.Lines)),
		Historico:           make([]timelineEventResponse, 0, len(details.Timeline)),
	}
	for _, line := range sale.Lines {
		out.Itens = append(out.Itens, receiptLineResponse{
			ProdutoID:           line.ProductID,
			NomeProduto:         line.ProductName,
			Quantidade:          line.Quantity,
			PrecoPagoEmCentavos: int64(line.TotalPaid),
			PrecoPagoFormatado:  line.TotalPaid.Format(),
		})
	}
	for _, event := range details.Timeline {
		out.Historico = append(out.Historico, timelineEventResponse{
			Tipo:       event.Type,
			Motivo:     event.Reason,
			OcorridoEm: event.Occurred,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	sale, err := h.sales.ConfirmPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusChangeResponse{VendaID: sale.ID, NovoStatus: string(sale.Status)})
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	var req cancelSaleRequest
	// Тело необязательно.
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	sale, err := h.sales.CancelSale(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Motivo))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusChangeResponse{VendaID: sale.ID, NovoStatus: string(sale.Status)})
}

func toReceiptResponse(receipt checkout.Receipt) receiptResponse {
	lines := make([]receiptLineResponse, 0, len(receipt.Lines))
	for _, line := range receipt.Lines {
		lines = append(lines, receiptLineResponse{
			ProdutoID:           line.ProductID,
			NomeProduto:         line.ProductName,
			Quantidade:          line.Quantity,
			PrecoPagoEmCentavos: int64(line.AmountPaid),
			PrecoPagoFormatado:  line.AmountPaidFormatted,
		})
	}
	return receiptResponse{
		VendaID:             receipt.SaleID,
		TotalPagoEmCentavos: int64(receipt.Total),
		TotalFormatado:      receipt.TotalFormatted,
		Status:              string(receipt.Status),
		ItensProcessados:    lines,
	}
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidArgument)
	}
	return limit, nil
}
