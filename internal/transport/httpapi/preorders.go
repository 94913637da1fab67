package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/preorder"
	"github.com/vladislavdragonenkov/pos/internal/service/pricing"
)

type createPreorderRequest struct {
	NomeCliente           string              `json:"nomeCliente"`
	TelefoneCliente       string              `json:"telefoneCliente"`
	DataEntrega           string              `json:"dataEntrega"`
	Observacoes           string              `json:"observacoes"`
	Itens                 []cartItemRequest   `json:"itens"`
	PromocoesSelecionadas *selectedPromotions `json:"promocoesSelecionadas,omitempty"`
}

type preorderItemResponse struct {
	ProdutoID               string `json:"produtoId"`
	NomeProduto             string `json:"nomeProduto"`
	Quantidade              int    `json:"quantidade"`
	PrecoUnitarioEmCentavos int64  `json:"precoUnitarioEmCentavos"`
}

type preorderResponse struct {
	ID              string                 `json:"id"`
	NomeCliente     string                 `json:"nomeCliente"`
	TelefoneCliente string                 `json:"telefoneCliente,omitempty"`
	DataEntrega     time.Time              `json:"dataEntrega"`
	Observacoes     string                 `json:"observacoes,omitempty"`
	Status          string                 `json:"status"`
	TotalEmCentavos int64                  `json:"totalEmCentavos"`
	TotalFormatado  string                 `json:"totalFormatado"`
	ResumoItens     string                 `json:"resumoItens"`
	Itens           []preorderItemResponse `json:"itens"`
}

type updatePreorderStatusRequest struct {
	Status string `json:"status"`
}

func toPreorderResponse(p domain.Preorder) preorderResponse {
	items := make([]preorderItemResponse, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, preorderItemResponse{
			ProdutoID:               item.ProductID,
			NomeProduto:             item.ProductName,
			Quantidade:              item.Quantity,
			PrecoUnitarioEmCentavos: int64(item.UnitPrice),
		})
	}
	return preorderResponse{
		ID:              p.ID,
		NomeCliente:     p.CustomerName,
		TelefoneCliente: p.CustomerPhone,
		DataEntrega:     p.DeliveryDate,
		Observacoes:     p.Notes,
		Status:          string(p.Status),
		TotalEmCentavos: int64(p.Total),
		TotalFormatado:  p.Total.Format(),
		ResumoItens:     p.ItemsSummary(),
		Itens:           items,
	}
}

// parseDeliveryDate принимает RFC 3339 или дату без времени (YYYY-MM-DD).
func parseDeliveryDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: dataEntrega is required", domain.ErrInvalidArgument)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dataEntrega must be RFC 3339 or YYYY-MM-DD", domain.ErrInvalidArgument)
	}
	return t, nil
}

func (h *Handler) createPreorder(w http.ResponseWriter, r *http.Request) {
	var req createPreorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	delivery, err := parseDeliveryDate(req.DataEntrega)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]pricing.Item, 0, len(req.Itens))
	for _, item := range req.Itens {
		items = append(items, pricing.Item{ProductID: strings.TrimSpace(item.ProdutoID), Quantity: item.Quantidade})
	}

	created, err := h.preorders.Create(r.Context(), preorder.NewPreorder{
		CustomerName:  req.NomeCliente,
		CustomerPhone: req.TelefoneCliente,
		DeliveryDate:  delivery,
		Notes:         req.Observacoes,
		Items:         items,
		Toggles:       req.PromocoesSelecionadas.toggles(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPreorderResponse(created))
}

func (h *Handler) listPreorders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := domain.PreorderStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	preorders, err := h.preorders.List(r.Context(), status, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]preorderResponse, 0, len(preorders))
	for _, p := range preorders {
		out = append(out, toPreorderResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getPreorder(w http.ResponseWriter, r *http.Request) {
	found, err := h.preorders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreorderResponse(found))
}

func (h *Handler) updatePreorderStatus(w http.ResponseWriter, r *http.Request) {
	var req updatePreorderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.preorders.UpdateStatus(r.Context(), r.PathValue("id"), domain.PreorderStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreorderResponse(updated))
}
