package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
)

type productResponse struct {
	ID                   string `json:"id"`
	Nome                 string `json:"nome"`
	Categoria            string `json:"categoria,omitempty"`
	Estoque              int    `json:"estoque"`
	PrecoCustoEmCentavos int64  `json:"precoCustoEmCentavos"`
	PrecoVendaEmCentavos int64  `json:"precoVendaEmCentavos"`
	PrecoVendaFormatado  string `json:"precoVendaFormatado"`
	MargemPontosBase     int64  `json:"margemPontosBase"`
	Ativo                bool   `json:"ativo"`
}

type createProductRequest struct {
	Nome                 string `json:"nome"`
	Categoria            string `json:"categoria"`
	Estoque              int    `json:"estoque"`
	PrecoCustoEmCentavos int64  `json:"precoCustoEmCentavos"`
	PrecoVendaEmCentavos int64  `json:"precoVendaEmCentavos"`
}

type adjustStockRequest struct {
	NovoEstoque *int `json:"novoEstoque"`
}

type adjustStockResponse struct {
	ID          string `json:"id"`
	NovoEstoque int    `json:"novoEstoque"`
}

type setPriceRequest struct {
	PrecoVendaEmCentavos *int64 `json:"precoVendaEmCentavos"`
}

type promotionRequest struct {
	ID                  string   `json:"id"`
	Nome                string   `json:"nome"`
	Tipo                string   `json:"tipo"`
	Ativa               *bool    `json:"ativa"`
	CategoriaAlvo       string   `json:"categoriaAlvo"`
	ProdutosAlvo        []string `json:"produtosAlvo"`
	Prioridade          int      `json:"prioridade"`
	QuantidadeMinima    int      `json:"quantidadeMinima"`
	PrecoFixoEmCentavos int64    `json:"precoFixoEmCentavos"`
	PercentualDesconto  int      `json:"percentualDesconto"`
	QuantidadeGratis    int      `json:"quantidadeGratis"`
}

type promotionResponse struct {
	ID                  string    `json:"id"`
	Nome                string    `json:"nome"`
	Tipo                string    `json:"tipo"`
	Ativa               bool      `json:"ativa"`
	CategoriaAlvo       string    `json:"categoriaAlvo,omitempty"`
	ProdutosAlvo        []string  `json:"produtosAlvo,omitempty"`
	Prioridade          int       `json:"prioridade"`
	QuantidadeMinima    int       `json:"quantidadeMinima,omitempty"`
	PrecoFixoEmCentavos int64     `json:"precoFixoEmCentavos,omitempty"`
	PercentualDesconto  int       `json:"percentualDesconto,omitempty"`
	QuantidadeGratis    int       `json:"quantidadeGratis,omitempty"`
	CriadaEm            time.Time `json:"criadaEm"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:                   p.ID,
		Nome:                 p.Name,
		Categoria:            p.Category,
		Estoque:              p.StockQuantity,
		PrecoCustoEmCentavos: int64(p.CostPrice),
		PrecoVendaEmCentavos: int64(p.SalePrice),
		PrecoVendaFormatado:  p.SalePrice.Format(),
		MargemPontosBase:     p.MarginBasisPoints(),
		Ativo:                p.Active,
	}
}

func toPromotionResponse(p domain.Promotion) promotionResponse {
	return promotionResponse{
		ID:                  p.ID,
		Nome:                p.Name,
		Tipo:                string(p.Kind),
		Ativa:               p.Active,
		CategoriaAlvo:       p.TargetCategory,
		ProdutosAlvo:        p.TargetProductIDs,
		Prioridade:          p.Priority,
		QuantidadeMinima:    p.MinimumItems,
		PrecoFixoEmCentavos: int64(p.FixedBundlePrice),
		PercentualDesconto:  p.DiscountPercent,
		QuantidadeGratis:    p.FreeItems,
		CriadaEm:            p.CreatedAt,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("ativos")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: ativos must be a boolean", domain.ErrInvalidArgument))
			return
		}
		activeOnly = parsed
	}

	products, err := h.catalog.ListProducts(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), catalog.NewProduct{
		Name:          req.Nome,
		Category:      req.Categoria,
		StockQuantity: req.Estoque,
		CostPrice:     domain.Money(req.PrecoCustoEmCentavos),
		SalePrice:     domain.Money(req.PrecoVendaEmCentavos),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.NovoEstoque == nil {
		h.writeError(w, r, fmt.Errorf("%w: novoEstoque is required", domain.ErrInvalidArgument))
		return
	}
	product, err := h.catalog.AdjustStock(r.Context(), r.PathValue("id"), *req.NovoEstoque)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustStockResponse{ID: product.ID, NovoEstoque: product.StockQuantity})
}

func (h *Handler) setPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.PrecoVendaEmCentavos == nil {
		h.writeError(w, r, fmt.Errorf("%w: precoVendaEmCentavos is required", domain.ErrInvalidArgument))
		return
	}
	product, err := h.catalog.SetSalePrice(r.Context(), r.PathValue("id"), domain.Money(*req.PrecoVendaEmCentavos))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Deactivate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.catalog.ListActivePromotions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]promotionResponse, 0, len(promotions))
	for _, p := range promotions {
		out = append(out, toPromotionResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) savePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Nome) == "" {
		h.writeError(w, r, fmt.Errorf("%w: nome is required", domain.ErrInvalidArgument))
		return
	}

	active := true
	if req.Ativa != nil {
		active = *req.Ativa
	}
	promotion, err := h.catalog.SavePromotion(r.Context(), domain.Promotion{
		ID:               strings.TrimSpace(req.ID),
		Name:             strings.TrimSpace(req.Nome),
		Active:           active,
		Kind:             domain.PromotionKind(req.Tipo),
		TargetCategory:   strings.TrimSpace(req.CategoriaAlvo),
		TargetProductIDs: req.ProdutosAlvo,
		Priority:         req.Prioridade,
		MinimumItems:     req.QuantidadeMinima,
		FixedBundlePrice: domain.Money(req.PrecoFixoEmCentavos),
		DiscountPercent:  req.PercentualDesconto,
		FreeItems:        req.QuantidadeGratis,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromotionResponse(promotion))
}

func (h *Handler) togglePromotion(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promotion, err := h.catalog.SetPromotionActive(r.Context(), r.PathValue("id"), active)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPromotionResponse(promotion))
	}
}
