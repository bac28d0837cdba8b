package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ampere-erp/ampere-erp/internal/inventory"
	"github.com/ampere-erp/ampere-erp/internal/platform/httpx"
	"github.com/ampere-erp/ampere-erp/internal/rbac"
	"github.com/ampere-erp/ampere-erp/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.PermRequestCreate, rbac.PermRequestEdit, rbac.PermCostCompare, rbac.PermReview))
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.ShowRequest)
			r.Get("/group/{number}", h.ShowRequestGroup)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermRequestCreate))
			r.Post("/", h.CreateRequests)
			r.Post("/{id}/submit", h.SubmitRequest)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermRequestEdit))
			r.Put("/{id}", h.EditRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermCostCompare))
			r.Post("/{id}/pickup", h.PickupRequest)
			r.Put("/{id}/comparison/quotes", h.SaveQuote)
			r.Delete("/{id}/comparison/quotes/{vendorID}", h.RemoveQuote)
			r.Post("/{id}/comparison/submit", h.SubmitComparison)
			r.Post("/{id}/comparison/resubmit", h.ResubmitComparison)
			r.Post("/{id}/direct-delivery", h.DirectDelivery)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.PermCostCompare, rbac.PermReview))
			r.Get("/{id}/comparison", h.ShowComparison)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermReview))
			r.Post("/{id}/comparison/review", h.ReviewComparison)
		})
	})
	h.mountOrderRoutes(r)
}

type requestLinePayload struct {
	ItemName    string   `json:"item_name" validate:"required"`
	Quantity    float64  `json:"quantity" validate:"gt=0"`
	Unit        string   `json:"unit" validate:"required"`
	Description string   `json:"description"`
	PhotoKeys   []string `json:"photo_keys"`
}

type createRequestsPayload struct {
	SiteID   int64                `json:"site_id" validate:"required"`
	IsUrgent bool                 `json:"is_urgent"`
	Lines    []requestLinePayload `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) CreateRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload createRequestsPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateRequestsInput{SiteID: payload.SiteID, IsUrgent: payload.IsUrgent}
	for _, line := range payload.Lines {
		input.Lines = append(input.Lines, RequestLineInput{
			ItemName:    line.ItemName,
			Quantity:    line.Quantity,
			Unit:        line.Unit,
			Description: line.Description,
			PhotoKeys:   line.PhotoKeys,
		})
	}
	created, err := h.service.CreateRequests(r.Context(), input, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"requests": created})
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := RequestFilter{
		Status:        RequestStatus(q.Get("status")),
		RequestNumber: q.Get("request_number"),
	}
	filter.SiteID, _ = strconv.ParseInt(q.Get("site_id"), 10, 64)
	filter.CreatedBy, _ = strconv.ParseInt(q.Get("created_by"), 10, 64)
	if v := q.Get("urgent"); v != "" {
		urgent := v == "true" || v == "1"
		filter.Urgent = &urgent
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	requests, total, err := h.service.ListRequests(r.Context(), filter)
	if err != nil {
		h.logger.Error("list requests failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests, "total": total})
}

func (h *Handler) ShowRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) ShowRequestGroup(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	requests, err := h.service.ListRequestGroup(r.Context(), number)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	h.requestTransition(w, r, h.service.SubmitRequest)
}

func (h *Handler) PickupRequest(w http.ResponseWriter, r *http.Request) {
	h.requestTransition(w, r, h.service.PickupRequest)
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.requestTransition(w, r, h.service.CancelRequest)
}

type editRequestPayload struct {
	ItemName    string  `json:"item_name"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
}

func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload editRequestPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	req, err := h.service.UpdateRequestDetails(r.Context(), id, EditRequestInput{
		ItemName:    payload.ItemName,
		Quantity:    payload.Quantity,
		Unit:        payload.Unit,
		Description: payload.Description,
	}, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) ShowComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	cc, quotes, err := h.service.GetComparison(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"comparison": cc,
		"quotes":     RankQuotes(quotes, req.Quantity),
	})
}

type quotePayload struct {
	VendorID        int64   `json:"vendor_id" validate:"required"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	Quantity        float64 `json:"quantity" validate:"gte=0"`
	Unit            string  `json:"unit"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	GSTPercent      float64 `json:"gst_percent" validate:"gte=0,lte=100"`
	PerUnitBasis    float64 `json:"per_unit_basis" validate:"gte=0"`
}

func (p quotePayload) toInput() QuoteInput {
	return QuoteInput{
		VendorID:        p.VendorID,
		UnitPrice:       p.UnitPrice,
		Quantity:        p.Quantity,
		Unit:            p.Unit,
		DiscountPercent: p.DiscountPercent,
		GSTPercent:      p.GSTPercent,
		PerUnitBasis:    p.PerUnitBasis,
	}
}

func (h *Handler) SaveQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload quotePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	quote, err := h.service.AddOrUpdateQuote(r.Context(), id, payload.toInput(), actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) RemoveQuote(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	vendorID, err := strconv.ParseInt(chi.URLParam(r, "vendorID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid vendor ID")
		return
	}
	if err := h.service.RemoveQuote(r.Context(), id, vendorID, actor); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) SubmitComparison(w http.ResponseWriter, r *http.Request) {
	h.requestTransition(w, r, h.service.SubmitComparison)
}

type reviewPayload struct {
	Action           string `json:"action" validate:"required,oneof=approve reject"`
	SelectedVendorID int64  `json:"selected_vendor_id"`
	Notes            string `json:"notes"`
}

func (h *Handler) ReviewComparison(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload reviewPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.ReviewComparison(r.Context(), id, ReviewInput{
		Approve:          payload.Action == "approve",
		SelectedVendorID: payload.SelectedVendorID,
		Notes:            payload.Notes,
	}, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": payload.Action + "d"})
}

type resubmitPayload struct {
	Quotes []quotePayload `json:"quotes" validate:"required,min=1,dive"`
}

func (h *Handler) ResubmitComparison(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload resubmitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	quotes := make([]QuoteInput, 0, len(payload.Quotes))
	for _, q := range payload.Quotes {
		quotes = append(quotes, q.toInput())
	}
	if err := h.service.ResubmitComparison(r.Context(), id, quotes, actor); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "resubmitted"})
}

type directDeliveryPayload struct {
	DeductQuantity   float64 `json:"deduct_quantity" validate:"gt=0"`
	PurchaseQuantity float64 `json:"purchase_quantity" validate:"gte=0"`
}

func (h *Handler) DirectDelivery(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload directDeliveryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.MarkDirectDelivery(r.Context(), id, DirectDeliveryInput{
		DeductQuantity:   payload.DeductQuantity,
		PurchaseQuantity: payload.PurchaseQuantity,
	}, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "direct_delivery"})
}

func (h *Handler) requestTransition(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, shared.Identity) error) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := apply(r.Context(), id, actor); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, inventory.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("procurement request failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
