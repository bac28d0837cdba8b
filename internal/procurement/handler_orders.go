package procurement

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ampere-erp/ampere-erp/internal/platform/httpx"
	"github.com/ampere-erp/ampere-erp/internal/rbac"
	"github.com/ampere-erp/ampere-erp/internal/shared"
)

func (h *Handler) mountOrderRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.PermOrderManage, rbac.PermReview))
			r.Get("/", h.ListPOs)
			r.Get("/{id}", h.ShowPO)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermOrderManage))
			r.Post("/issue", h.IssuePO)
			r.Post("/direct", h.CreateDirectPO)
			r.Post("/{id}/resubmit", h.ResubmitDirectPO)
			r.Post("/{id}/deliver", h.DeliverPO)
			r.Post("/{id}/cancel", h.CancelPO)
			r.Post("/{id}/send", h.SendPO)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermReview))
			r.Post("/{id}/approve", h.ApproveDirectPO)
			r.Post("/{id}/reject", h.RejectDirectPO)
		})
	})
}

func (h *Handler) ListPOs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := POFilter{Status: POStatus(q.Get("status"))}
	filter.VendorID, _ = strconv.ParseInt(q.Get("vendor_id"), 10, 64)
	filter.SiteID, _ = strconv.ParseInt(q.Get("site_id"), 10, 64)
	if v := q.Get("direct"); v != "" {
		direct := v == "true" || v == "1"
		filter.Direct = &direct
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	orders, total, err := h.service.ListPOs(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchase orders failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "total": total})
}

func (h *Handler) ShowPO(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	po, err := h.service.GetPO(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type issuePOPayload struct {
	RequestID int64  `json:"request_id" validate:"required"`
	PONumber  string `json:"po_number"`
	HSNCode   string `json:"hsn_code"`
	ValidTill string `json:"valid_till"`
}

func (h *Handler) IssuePO(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload issuePOPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	validTill, ok := h.parseDate(w, payload.ValidTill)
	if !ok {
		return
	}
	po, err := h.service.IssuePurchaseOrder(r.Context(), IssuePOInput{
		RequestID: payload.RequestID,
		PONumber:  payload.PONumber,
		HSNCode:   payload.HSNCode,
		ValidTill: validTill,
	}, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

type poItemPayload struct {
	RequestID       int64   `json:"request_id"`
	ItemName        string  `json:"item_name" validate:"required"`
	HSNCode         string  `json:"hsn_code"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
	Unit            string  `json:"unit" validate:"required"`
	UnitRate        float64 `json:"unit_rate" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	GSTRate         float64 `json:"gst_rate" validate:"gte=0,lte=100"`
	PerUnitBasis    float64 `json:"per_unit_basis" validate:"gte=0"`
}

type directPOPayload struct {
	VendorID  int64           `json:"vendor_id" validate:"required"`
	SiteID    int64           `json:"site_id" validate:"required"`
	ValidTill string          `json:"valid_till"`
	Items     []poItemPayload `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) CreateDirectPO(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload directPOPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	validTill, ok := h.parseDate(w, payload.ValidTill)
	if !ok {
		return
	}
	input := DirectPOInput{VendorID: payload.VendorID, SiteID: payload.SiteID, ValidTill: validTill}
	for _, item := range payload.Items {
		input.Items = append(input.Items, POItemInput{
			RequestID:       item.RequestID,
			ItemName:        item.ItemName,
			HSNCode:         item.HSNCode,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			UnitRate:        item.UnitRate,
			DiscountPercent: item.DiscountPercent,
			GSTRate:         item.GSTRate,
			PerUnitBasis:    item.PerUnitBasis,
		})
	}
	po, err := h.service.CreateDirectPO(r.Context(), input, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

type approvePOPayload struct {
	SignatureKey string `json:"signature_key"`
}

func (h *Handler) ApproveDirectPO(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload approvePOPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
			return
		}
	}
	if err := h.service.ApproveDirectPO(r.Context(), id, payload.SignatureKey, actor); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

type rejectPOPayload struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) RejectDirectPO(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var payload rejectPOPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.RejectDirectPO(r.Context(), id, payload.Reason, actor); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) ResubmitDirectPO(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	po, err := h.service.ResubmitDirectPO(r.Context(), id, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) SendPO(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.DispatchPO(r.Context(), id, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, result)
}

func (h *Handler) DeliverPO(w http.ResponseWriter, r *http.Request) {
	h.poTransition(w, r, h.service.MarkDelivered)
}

func (h *Handler) CancelPO(w http.ResponseWriter, r *http.Request) {
	h.poTransition(w, r, h.service.CancelPO)
}

func (h *Handler) poTransition(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, shared.Identity) error) {
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

func (h *Handler) parseDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return ts, true
}
