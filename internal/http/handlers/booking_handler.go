// README: Customer-facing booking handlers: create, get, cancel, adjustment decisions.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lustre/internal/http/middleware"
	"lustre/internal/modules/booking"
	"lustre/internal/modules/pricing"
	"lustre/internal/types"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: svc}
}

type guestReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createBookingReq struct {
	Guest              *guestReq `json:"guest,omitempty"`
	ServiceType        string    `json:"service_type"`
	VehicleMake        string    `json:"vehicle_make"`
	VehicleModel       string    `json:"vehicle_model"`
	VehicleTier        string    `json:"vehicle_tier,omitempty"`
	AddOns             []string  `json:"add_ons,omitempty"`
	Condition          string    `json:"condition"`
	PaymentMethodToken string    `json:"payment_method_token"`
}

// Create opens a booking for an authenticated customer or an anonymous guest.
// The price is always computed server-side; the request never carries amounts.
func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	cmd := booking.CreateCommand{
		CustomerID:         types.ID(c.GetString(middleware.ContextUID)),
		ServiceType:        req.ServiceType,
		VehicleMake:        req.VehicleMake,
		VehicleModel:       req.VehicleModel,
		RequestedTier:      pricing.Tier(req.VehicleTier),
		AddOnIDs:           req.AddOns,
		Condition:          pricing.Condition(req.Condition),
		PaymentMethodToken: req.PaymentMethodToken,
	}
	if req.Guest != nil {
		cmd.Guest = &booking.GuestContact{Name: req.Guest.Name, Email: req.Guest.Email, Phone: req.Guest.Phone}
	}

	b, err := h.booking.Create(c.Request.Context(), cmd)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.Get(c.Request.Context(), types.ID(id), callerFromContext(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.Cancel(c.Request.Context(), booking.CancelCommand{
		BookingID:  types.ID(id),
		CustomerID: types.ID(c.GetString(middleware.ContextUID)),
		GuestEmail: c.Query("guest_email"),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) ApproveAdjustment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.ApproveAdjustment(c.Request.Context(), booking.ApproveAdjustmentCommand{
		BookingID:  types.ID(id),
		CustomerID: types.ID(c.GetString(middleware.ContextUID)),
		GuestEmail: c.Query("guest_email"),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) DeclineAdjustment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.DeclineAdjustment(c.Request.Context(), booking.DeclineAdjustmentCommand{
		BookingID:  types.ID(id),
		CustomerID: types.ID(c.GetString(middleware.ContextUID)),
		GuestEmail: c.Query("guest_email"),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

// Catalog serves the read-only service and add-on catalog.
func (h *BookingHandler) Catalog(c *gin.Context) {
	services := make([]gin.H, 0)
	for _, s := range pricing.Services() {
		services = append(services, gin.H{"id": s.ID, "name": s.Name, "base_by_tier": s.BaseByTier})
	}
	addOns := make([]gin.H, 0)
	for _, a := range pricing.AddOns() {
		addOns = append(addOns, gin.H{"id": a.ID, "name": a.Name, "price": a.Price})
	}
	writeJSON(c, http.StatusOK, gin.H{"services": services, "add_ons": addOns})
}
