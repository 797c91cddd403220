// README: Handler utilities: JSON helpers, caller extraction, error mapping.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lustre/internal/http/middleware"
	"lustre/internal/modules/assignment"
	"lustre/internal/modules/booking"
	"lustre/internal/modules/payment"
	"lustre/internal/modules/pricing"
	"lustre/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
	// Hint tells the caller which side is authoritative after a failure, e.g.
	// "payment not charged, booking not created".
	Hint string `json:"hint,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeErrorHint(c *gin.Context, status int, msg, hint string) {
	writeJSON(c, status, errorResponse{Error: msg, Hint: hint})
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBadRequest),
		errors.Is(err, pricing.ErrTierBelowFloor),
		errors.Is(err, pricing.ErrUnknownTier):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrUnknownService),
		errors.Is(err, pricing.ErrUnknownAddOn),
		errors.Is(err, pricing.ErrUnknownCondition):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrNotOwner),
		errors.Is(err, booking.ErrNotAssignee),
		errors.Is(err, payment.ErrOwnershipMismatch):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrPaymentRequired),
		errors.Is(err, payment.ErrDeclined):
		writeErrorHint(c, http.StatusPaymentRequired, err.Error(), "payment not charged, booking not created")
	case errors.Is(err, payment.ErrUnavailable):
		writeErrorHint(c, http.StatusBadGateway, err.Error(), "booking unchanged, retry the same request")
	case errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, booking.ErrAlreadyTerminal),
		errors.Is(err, booking.ErrActiveBooking),
		errors.Is(err, booking.ErrAdjustmentUnsupported),
		errors.Is(err, assignment.ErrAlreadyClaimed),
		errors.Is(err, payment.ErrNotCapturable),
		errors.Is(err, payment.ErrNotVoidable),
		errors.Is(err, payment.ErrAlreadyCaptured):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// callerFromContext builds the service-level caller identity from the auth
// middleware's context values; unauthenticated guests identify by email.
func callerFromContext(c *gin.Context) booking.Caller {
	return booking.Caller{
		Role:       c.GetString(middleware.ContextRole),
		ID:         types.ID(c.GetString(middleware.ContextUID)),
		GuestEmail: c.Query("guest_email"),
	}
}

type bookingResponse struct {
	BookingID    string          `json:"booking_id"`
	Status       string          `json:"status"`
	ServiceType  string          `json:"service_type"`
	VehicleTier  string          `json:"vehicle_tier"`
	AddOns       []string        `json:"add_ons,omitempty"`
	Condition    string          `json:"condition"`
	Price        priceResponse   `json:"price"`
	WorkerID     string          `json:"worker_id,omitempty"`
	Adjustment   *adjResponse    `json:"adjustment,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CancelFee    int64           `json:"cancellation_fee,omitempty"`
}

type priceResponse struct {
	Subtotal  int64  `json:"subtotal"`
	Surcharge int64  `json:"surcharge"`
	Tax       int64  `json:"tax"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
}

type adjResponse struct {
	ProposedTotal int64  `json:"proposed_total"`
	Reason        string `json:"reason"`
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	out := bookingResponse{
		BookingID:   string(b.ID),
		Status:      string(b.Status),
		ServiceType: b.ServiceType,
		VehicleTier: string(b.VehicleTier),
		AddOns:      b.AddOns,
		Condition:   string(b.Condition),
		Price: priceResponse{
			Subtotal:  b.Price.Subtotal,
			Surcharge: b.Price.Surcharge,
			Tax:       b.Price.Tax,
			Total:     b.Price.Total,
			Currency:  b.Price.Currency,
		},
		CancelFee: b.CancellationFee,
	}
	if b.WorkerID != nil {
		out.WorkerID = string(*b.WorkerID)
	}
	if b.Adjustment != nil {
		out.Adjustment = &adjResponse{ProposedTotal: b.Adjustment.ProposedTotal, Reason: b.Adjustment.Reason}
	}
	if b.CancelReason != nil {
		out.CancelReason = *b.CancelReason
	}
	return out
}
