// README: Worker-facing handlers: browse pool, claim, start, adjust, complete.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lustre/internal/http/middleware"
	"lustre/internal/modules/booking"
	"lustre/internal/types"
)

type WorkerHandler struct {
	booking *booking.Service
}

func NewWorkerHandler(svc *booking.Service) *WorkerHandler {
	return &WorkerHandler{booking: svc}
}

func (h *WorkerHandler) ListOpen(c *gin.Context) {
	list, err := h.booking.ListOpen(c.Request.Context())
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingResponse(b))
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}

// Claim races the caller against every other worker eyeing the same booking;
// losers get 409 and should move on to the next job.
func (h *WorkerHandler) Claim(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.Claim(c.Request.Context(), booking.ClaimCommand{
		BookingID: types.ID(id),
		WorkerID:  types.ID(c.GetString(middleware.ContextUID)),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *WorkerHandler) Start(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.Start(c.Request.Context(), booking.StartCommand{
		BookingID: types.ID(id),
		WorkerID:  types.ID(c.GetString(middleware.ContextUID)),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

type requestAdjustmentReq struct {
	NewTotal int64  `json:"new_total"`
	Reason   string `json:"reason"`
}

func (h *WorkerHandler) RequestAdjustment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	var req requestAdjustmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.booking.RequestAdjustment(c.Request.Context(), booking.RequestAdjustmentCommand{
		BookingID: types.ID(id),
		WorkerID:  types.ID(c.GetString(middleware.ContextUID)),
		NewTotal:  req.NewTotal,
		Reason:    req.Reason,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *WorkerHandler) Complete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.Complete(c.Request.Context(), booking.CompleteCommand{
		BookingID: types.ID(id),
		WorkerID:  types.ID(c.GetString(middleware.ContextUID)),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *WorkerHandler) DeclineAssignment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.DeclineAssignment(c.Request.Context(), booking.DeclineAssignmentCommand{
		BookingID: types.ID(id),
		WorkerID:  types.ID(c.GetString(middleware.ContextUID)),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}
