// README: Admin console handlers: override cancel, listing by status.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lustre/internal/http/middleware"
	"lustre/internal/modules/booking"
	"lustre/internal/types"
)

type AdminHandler struct {
	booking *booking.Service
}

func NewAdminHandler(svc *booking.Service) *AdminHandler {
	return &AdminHandler{booking: svc}
}

type adminCancelReq struct {
	Reason string `json:"reason"`
}

// Cancel is the administrative override: any non-terminal booking, full void,
// zero fee.
func (h *AdminHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	var req adminCancelReq
	_ = c.ShouldBindJSON(&req)

	b, err := h.booking.AdminCancel(c.Request.Context(), booking.AdminCancelCommand{
		BookingID: types.ID(id),
		AdminID:   types.ID(c.GetString(middleware.ContextUID)),
		Reason:    req.Reason,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *AdminHandler) List(c *gin.Context) {
	st := booking.Status(c.Query("status"))
	if st == "" {
		writeError(c, http.StatusBadRequest, "missing status filter")
		return
	}
	list, err := h.booking.ListByStatus(c.Request.Context(), st)
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

func (h *AdminHandler) Get(c *gin.Context) {
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
