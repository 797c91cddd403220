// README: HTTP router registration.
package http

import (
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/sirupsen/logrus"

    "lustre/internal/http/handlers"
    "lustre/internal/http/middleware"
    "lustre/internal/infra"
    "lustre/internal/modules/booking"
)

type RouterDeps struct {
    Booking  *booking.Service
    Verifier infra.TokenVerifier
    Log      *logrus.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
    log := deps.Log
    if log == nil {
        log = logrus.New()
    }

    r := gin.New()
    r.Use(middleware.Recovery(log), middleware.Logging(log))

    bookingHandler := handlers.NewBookingHandler(deps.Booking)
    workerHandler := handlers.NewWorkerHandler(deps.Booking)
    adminHandler := handlers.NewAdminHandler(deps.Booking)

    r.GET("/health", func(c *gin.Context) {
        c.String(http.StatusOK, "OK")
    })
    r.GET("/api/catalog", bookingHandler.Catalog)

    // Customer surface. OptionalAuth lets guests book by contact bundle;
    // authenticated customers book under their uid.
    customer := r.Group("/api/bookings", middleware.OptionalAuth(deps.Verifier))
    customer.POST("", bookingHandler.Create)
    customer.GET("/:id", bookingHandler.Get)
    customer.POST("/:id/cancel", bookingHandler.Cancel)
    customer.POST("/:id/adjustment/approve", bookingHandler.ApproveAdjustment)
    customer.POST("/:id/adjustment/decline", bookingHandler.DeclineAdjustment)

    worker := r.Group("/api/workers/bookings", middleware.Auth(deps.Verifier), middleware.RequireRole("worker"))
    worker.GET("", workerHandler.ListOpen)
    worker.POST("/:id/claim", workerHandler.Claim)
    worker.POST("/:id/start", workerHandler.Start)
    worker.POST("/:id/adjustment", workerHandler.RequestAdjustment)
    worker.POST("/:id/complete", workerHandler.Complete)
    worker.POST("/:id/decline", workerHandler.DeclineAssignment)

    admin := r.Group("/api/admin/bookings", middleware.Auth(deps.Verifier), middleware.RequireRole("admin"))
    admin.GET("", adminHandler.List)
    admin.GET("/:id", adminHandler.Get)
    admin.POST("/:id/cancel", adminHandler.Cancel)

    return r
}
