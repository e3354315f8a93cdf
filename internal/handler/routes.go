package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Me          *MeHandler
	Config      *ConfigHandler
	Loan        *LoanHandler
	Collector   *CollectorHandler
	Transaction *TransactionHandler
	Dashboard   *DashboardHandler
}

// RegisterRoutes sets up all API routes. idempotency may be nil when Redis is
// not configured; rateLimiter may be nil to disable limiting.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, idempotency *middleware.IdempotencyStore, h Handlers) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	if rateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	admin := middleware.RequireAdmin()

	api.GET("/me", h.Me.Me)

	api.GET("/config", h.Config.GetConfig)
	api.PUT("/config", h.Config.UpdateConfig, admin)

	// Loan routes; collector actions are idempotent when a key is sent
	loans := api.Group("/loans")
	loans.Use(middleware.Idempotency(idempotency))
	loans.POST("", h.Loan.CreateLoan)
	loans.GET("", h.Loan.ListLoans)
	loans.POST("/preview", h.Loan.PreviewLoan)
	loans.GET("/due-today", h.Loan.ListDueToday)
	loans.GET("/:id", h.Loan.GetLoan)
	loans.DELETE("/:id", h.Loan.DeleteLoan, admin)
	loans.GET("/:id/payments", h.Loan.ListPayments)
	loans.POST("/:id/payments", h.Loan.RegisterPayment)
	loans.POST("/:id/non-payment", h.Loan.RegisterNonPayment)
	loans.POST("/:id/renew", h.Loan.RenewLoan)
	loans.POST("/:id/assign", h.Collector.AssignLoan, admin)

	api.GET("/transactions", h.Transaction.GetTransactions)

	api.GET("/dashboard/summary", h.Dashboard.GetSummary)
	api.GET("/admin/overview", h.Dashboard.GetAdminOverview, admin)

	// Collector administration
	collectors := api.Group("/collectors", admin)
	collectors.GET("", h.Collector.ListCollectors)
	collectors.PUT("/:id/active", h.Collector.SetCollectorActive)
}
