package transport

import (
	"net/http"

	"freshbread-be/internal/logger"
	"freshbread-be/internal/middleware"
	"freshbread-be/internal/ratelimit"
)

// NewRouter assembles the HTTP surface. Checkout and order endpoints
// require an authenticated user; everything under /api/admin is staff
// only. The limiter throttles login and the review-submitting step.
func NewRouter(h *Handler, limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	login := middleware.RateLimitMiddleware(limiter, "login")
	submit := middleware.RateLimitMiddleware(limiter, "checkout_submit")

	user := func(fn http.HandlerFunc) http.Handler {
		return middleware.RequireUser(fn)
	}
	staff := func(fn http.HandlerFunc) http.Handler {
		return middleware.RequireStaff(fn)
	}

	mux.Handle("POST /api/auth/login", login(http.HandlerFunc(h.Login)))

	mux.Handle("POST /api/checkout/step1", user(h.CheckoutStep1))
	mux.Handle("GET /api/checkout/step2", user(h.CheckoutInstructions))
	mux.Handle("POST /api/checkout/step2", user(h.CheckoutConfirmSent))
	mux.Handle("POST /api/checkout/step3", middleware.RequireUser(submit(http.HandlerFunc(h.CheckoutStep3))))
	mux.Handle("POST /api/checkout/cancel", user(h.CheckoutCancel))

	mux.Handle("GET /api/orders", user(h.ListMyOrders))
	mux.Handle("GET /api/orders/{id}", user(h.GetOrder))

	mux.Handle("GET /api/admin/reviews", staff(h.ListReviews))
	mux.Handle("POST /api/admin/reviews/{id}/accept", staff(h.AcceptReview))
	mux.Handle("POST /api/admin/reviews/{id}/reject", staff(h.RejectReview))
	mux.Handle("DELETE /api/admin/reviews/{id}", staff(h.DeleteRejectedReview))

	mux.Handle("GET /api/admin/orders", staff(h.ListAllOrders))
	mux.Handle("POST /api/admin/orders/{id}/status", staff(h.TransitionOrder))
	mux.Handle("POST /api/admin/orders/{id}/deliver", staff(h.DeliverOrder))

	mux.Handle("GET /api/admin/notifications", staff(h.ListNotifications))
	mux.Handle("POST /api/admin/notifications/{id}/read", staff(h.MarkNotificationRead))

	var handler http.Handler = mux
	handler = logger.LoggingMiddleware(handler)
	handler = middleware.AuthMiddleware(h.cfg.JWTSecret)(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}
