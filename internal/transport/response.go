package transport

import (
	"errors"
	"net/http"

	"freshbread-be/internal/checkout"
	"freshbread-be/internal/logger"
	"freshbread-be/internal/order"
	"freshbread-be/internal/payment"
	"freshbread-be/internal/review"
	"freshbread-be/internal/utils"

	"go.uber.org/zap"
)

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and surfaced as a bare 500 so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *checkout.ValidationError
	if errors.As(err, &vErr) {
		utils.WriteJSONError(w, vErr.Msg, http.StatusUnprocessableEntity)
		return
	}

	var stepErr *checkout.StepError
	if errors.As(err, &stepErr) {
		utils.WriteJSON(w, http.StatusConflict, map[string]any{
			"error":           stepErr.Error(),
			"incomplete_step": int(stepErr.Incomplete),
		})
		return
	}

	var transErr *order.IllegalTransitionError
	if errors.As(err, &transErr) {
		utils.WriteJSONError(w, transErr.Error(), http.StatusConflict)
		return
	}

	switch {
	case errors.Is(err, checkout.ErrRateLimited),
		errors.Is(err, order.ErrTooManyAttempts):
		utils.WriteJSONError(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, payment.ErrReferenceConflict):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrReviewResolved):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrDeliveryCodeMismatch):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, review.ErrNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.FromCtx(r.Context()).Error("request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
