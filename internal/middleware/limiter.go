package middleware

import (
	"net"
	"net/http"
	"strconv"

	"freshbread-be/internal/ratelimit"
	"freshbread-be/internal/utils"
)

// RateLimitMiddleware applies a keyed limiter to the wrapped handler.
// The actor is the authenticated user when available, the remote IP
// otherwise; the action names the guarded endpoint so quotas do not
// bleed between unrelated operations.
func RateLimitMiddleware(limiter *ratelimit.Limiter, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorKey(r)

			if !limiter.Allow(actor, action) {
				utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func actorKey(r *http.Request) string {
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatUint(uint64(userID), 10)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
