package mid

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	v1 "github.com/adamwoolhether/trxsafe/business/web/v1"
	"github.com/adamwoolhether/trxsafe/foundation/web"
)

// RateLimit refuses requests beyond the limiter's rate with a 429. It's put
// on the routes that reach the node.
func RateLimit(limiter *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !limiter.Allow() {
				return v1.NewRequestError(errors.New("too many requests"), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
