package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// An origin of "*" allows every caller. Otherwise the request origin is
// echoed back only when it is one of the allowed origins.
func Cors(origins ...string) web.Middleware {
	var allowAll bool
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")

			switch _, ok := allowed[origin]; {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case ok && origin != "":
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			// The node only reads the ledger and accepts transactions.
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
