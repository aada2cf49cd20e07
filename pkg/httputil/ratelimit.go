package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/pspdems/dems-backend/pkg/actor"
)

// Create/edit throttling windows. The counters live in process memory
// (httprate's local counter), so the limits are per application instance;
// this is a best-effort abuse deterrent, not a distributed quota.
const (
	CreateLimit    = 5
	EditLimit      = 10
	ThrottleWindow = 5 * time.Minute
)

func keyByActor(r *http.Request) (string, error) {
	if a := actor.FromContext(r.Context()); a != nil {
		return a.Key(), nil
	}
	return httprate.KeyByIP(r)
}

func throttleResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Message: "too many requests, try again later",
	})
}

// LimitCreates throttles record creation to CreateLimit per window per user.
func LimitCreates() func(http.Handler) http.Handler {
	return httprate.Limit(CreateLimit, ThrottleWindow,
		httprate.WithKeyFuncs(keyByActor),
		httprate.WithLimitHandler(throttleResponse),
	)
}

// LimitEdits throttles record edits to EditLimit per window per user.
func LimitEdits() func(http.Handler) http.Handler {
	return httprate.Limit(EditLimit, ThrottleWindow,
		httprate.WithKeyFuncs(keyByActor),
		httprate.WithLimitHandler(throttleResponse),
	)
}

// LimitLogin throttles login attempts by source IP.
func LimitLogin() func(http.Handler) http.Handler {
	return httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(throttleResponse),
	)
}
