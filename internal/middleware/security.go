package middleware

import "net/http"

// SimulatorHeader marks every answer of the gateway simulator so it is never
// mistaken for a production gateway.
const SimulatorHeader = "X-Acquiring-Simulator"

// SecurityHeaders keeps gateway answers out of shared caches and disables
// content sniffing. The simulator serves JSON only.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set(SimulatorHeader, "true")

			next.ServeHTTP(w, r)
		})
	}
}
