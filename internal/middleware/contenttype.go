package middleware

import (
	"mime"
	"net/http"

	"go.uber.org/zap"
)

// ContentType rejects POST, PATCH and PUT bodies whose media type is not one of allowed
func ContentType(logger *zap.Logger, allowed ...string) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		allowed = []string{"application/json"}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch && r.Method != http.MethodPut {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Content-Type")
			if header == "" {
				respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Content-Type header is required", logger)
				return
			}

			mediaType, _, err := mime.ParseMediaType(header)
			if err == nil {
				for _, a := range allowed {
					if mediaType == a {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Unsupported Content-Type", logger)
		})
	}
}
