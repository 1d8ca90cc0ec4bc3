package auth

import (
	"net/http"
	"strings"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// TokenParser is the subset of Service the middleware needs.
type TokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// agent ID on the request context.
func RequireAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			agentID, err := parser.ParseAccessToken(token)
			if err != nil {
				common.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(common.WithAgentID(r.Context(), agentID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
