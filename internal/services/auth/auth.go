package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Grant is the opaque signal a client receives on successful authorization.
const Grant = "ACCESS_GRANTED"

// Verifier checks an opaque bearer credential. Credential issuance lives
// outside this system; the relay only needs grant/deny.
type Verifier interface {
	Verify(token string) bool
}

// StaticVerifier accepts any token from a fixed set, compared in constant
// time.
type StaticVerifier struct {
	tokens []string
}

func NewStaticVerifier(tokens ...string) *StaticVerifier {
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t) != "" {
			valid = append(valid, t)
		}
	}
	return &StaticVerifier{tokens: valid}
}

func (v *StaticVerifier) Verify(token string) bool {
	ok := false
	for _, valid := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(valid)) == 1 {
			ok = true
		}
	}
	return ok
}

// NewHandler serves GET /api/authorize. A grant returns the opaque
// ACCESS_GRANTED signal; a deny is a 401 and the client is expected to
// discard its credential.
func NewHandler(v Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		token, ok := bearerToken(r)
		if !ok || !v.Verify(token) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "Not authorized",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    Grant,
		})
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
