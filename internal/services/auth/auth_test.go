package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func doAuthorize(t *testing.T, h http.Handler, header string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/authorize", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, body
}

func TestAuthorizeGrantsValidToken(t *testing.T) {
	h := NewHandler(NewStaticVerifier("secret"))
	rec, body := doAuthorize(t, h, "Bearer secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["success"] != true || body["data"] != Grant {
		t.Fatalf("body = %v, want success with %s", body, Grant)
	}
}

func TestAuthorizeDeniesWrongToken(t *testing.T) {
	h := NewHandler(NewStaticVerifier("secret"))
	rec, body := doAuthorize(t, h, "Bearer wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body["success"] != false || body["error"] != "Not authorized" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthorizeDeniesMissingOrMalformedHeader(t *testing.T) {
	h := NewHandler(NewStaticVerifier("secret"))
	for _, header := range []string{"", "secret", "Basic secret", "Bearer"} {
		rec, _ := doAuthorize(t, h, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestStaticVerifierIgnoresBlankTokens(t *testing.T) {
	v := NewStaticVerifier("", "  ", "secret")
	if v.Verify("") {
		t.Fatalf("blank configured tokens must not authorize an empty credential")
	}
	if !v.Verify("secret") {
		t.Fatalf("configured token rejected")
	}
}
