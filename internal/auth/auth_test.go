package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func testJWT() JWT {
	return JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	j := testJWT()
	tok, exp, err := j.Sign(Claims{UserID: 7, Email: "a@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiresAt=%s is in the past", exp)
	}
	c, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.UserID != 7 || c.Role != "admin" || c.Subject != "7" || c.Issuer != issuer {
		t.Fatalf("claims=%+v", c)
	}
}

func TestVerifyRejects(t *testing.T) {
	j := testJWT()
	expired, _, err := j.Sign(Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other, _, _ := JWT{Secret: []byte("other"), TokenTTL: time.Hour}.Sign(Claims{UserID: 1})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{"expired": expired, "wrong secret": other, "alg none": none, "garbage": "x.y.z"} {
		if _, err := j.Verify(tok); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, _, err := (JWT{}).Sign(Claims{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
	}
	for in, want := range tests {
		if got := bearerToken(in); got != want {
			t.Fatalf("bearerToken(%q)=%q want %q", in, got, want)
		}
	}
}

func TestProtectAndRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := testJWT()
	r := gin.New()
	r.GET("/me", Protect(j), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Email)
	})
	r.GET("/admin", Protect(j), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	userTok, _, _ := j.Sign(Claims{UserID: 2, Email: "u@example.com", Role: "user"})
	adminTok, _, _ := j.Sign(Claims{UserID: 1, Email: "a@example.com", Role: "admin"})

	tests := []struct {
		path, token string
		want        int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", "nope", http.StatusUnauthorized},
		{"/me", userTok, http.StatusOK},
		{"/admin", userTok, http.StatusForbidden},
		{"/admin", adminTok, http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s token=%q: status=%d want %d", tt.path, tt.token, w.Code, tt.want)
		}
	}
}

func TestQueryTokenOnlyOnStreamRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := testJWT()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r := gin.New()
	r.GET("/stream", ProtectStream(j), ok)
	r.GET("/plain", Protect(j), ok)
	r.POST("/plain", Protect(j), ok)

	tok, _, _ := j.Sign(Claims{UserID: 1, Role: "admin"})
	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/stream?access_token=" + tok, http.StatusOK},
		{http.MethodGet, "/stream?access_token=garbage", http.StatusUnauthorized},
		{http.MethodGet, "/plain?access_token=" + tok, http.StatusUnauthorized},
		{http.MethodPost, "/plain?access_token=" + tok, http.StatusUnauthorized},
	}
	for i, tt := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Fatalf("case %d %s: status=%d want %d", i, tt.method, w.Code, tt.want)
		}
	}

	// The header still works on stream routes.
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("header on stream status=%d want 200", w.Code)
	}
}
