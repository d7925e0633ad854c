package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pariposhan/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func testVerifier() TokenVerifier {
	return TokenVerifier{Secret: []byte(testSecret), Issuer: "pariposhan-identity", Audience: "pariposhan-client"}
}

func signToken(t *testing.T, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func baseClaims(sub string) Claims {
	return Claims{
		Name: "Meera",
		Role: "moderator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "pariposhan-identity",
			Audience:  jwt.ClaimStrings{"pariposhan-client"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			ID:        "jti-1",
		},
	}
}

func TestTokenVerifier_Verify(t *testing.T) {
	t.Parallel()
	v := testVerifier()

	t.Run("valid token yields principal", func(t *testing.T) {
		t.Parallel()
		p, jti, err := v.Verify(signToken(t, jwt.SigningMethodHS256, baseClaims("42")))
		require.NoError(t, err)
		assert.Equal(t, uint(42), p.UserID)
		assert.Equal(t, "Meera", p.Name)
		assert.Equal(t, policy.RoleModerator, p.Role)
		assert.Equal(t, "jti-1", jti)
	})

	t.Run("missing role defaults to member", func(t *testing.T) {
		t.Parallel()
		c := baseClaims("5")
		c.Role = ""
		p, _, err := v.Verify(signToken(t, jwt.SigningMethodHS256, c))
		require.NoError(t, err)
		assert.Equal(t, policy.RoleMember, p.Role)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		c := baseClaims("1")
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, _, err := v.Verify(signToken(t, jwt.SigningMethodHS256, c))
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		c := baseClaims("1")
		c.Issuer = "someone-else"
		_, _, err := v.Verify(signToken(t, jwt.SigningMethodHS256, c))
		assert.ErrorIs(t, err, errInvalidIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		t.Parallel()
		c := baseClaims("1")
		c.Audience = jwt.ClaimStrings{"other-client"}
		_, _, err := v.Verify(signToken(t, jwt.SigningMethodHS256, c))
		assert.ErrorIs(t, err, errInvalidAudience)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		t.Parallel()
		_, _, err := v.Verify(signToken(t, jwt.SigningMethodHS256, baseClaims("abc")))
		assert.ErrorIs(t, err, errInvalidSubject)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, _, err := v.Verify("not-a-token")
		assert.Error(t, err)
	})
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	newApp := func(p policy.Principal) *fiber.App {
		app := fiber.New()
		app.Get("/admin", func(c *fiber.Ctx) error {
			if p.Authenticated() {
				SetPrincipal(c, p)
			}
			return c.Next()
		}, RequireRole(policy.RoleModerator), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}

	tests := []struct {
		name string
		p    policy.Principal
		want int
	}{
		{"anonymous", policy.Principal{}, http.StatusUnauthorized},
		{"member", policy.Principal{UserID: 1, Role: policy.RoleMember}, http.StatusForbidden},
		{"moderator", policy.Principal{UserID: 2, Role: policy.RoleModerator}, http.StatusOK},
		{"admin", policy.Principal{UserID: 3, Role: policy.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.p).Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	resp, err := app.Test(req)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "abc.def", string(buf[:n]))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc.def")
	resp, err = app.Test(req)
	require.NoError(t, err)
	n, _ = resp.Body.Read(buf)
	assert.Equal(t, "", string(buf[:n]))
}
