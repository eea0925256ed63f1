package middleware

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// TokenVerifier checks a raw ID token. *oidc.IDTokenVerifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// AuthMiddleware authenticates API callers with OIDC bearer tokens.
type AuthMiddleware struct {
	verifier TokenVerifier
	log      *zap.SugaredLogger
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(verifier TokenVerifier, log *zap.SugaredLogger) *AuthMiddleware {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AuthMiddleware{verifier: verifier, log: log}
}

// NewOIDCVerifier discovers the issuer and returns a verifier for clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

// RequireToken rejects requests without a valid bearer token and stores the
// token subject in Locals("subject").
func (m *AuthMiddleware) RequireToken(c fiber.Ctx) error {
	raw := bearerToken(c.Get(fiber.HeaderAuthorization))
	if raw == "" {
		return unauthorized(c)
	}

	token, err := m.verifier.Verify(c.Context(), raw)
	if err != nil {
		m.log.Debugw("rejected bearer token", "ip", c.IP(), "error", err)
		return unauthorized(c)
	}

	c.Locals("subject", token.Subject)
	return c.Next()
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="venuechat"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  "unauthorized",
	})
}
