package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"patient-portal-api/internal/auth"
	"patient-portal-api/internal/metrics"
)

type ctxKey string

const identityKey ctxKey = "identity"

var (
	ErrMissingToken   = errors.New("Token manquant")
	ErrMalformedToken = errors.New("Format du token invalide")
	ErrInvalidToken   = errors.New("Token invalide")
)

type Verifier interface {
	Verify(raw string) (auth.Identity, error)
}

// Auth rejects the request with 401 unless it carries a valid bearer token,
// and otherwise attaches the caller's identity to the request context.
func Auth(v Verifier, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := authenticate(v, c.GetHeader("Authorization"))
		if err != nil {
			if m != nil {
				m.AuthFailures.WithLabelValues(reason(err)).Inc()
			}
			zerolog.Ctx(c.Request.Context()).Debug().Str("reason", reason(err)).Msg("auth rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}

		ctx := WithIdentity(c.Request.Context(), id)
		l := zerolog.Ctx(ctx).With().Int64("user_id", id.UserID).Logger()
		c.Request = c.Request.WithContext(l.WithContext(ctx))
		c.Next()
	}
}

func authenticate(v Verifier, header string) (auth.Identity, error) {
	if header == "" {
		return auth.Identity{}, ErrMissingToken
	}
	// Authorization: Bearer <jwt>
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") || token == "" {
		return auth.Identity{}, ErrMalformedToken
	}
	id, err := v.Verify(token)
	if err != nil {
		return auth.Identity{}, ErrInvalidToken
	}
	return id, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	default:
		return "invalid"
	}
}

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Identity returns the caller resolved by Auth.
func Identity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}
