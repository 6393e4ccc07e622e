package gate

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
)

const claimsKey = "auth.claims"

// ClaimsFrom returns the verified claims the gate stored for this request.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// Middleware enforces Decide on every request. Register it with e.Pre so it
// runs before routing.
func (g *Gate) Middleware(log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := c.Request().URL.Path

			var token string
			if cookie, err := c.Cookie(auth.CookieName); err == nil {
				token = cookie.Value
			}

			d := g.Decide(p, token)
			metrics.RecordGateDecision(string(d.Zone), string(d.Action))

			switch d.Action {
			case ActionRedirect:
				log.Debug("gate redirect", zap.String("path", p), zap.String("location", d.Location))
				return c.Redirect(d.Status, d.Location)
			case ActionReject:
				log.Debug("gate reject", zap.String("path", p), zap.Int("status", d.Status))
				if d.Status == http.StatusForbidden {
					return apperrors.Forbidden(d.Message)
				}
				return apperrors.Unauthenticated(d.Message)
			}

			if d.Claims != nil {
				c.Set(claimsKey, d.Claims)
			}
			return next(c)
		}
	}
}

// RequireToken demands a valid auth-token cookie on routes inside public
// prefixes that still need an identity.
func (g *Gate) RequireToken() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.CookieName,
		ContextKey:  claimsKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return g.tokens.Verify(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if cookie, cerr := c.Cookie(auth.CookieName); cerr != nil || cookie.Value == "" {
				return apperrors.Unauthenticated("No authentication token")
			}
			return apperrors.Unauthenticated("Invalid token")
		},
	})
}
