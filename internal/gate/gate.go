// Package gate classifies every request and enforces role-based access
// before routing.
package gate

import (
	"net/http"
	"path"
	"strings"

	"storefront/internal/auth"
)

// Zone is the access class of a path.
type Zone string

const (
	ZonePublic   Zone = "public"
	ZoneCustomer Zone = "customer"
	ZoneAdmin    Zone = "admin"
)

// Action is what the gate does with a request.
type Action string

const (
	ActionPass     Action = "pass"
	ActionRedirect Action = "redirect"
	ActionReject   Action = "reject"
)

// Messages sent with API rejections.
const (
	MsgAuthRequired  = "Authentication required"
	MsgAdminRequired = "Admin access required"
)

// Rules lists path prefixes per zone. Prefixes match whole segments.
type Rules struct {
	Public    []string
	Admin     []string
	Customer  []string
	APIPrefix string
	LoginPath string
	HomePath  string
}

// DefaultRules returns the storefront's perimeter.
func DefaultRules() Rules {
	return Rules{
		Public: []string{
			"/", "/login", "/register", "/healthz", "/metrics", "/swagger",
			"/static", "/assets", "/_next", "/uploads", "/favicon.ico",
			"/api/auth", "/api/products", "/api/countries",
		},
		Admin:     []string{"/admin", "/api/admin"},
		Customer:  []string{"/profile", "/orders", "/checkout", "/api/profile", "/api/orders", "/api/checkout"},
		APIPrefix: "/api",
		LoginPath: "/login",
		HomePath:  "/",
	}
}

// Classify returns the zone of p. The public allow-list wins, then admin,
// then customer; anything else is public.
func (r Rules) Classify(p string) Zone {
	p = cleanPath(p)
	switch {
	case matchAny(p, r.Public):
		return ZonePublic
	case matchAny(p, r.Admin):
		return ZoneAdmin
	case matchAny(p, r.Customer):
		return ZoneCustomer
	default:
		return ZonePublic
	}
}

// IsAPI reports whether p is an API path, which gets JSON errors instead of
// redirects.
func (r Rules) IsAPI(p string) bool {
	return hasSegmentPrefix(cleanPath(p), r.APIPrefix)
}

// Decision is the outcome of gating one request.
type Decision struct {
	Zone     Zone
	Action   Action
	Status   int
	Location string
	Message  string
	// Claims is set whenever the request carried a valid token.
	Claims *auth.Claims
}

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Gate applies Rules using a TokenVerifier.
type Gate struct {
	rules  Rules
	tokens TokenVerifier
}

// New creates a gate.
func New(rules Rules, tokens TokenVerifier) *Gate {
	return &Gate{rules: rules, tokens: tokens}
}

// Decide gates a request for p carrying token (empty when no cookie was sent).
func (g *Gate) Decide(p, token string) Decision {
	zone := g.rules.Classify(p)
	api := g.rules.IsAPI(p)

	var claims *auth.Claims
	if token != "" {
		if c, err := g.tokens.Verify(token); err == nil {
			claims = c
		}
	}
	d := Decision{Zone: zone, Action: ActionPass, Claims: claims}

	switch zone {
	case ZoneAdmin:
		switch {
		case token == "" && api:
			return g.reject(d, http.StatusUnauthorized, MsgAuthRequired)
		case token == "":
			return g.redirect(d, g.rules.LoginPath)
		case (claims == nil || !claims.IsAdmin()) && api:
			return g.reject(d, http.StatusForbidden, MsgAdminRequired)
		case claims == nil || !claims.IsAdmin():
			return g.redirect(d, g.rules.HomePath)
		}
	case ZoneCustomer:
		if claims == nil {
			if api {
				return g.reject(d, http.StatusUnauthorized, MsgAuthRequired)
			}
			return g.redirect(d, g.rules.LoginPath)
		}
	}
	return d
}

func (g *Gate) reject(d Decision, status int, msg string) Decision {
	d.Action, d.Status, d.Message, d.Claims = ActionReject, status, msg, nil
	return d
}

func (g *Gate) redirect(d Decision, location string) Decision {
	d.Action, d.Status, d.Location, d.Claims = ActionRedirect, http.StatusTemporaryRedirect, location, nil
	return d
}

func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func matchAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasSegmentPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// hasSegmentPrefix matches /admin against /admin and /admin/x but not
// /administrator. The root prefix only matches the root itself.
func hasSegmentPrefix(p, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == "/" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
