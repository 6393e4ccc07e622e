package router

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"storefront/internal/config"
	apperrors "storefront/internal/errors"
	"storefront/internal/gate"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	appmw "storefront/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Country  *handler.CountryHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	g *gate.Gate,
	limiter *appmw.RateLimiter,
	h Handlers,
) {
	e.HideBanner = true
	// Rate limits key on the peer address; forwarded headers are client-controlled.
	e.IPExtractor = echo.ExtractIPDirect()
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Validator = &CustomValidator{validator: validator.New()}

	// Everything runs before routing so gate rejections are logged and counted.
	e.Pre(middleware.RequestID())
	e.Pre(middleware.Recover())
	e.Pre(appmw.RequestLogger(log))
	e.Pre(metrics.Middleware())
	e.Pre(g.Middleware(log))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register, limiter.Middleware())
	authGroup.POST("/login", h.Auth.Login, limiter.Middleware())
	authGroup.POST("/federated", h.Auth.Federated, limiter.Middleware())
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.GET("/me", h.Auth.Me, g.RequireToken())

	api.GET("/products", h.Products.List)
	api.GET("/products/:id", h.Products.Get)
	api.GET("/countries", h.Country.List)

	// The gate has already required an admin token for everything below.
	admin := api.Group("/admin")
	admin.GET("/products", h.Products.AdminList)
	admin.POST("/products", h.Products.Create)
	admin.GET("/products/:id", h.Products.AdminGet)
	admin.PUT("/products/:id", h.Products.Update)
	admin.DELETE("/products/:id", h.Products.Delete)

	if info, err := os.Stat(cfg.PublicDir); err == nil && info.IsDir() {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  cfg.PublicDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return strings.HasPrefix(p, "/api/") || p == "/api" || p == "/metrics" || p == "/healthz" || strings.HasPrefix(p, "/swagger/")
			},
		}))
	} else {
		log.Info("static UI directory not found, serving API only", zap.String("dir", cfg.PublicDir))
	}
}

// ErrorHandler renders every error as {"message": ...}. Server-side failures
// are logged with their cause and never detailed to the client.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *apperrors.HTTPError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			message, ok := he.Message.(string)
			if !ok {
				message = http.StatusText(he.Code)
			}
			if he.Code >= http.StatusInternalServerError {
				log.Error("request failed", zap.Error(err), zap.String("path", c.Request().URL.Path))
				message = "Internal server error"
			}
			httpErr = apperrors.NewHTTPError(he.Code, message)
		} else {
			httpErr = apperrors.MapErrorToHTTP(err)
			if httpErr.Internal != nil {
				log.Error("request failed",
					zap.Error(httpErr.Internal),
					zap.Int("status", httpErr.StatusCode),
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path),
				)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.StatusCode)
		} else {
			err = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
