package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"noor-storefront/internal/domain"
	"noor-storefront/internal/session"
	authsvc "noor-storefront/internal/service/auth"
	checkoutsvc "noor-storefront/internal/service/checkout"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type sessionView interface {
	Snapshot() session.State
	AccessTokenExpiry() (time.Time, bool)
}

type cartStore interface {
	Items() []domain.LineItem
	Total() domain.Money
	Count() int
	AddItem(p domain.CartProduct, quantity int)
	UpdateQuantity(id int64, quantity int)
	RemoveItem(id int64)
	Clear()
}

type authService interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, in authsvc.RegisterInput) (*domain.User, error)
	Logout(ctx context.Context)
	Profile(ctx context.Context) (*domain.User, error)
}

type catalogService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, slug string) (*domain.Product, error)
}

type orderService interface {
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
}

type checkoutService interface {
	CreateSession(ctx context.Context, successURL string) (string, error)
	Confirm(ctx context.Context, sessionID string) (*checkoutsvc.Confirmation, error)
	Track(ctx context.Context, in checkoutsvc.TrackInput, onUpdate func(domain.Order)) (*domain.Order, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type baseURLResolver interface {
	BaseURL(ctx context.Context) (string, error)
}

// Deps collects everything the routes need.
type Deps struct {
	Session  sessionView
	Cart     cartStore
	Auth     authService
	Catalog  catalogService
	Orders   orderService
	Checkout checkoutService
	// Storage is pinged by /readyz; nil skips the check.
	Storage pinger
	BaseURL baseURLResolver

	CORSOrigins []string
	// SuccessURL is the default return target after payment.
	SuccessURL string
}

func (d Deps) validate() error {
	switch {
	case d.Session == nil:
		return errors.New("httpserver: session required")
	case d.Cart == nil:
		return errors.New("httpserver: cart required")
	case d.Auth == nil, d.Catalog == nil, d.Orders == nil, d.Checkout == nil:
		return errors.New("httpserver: services required")
	case d.BaseURL == nil:
		return errors.New("httpserver: base url resolver required")
	}
	return nil
}

// buildRouter wires routes for the storefront.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	var logOut io.Writer = io.Discard
	if logger != nil {
		logOut = logger.Writer()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logOut), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Session, deps.Storage))
	router.GET("/api/config", configHandler(deps.BaseURL))

	sess := router.Group("/session")
	sess.GET("", sessionHandler(deps.Session))
	sess.GET("/profile", profileHandler(deps.Session, deps.Auth))
	sess.POST("/login", loginHandler(deps.Auth))
	sess.POST("/register", registerHandler(deps.Auth))
	sess.POST("/logout", logoutHandler(deps.Auth))

	cart := router.Group("/cart")
	cart.GET("", cartHandler(deps.Cart))
	cart.POST("/items", addItemHandler(deps.Session, deps.Cart))
	cart.PATCH("/items/:id", updateItemHandler(deps.Cart))
	cart.DELETE("/items/:id", removeItemHandler(deps.Cart))
	cart.DELETE("", clearCartHandler(deps.Cart))

	router.GET("/products", listProductsHandler(deps.Catalog))
	router.GET("/products/sections", sectionsHandler(deps.Catalog))
	router.GET("/products/:slug", productHandler(deps.Catalog))

	router.GET("/orders", listOrdersHandler(deps.Orders))
	router.GET("/orders/:id", orderHandler(deps.Orders))

	router.POST("/checkout", createCheckoutHandler(deps.Checkout, deps.SuccessURL))
	router.POST("/checkout/confirm", confirmCheckoutHandler(deps.Checkout))
	router.GET("/checkout/status", checkoutStatusHandler(deps.Checkout))

	return router, nil
}
