package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/domain"
	"noor-storefront/internal/session"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 20
)

type api interface {
	Post(ctx context.Context, endpoint string, body any, opts ...apiclient.Option) (*http.Response, error)
}

type cartStore interface {
	Items() []domain.LineItem
	Clear()
}

type sessionState interface {
	Snapshot() session.State
	WaitReady(ctx context.Context) error
}

type orderLookup interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	ByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error)
}

type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
}

type Service struct {
	api     api
	cart    cartStore
	session sessionState
	orders  orderLookup
	cfg     Config
	logger  *log.Logger
}

func New(api api, cart cartStore, session sessionState, orders orderLookup, cfg Config, logger *log.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{api: api, cart: cart, session: session, orders: orders, cfg: cfg, logger: logger}
}

// CreateSession starts a payment session for the cart and returns the
// redirect URL. successURL, when set, is where the payment page sends the
// shopper back to.
func (s *Service) CreateSession(ctx context.Context, successURL string) (string, error) {
	if st := s.session.Snapshot(); !st.Hydrated || !st.Authenticated() {
		return "", domain.ErrLoginRequired
	}

	endpoint := "/payments/create-checkout-session/"
	if successURL = strings.TrimSpace(successURL); successURL != "" {
		endpoint += "?success_url=" + url.QueryEscape(successURL)
	}
	resp, err := s.api.Post(ctx, endpoint, map[string]any{"items": s.cart.Items()})
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := apiclient.ErrorFromResponse(resp, "checkout creation failed")
		s.logger.Printf("checkout: create session failed err=%v", err)
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := apiclient.DecodeJSON(resp, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("checkout session response carries no url")
	}
	return out.URL, nil
}

// Confirmation is the API's answer to a confirm request.
type Confirmation struct {
	OrderID       int64              `json:"order_id"`
	Status        domain.OrderStatus `json:"status"`
	PaymentStatus string             `json:"payment_status"`
}

// Confirm asks the API to reconcile the payment session. It is idempotent.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id required", domain.ErrInvalidInput)
	}
	resp, err := s.api.Post(ctx, "/payments/confirm-checkout-session/", map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, err
	}
	var out Confirmation
	if err := apiclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type TrackInput struct {
	OrderID   int64
	SessionID string
	// MaxAttempts overrides the configured attempt cap when positive.
	MaxAttempts int
}

// Track follows an order after the shopper returns from payment, calling
// onUpdate with every order fetched. It polls while the order is pending, up
// to the attempt cap, and returns the last order seen. The cart is cleared
// once the order is paid. A cancelled ctx stops polling and is returned with
// the last order seen.
func (s *Service) Track(ctx context.Context, in TrackInput, onUpdate func(domain.Order)) (*domain.Order, error) {
	if err := s.session.WaitReady(ctx); err != nil {
		return nil, err
	}
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.OrderID <= 0 && in.SessionID == "" {
		return nil, fmt.Errorf("%w: order id or session id required", domain.ErrInvalidInput)
	}
	maxAttempts := s.cfg.MaxAttempts
	if in.MaxAttempts > 0 {
		maxAttempts = in.MaxAttempts
	}
	t := tracker{svc: s, onUpdate: onUpdate}

	if in.SessionID != "" {
		order, err := s.orders.ByCheckoutSession(ctx, in.SessionID)
		if err == nil {
			t.report(*order)
			last, err := t.poll(ctx, maxAttempts, order, func(ctx context.Context) (*domain.Order, error) {
				return s.orders.ByCheckoutSession(ctx, in.SessionID)
			})
			if err != nil && ctx.Err() == nil {
				// Losing the public lookup mid-poll keeps what was already shown.
				s.logger.Printf("checkout: session poll stopped session_id=%s err=%v", in.SessionID, err)
				return last, nil
			}
			return last, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Printf("checkout: public order lookup failed session_id=%s err=%v", in.SessionID, err)
	}

	if !s.session.Snapshot().Authenticated() {
		return nil, domain.ErrLoginRequired
	}
	if in.OrderID <= 0 {
		return nil, fmt.Errorf("%w: order id required", domain.ErrInvalidInput)
	}
	fetch := func(ctx context.Context) (*domain.Order, error) {
		if in.SessionID != "" {
			if _, err := s.Confirm(ctx, in.SessionID); err != nil {
				s.logger.Printf("checkout: confirm failed session_id=%s err=%v", in.SessionID, err)
			}
		}
		return s.orders.Get(ctx, in.OrderID)
	}
	order, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	t.report(*order)
	return t.poll(ctx, maxAttempts, order, fetch)
}

type tracker struct {
	svc      *Service
	onUpdate func(domain.Order)
}

func (t tracker) report(order domain.Order) {
	if order.Status == domain.OrderPaid {
		t.svc.cart.Clear()
	}
	if t.onUpdate != nil {
		t.onUpdate(order)
	}
}

// poll refetches while the order is pending. last counts as the first attempt.
func (t tracker) poll(ctx context.Context, maxAttempts int, last *domain.Order, fetch func(context.Context) (*domain.Order, error)) (*domain.Order, error) {
	timer := time.NewTimer(t.svc.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; last.Status == domain.OrderPending && attempt < maxAttempts; attempt++ {
		timer.Reset(t.svc.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}
		order, err := fetch(ctx)
		if err != nil {
			return last, err
		}
		last = order
		t.report(*order)
	}
	return last, nil
}
