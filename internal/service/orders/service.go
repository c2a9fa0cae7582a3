package orders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/domain"
)

type api interface {
	Get(ctx context.Context, endpoint string, opts ...apiclient.Option) (*http.Response, error)
}

type Service struct {
	api api
}

func New(api api) *Service {
	return &Service{api: api}
}

// List returns the signed-in user's orders.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	resp, err := s.api.Get(ctx, "/orders/")
	if err != nil {
		return nil, err
	}
	var orders []domain.Order
	if err := apiclient.DecodeJSON(resp, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	return s.fetch(ctx, "/orders/"+strconv.FormatInt(id, 10)+"/")
}

// ByCheckoutSession looks an order up by payment session id without credentials.
func (s *Service) ByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id required", domain.ErrInvalidInput)
	}
	return s.fetch(ctx, "/orders/by-checkout-session/?session_id="+url.QueryEscape(sessionID), apiclient.Anonymous())
}

func (s *Service) fetch(ctx context.Context, endpoint string, opts ...apiclient.Option) (*domain.Order, error) {
	resp, err := s.api.Get(ctx, endpoint, opts...)
	if err != nil {
		return nil, err
	}
	var order domain.Order
	if err := apiclient.DecodeJSON(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
