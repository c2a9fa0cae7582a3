package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/domain"
)

const (
	loginFallback    = "invalid email or password"
	registerFallback = "registration failed"
)

type api interface {
	Get(ctx context.Context, endpoint string, opts ...apiclient.Option) (*http.Response, error)
	Post(ctx context.Context, endpoint string, body any, opts ...apiclient.Option) (*http.Response, error)
}

type sessionStore interface {
	Tokens() (access, refresh string)
	SetAuth(user domain.User, accessToken, refreshToken string)
	ClearAuth()
}

type Service struct {
	api     api
	session sessionStore
	logger  *log.Logger
}

func New(api api, session sessionStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{api: api, session: session, logger: logger}
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authResponse struct {
	User    *domain.User `json:"user"`
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", domain.ErrInvalidInput)
	}
	body := map[string]string{"email": email, "password": password}
	return s.authenticate(ctx, "/auth/login/", body, loginFallback)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password required", domain.ErrInvalidInput)
	}
	return s.authenticate(ctx, "/auth/register/", in, registerFallback)
}

// SplitName splits a full name on the first space into first and last name.
func SplitName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func (s *Service) authenticate(ctx context.Context, endpoint string, body any, fallback string) (*domain.User, error) {
	resp, err := s.api.Post(ctx, endpoint, body, apiclient.Anonymous())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiclient.ErrorFromResponse(resp, fallback)
	}
	var out authResponse
	if err := apiclient.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.User == nil || out.Access == "" {
		return nil, errors.New("auth response missing user or access token")
	}
	s.session.SetAuth(*out.User, out.Access, out.Refresh)
	s.logger.Printf("auth: signed in user_id=%d", out.User.ID)
	return out.User, nil
}

// Logout tells the API best-effort, then always clears the local session.
func (s *Service) Logout(ctx context.Context) {
	defer s.session.ClearAuth()

	access, refresh := s.session.Tokens()
	if access == "" {
		return
	}
	resp, err := s.api.Post(ctx, "/auth/logout/", map[string]string{"refresh": refresh})
	if err != nil {
		s.logger.Printf("auth: logout request failed err=%v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Printf("auth: logout rejected status=%d", resp.StatusCode)
	}
}

func (s *Service) Profile(ctx context.Context) (*domain.User, error) {
	resp, err := s.api.Get(ctx, "/auth/profile/")
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := apiclient.DecodeJSON(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
