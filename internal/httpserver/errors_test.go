package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"noor-storefront/internal/apiclient"
	"noor-storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

func TestWriteError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrLoginRequired, http.StatusUnauthorized},
		{&apiclient.APIError{Status: http.StatusConflict, Message: "stock"}, http.StatusConflict},
		{&apiclient.APIError{Status: http.StatusNotFound, Message: "Not found."}, http.StatusNotFound},
		{fmt.Errorf("GET x: %w: %w", domain.ErrUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: id", domain.ErrInvalidInput), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		writeError(c, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
		if len(c.Errors) != 1 {
			t.Fatalf("%v: expected error attached to context", tc.err)
		}
	}
}
