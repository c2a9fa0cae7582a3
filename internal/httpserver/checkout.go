package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"noor-storefront/internal/domain"
	checkoutsvc "noor-storefront/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type createCheckoutRequest struct {
	SuccessURL string `json:"success_url"`
}

type confirmCheckoutRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func createCheckoutHandler(checkout checkoutService, defaultSuccessURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCheckoutRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "invalid body")
				return
			}
		}
		successURL := strings.TrimSpace(req.SuccessURL)
		if successURL == "" {
			successURL = defaultSuccessURL
		}
		url, err := checkout.CreateSession(c.Request.Context(), successURL)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

func confirmCheckoutHandler(checkout checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "session_id required")
			return
		}
		confirmation, err := checkout.Confirm(c.Request.Context(), req.SessionID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, confirmation)
	}
}

// checkoutStatusHandler runs one tracking pass bounded by the request. Without
// wait=true only a single lookup is made.
func checkoutStatusHandler(checkout checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		in := checkoutsvc.TrackInput{SessionID: c.Query("session_id"), MaxAttempts: 1}
		if raw := c.Query("order_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "invalid order_id")
				return
			}
			in.OrderID = id
		}
		if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
			in.MaxAttempts = 0
		}

		order, err := checkout.Track(c.Request.Context(), in, nil)
		if order != nil {
			c.JSON(http.StatusOK, order)
			return
		}
		if err == nil {
			err = domain.ErrNotFound
		}
		writeError(c, err)
	}
}
