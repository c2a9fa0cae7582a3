package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"noor-storefront/internal/domain"

	"github.com/gin-gonic/gin"
)

type cartResponse struct {
	Items []domain.LineItem `json:"items"`
	Total domain.Money      `json:"total"`
	Count int               `json:"count"`
}

type addItemRequest struct {
	ID       int64        `json:"id" binding:"required"`
	Name     string       `json:"name" binding:"required"`
	Price    domain.Money `json:"price"`
	Quantity *int         `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func writeCart(c *gin.Context, status int, cart cartStore) {
	c.JSON(status, cartResponse{Items: cart.Items(), Total: cart.Total(), Count: cart.Count()})
}

func cartHandler(cart cartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeCart(c, http.StatusOK, cart)
	}
}

// addItemHandler only accepts items from a signed-in shopper whose session
// has been restored.
func addItemHandler(sess sessionView, cart cartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st := sess.Snapshot(); !st.Hydrated || !st.Authenticated() {
			writeError(c, domain.ErrLoginRequired)
			return
		}
		var req addItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 || strings.TrimSpace(req.Name) == "" {
			badRequest(c, "id and name required")
			return
		}
		if req.Price < 0 {
			badRequest(c, "price must not be negative")
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if quantity <= 0 {
			badRequest(c, "quantity must be positive")
			return
		}
		cart.AddItem(domain.CartProduct{ID: req.ID, Name: req.Name, Price: req.Price}, quantity)
		writeCart(c, http.StatusOK, cart)
	}
}

func updateItemHandler(cart cartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		var req updateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "quantity required")
			return
		}
		cart.UpdateQuantity(id, *req.Quantity)
		writeCart(c, http.StatusOK, cart)
	}
}

func removeItemHandler(cart cartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := itemID(c)
		if !ok {
			return
		}
		cart.RemoveItem(id)
		writeCart(c, http.StatusOK, cart)
	}
}

func clearCartHandler(cart cartStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart.Clear()
		writeCart(c, http.StatusOK, cart)
	}
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid item id")
		return 0, false
	}
	return id, true
}
