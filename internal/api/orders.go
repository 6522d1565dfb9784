package api

import (
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
)

// placeOrder handles order placement. user_id defaults to the caller.
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.UserID == nil {
		if claims := currentClaims(c); claims != nil {
			id := claims.UserID
			req.UserID = &id
		}
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	resp, err := h.orders.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	details, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// deleteOrder reverses an order and puts its stock back
func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	resp, err := h.orders.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
