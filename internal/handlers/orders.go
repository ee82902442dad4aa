package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

// OrderHandler is the authenticated order surface used by the dashboard.
type OrderHandler struct {
	store storage.Store
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(store storage.Store) *OrderHandler {
	return &OrderHandler{store: store}
}

func businessIDFromCtx(c *fiber.Ctx) uint {
	id, _ := c.Locals("businessID").(uint)
	return id
}

// ListOrders returns the business's recent orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	businessID := businessIDFromCtx(c)

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	orders, err := h.store.GetOrdersByBusiness(businessID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch orders",
		})
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns one order by its order id.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	businessID := businessIDFromCtx(c)
	orderID := c.Params("orderID")

	order, err := h.store.GetOrderByOrderID(businessID, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch order",
		})
	}

	return c.JSON(order)
}

// UpdateOrderStatus moves an order through its lifecycle. Status is the only
// order field the dashboard may change.
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	businessID := businessIDFromCtx(c)
	orderID := c.Params("orderID")

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if !models.ValidOrderStatus(body.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid order status",
		})
	}

	err := h.store.UpdateOrderStatus(businessID, orderID, body.Status)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update order",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"order_id": orderID,
		"status":   body.Status,
	})
}
