package storage

import (
	"errors"

	"github.com/chatcart/chatcart-backend/internal/models"
)

// ErrNotFound is returned when a record does not exist. Callers treat this as
// an expected miss, not a failure.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for storage operations
type Store interface {
	// Business operations
	GetBusinessByPhoneNumberID(id string) (*models.Business, error)
	GetBusinessByWabaID(id string) (*models.Business, error)
	GetBusiness(id uint) (*models.Business, error)
	UpdateBusiness(business *models.Business) error

	// Session operations
	GetSession(businessID uint, customerPhone string) (*models.ChatSession, error)
	SaveSession(session *models.ChatSession) error
	GetAbandonedCartSessions(olderThanMinutes int) ([]*models.ChatSession, error)
	GetStaleSessions() ([]*models.ChatSession, error)

	// Customer operations
	GetCustomer(businessID uint, phone string) (*models.Customer, error)
	UpsertCustomer(customer *models.Customer) error

	// Product operations
	GetProduct(businessID uint, productID string) (*models.Product, error)
	GetProducts(businessID uint, limit int) ([]*models.Product, error)

	// Order operations
	CreateOrder(order *models.Order) error
	CommitOrder(order *models.Order, session *models.ChatSession, customer *models.Customer) error
	GetOrderByOrderID(businessID uint, orderID string) (*models.Order, error)
	GetOrdersByCustomer(businessID uint, phones []string, limit int) ([]*models.Order, error)
	GetOrdersByBusiness(businessID uint, limit int) ([]*models.Order, error)
	UpdateOrderStatus(businessID uint, orderID, status string) error

	// Flow and bot config operations
	GetActiveFlows(businessID uint) ([]*models.Flow, error)
	GetOrderBotConfig(businessID uint) (*models.OrderBotConfig, error)

	// Message log operations
	CreateMessage(message *models.Message) error
	GetMessageByPlatformID(businessID uint, platformID string) (*models.Message, error)
	UpdateMessageStatus(businessID uint, platformID, status string) error

	// Support operations
	AppendSupportMessage(businessID uint, customerPhone, text string) (*models.SupportTicket, error)
}
