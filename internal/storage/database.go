package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chatcart/chatcart-backend/internal/models"
)

// DatabaseStore is the PostgreSQL-backed store.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given gorm handle.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Business operations

func (d *DatabaseStore) GetBusiness(id uint) (*models.Business, error) {
	var business models.Business
	if err := d.db.First(&business, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &business, nil
}

func (d *DatabaseStore) GetBusinessByPhoneNumberID(id string) (*models.Business, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var business models.Business
	if err := d.db.Where("phone_number_id = ?", id).First(&business).Error; err != nil {
		return nil, translateErr(err)
	}
	return &business, nil
}

func (d *DatabaseStore) GetBusinessByWabaID(id string) (*models.Business, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var business models.Business
	if err := d.db.Where("waba_id = ?", id).First(&business).Error; err != nil {
		return nil, translateErr(err)
	}
	return &business, nil
}

func (d *DatabaseStore) UpdateBusiness(business *models.Business) error {
	return d.db.Save(business).Error
}

// Session operations

func (d *DatabaseStore) GetSession(businessID uint, customerPhone string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := d.db.Where("business_id = ? AND customer_phone = ?", businessID, customerPhone).
		First(&session).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &session, nil
}

func (d *DatabaseStore) SaveSession(session *models.ChatSession) error {
	return d.db.Save(session).Error
}

func (d *DatabaseStore) GetAbandonedCartSessions(olderThanMinutes int) ([]*models.ChatSession, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	staleCutoff := time.Now().Add(-models.SessionTTL)
	var sessions []*models.ChatSession
	err := d.db.Where("cart_total > 0 AND reminder_sent = false AND last_activity < ? AND last_activity > ?",
		cutoff, staleCutoff).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (d *DatabaseStore) GetStaleSessions() ([]*models.ChatSession, error) {
	cutoff := time.Now().Add(-models.SessionTTL)
	var sessions []*models.ChatSession
	err := d.db.Where("last_activity < ? AND (state <> ? OR cart_total > 0)",
		cutoff, models.StateIdle).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Customer operations

func (d *DatabaseStore) GetCustomer(businessID uint, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := d.db.Where("business_id = ? AND phone = ?", businessID, phone).First(&customer).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &customer, nil
}

func (d *DatabaseStore) UpsertCustomer(customer *models.Customer) error {
	return d.upsertCustomerTx(d.db, customer)
}

func (d *DatabaseStore) upsertCustomerTx(tx *gorm.DB, customer *models.Customer) error {
	var existing models.Customer
	err := tx.Where("business_id = ? AND phone = ?", customer.BusinessID, customer.Phone).
		First(&existing).Error
	if err == nil {
		customer.ID = existing.ID
		customer.CreatedAt = existing.CreatedAt
		return tx.Save(customer).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(customer).Error
	}
	return err
}

// Product operations

func (d *DatabaseStore) GetProduct(businessID uint, productID string) (*models.Product, error) {
	var product models.Product
	err := d.db.Where("business_id = ? AND product_id = ? AND is_active = true", businessID, productID).
		First(&product).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &product, nil
}

func (d *DatabaseStore) GetProducts(businessID uint, limit int) ([]*models.Product, error) {
	var products []*models.Product
	q := d.db.Where("business_id = ? AND is_active = true", businessID).Order("category, name")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Order operations

func (d *DatabaseStore) CreateOrder(order *models.Order) error {
	return d.db.Create(order).Error
}

// CommitOrder creates the order, persists the cleared session and upserts the
// customer in a single transaction. Either everything applies or nothing does.
func (d *DatabaseStore) CommitOrder(order *models.Order, session *models.ChatSession, customer *models.Customer) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if customer != nil {
			if err := d.upsertCustomerTx(tx, customer); err != nil {
				return fmt.Errorf("upsert customer: %w", err)
			}
		}
		return nil
	})
}

func (d *DatabaseStore) GetOrderByOrderID(businessID uint, orderID string) (*models.Order, error) {
	var order models.Order
	err := d.db.Where("business_id = ? AND order_id = ?", businessID, strings.ToUpper(orderID)).
		First(&order).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &order, nil
}

func (d *DatabaseStore) GetOrdersByCustomer(businessID uint, phones []string, limit int) ([]*models.Order, error) {
	var orders []*models.Order
	q := d.db.Where("business_id = ? AND customer_phone IN ?", businessID, phones).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) GetOrdersByBusiness(businessID uint, limit int) ([]*models.Order, error) {
	var orders []*models.Order
	q := d.db.Where("business_id = ?", businessID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) UpdateOrderStatus(businessID uint, orderID, status string) error {
	result := d.db.Model(&models.Order{}).
		Where("business_id = ? AND order_id = ?", businessID, strings.ToUpper(orderID)).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Flow and bot config operations

func (d *DatabaseStore) GetActiveFlows(businessID uint) ([]*models.Flow, error) {
	var flows []*models.Flow
	err := d.db.Where("business_id = ? AND is_active = true", businessID).
		Order("id").Find(&flows).Error
	if err != nil {
		return nil, err
	}
	return flows, nil
}

func (d *DatabaseStore) GetOrderBotConfig(businessID uint) (*models.OrderBotConfig, error) {
	var config models.OrderBotConfig
	if err := d.db.Where("business_id = ?", businessID).First(&config).Error; err != nil {
		return nil, translateErr(err)
	}
	return &config, nil
}

// Message log operations

func (d *DatabaseStore) CreateMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

func (d *DatabaseStore) GetMessageByPlatformID(businessID uint, platformID string) (*models.Message, error) {
	var message models.Message
	err := d.db.Where("business_id = ? AND platform_id = ?", businessID, platformID).
		First(&message).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &message, nil
}

func (d *DatabaseStore) UpdateMessageStatus(businessID uint, platformID, status string) error {
	result := d.db.Model(&models.Message{}).
		Where("business_id = ? AND platform_id = ?", businessID, platformID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Support operations

func (d *DatabaseStore) AppendSupportMessage(businessID uint, customerPhone, text string) (*models.SupportTicket, error) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("02 Jan 15:04"), text)

	var ticket models.SupportTicket
	err := d.db.Where("business_id = ? AND customer_phone = ? AND status IN ?",
		businessID, customerPhone, []string{"open", "in_progress"}).
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ticket = models.SupportTicket{
			BusinessID:    businessID,
			CustomerPhone: customerPhone,
			Transcript:    line,
		}
		if err := d.db.Create(&ticket).Error; err != nil {
			return nil, err
		}
		return &ticket, nil
	}
	if err != nil {
		return nil, err
	}

	if ticket.Transcript != "" {
		ticket.Transcript += "\n"
	}
	ticket.Transcript += line
	if err := d.db.Save(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}
