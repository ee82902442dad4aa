package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chatcart/chatcart-backend/internal/models"
)

// MemoryStore holds all data in memory. Used by tests and USE_MEMORY_STORE.
type MemoryStore struct {
	businesses map[uint]*models.Business
	sessions   map[string]*models.ChatSession
	customers  map[string]*models.Customer
	products   map[string]*models.Product
	orders     map[string]*models.Order
	flows      []*models.Flow
	configs    map[uint]*models.OrderBotConfig
	messages   map[string]*models.Message
	tickets    map[string]*models.SupportTicket

	mu sync.RWMutex

	businessCounter uint
	idCounter       uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		businesses: make(map[uint]*models.Business),
		sessions:   make(map[string]*models.ChatSession),
		customers:  make(map[string]*models.Customer),
		products:   make(map[string]*models.Product),
		orders:     make(map[string]*models.Order),
		configs:    make(map[uint]*models.OrderBotConfig),
		messages:   make(map[string]*models.Message),
		tickets:    make(map[string]*models.SupportTicket),
	}
}

func sessionKey(businessID uint, phone string) string {
	return fmt.Sprintf("%d:%s", businessID, phone)
}

// Business operations

// AddBusiness registers a business (test/seed helper).
func (m *MemoryStore) AddBusiness(business *models.Business) *models.Business {
	m.mu.Lock()
	defer m.mu.Unlock()

	if business.ID == 0 {
		m.businessCounter++
		business.ID = m.businessCounter
	}
	m.businesses[business.ID] = business
	return business
}

func (m *MemoryStore) GetBusiness(id uint) (*models.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	business, exists := m.businesses[id]
	if !exists {
		return nil, ErrNotFound
	}
	return business, nil
}

func (m *MemoryStore) GetBusinessByPhoneNumberID(id string) (*models.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id == "" {
		return nil, ErrNotFound
	}
	for _, business := range m.businesses {
		if business.PhoneNumberID == id {
			return business, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetBusinessByWabaID(id string) (*models.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id == "" {
		return nil, ErrNotFound
	}
	for _, business := range m.businesses {
		if business.WabaID == id {
			return business, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateBusiness(business *models.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.businesses[business.ID]; !exists {
		return ErrNotFound
	}
	m.businesses[business.ID] = business
	return nil
}

// Session operations

func (m *MemoryStore) GetSession(businessID uint, customerPhone string) (*models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionKey(businessID, customerPhone)]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryStore) SaveSession(session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveSessionLocked(session)
	return nil
}

func (m *MemoryStore) saveSessionLocked(session *models.ChatSession) {
	if session.ID == 0 {
		m.idCounter++
		session.ID = m.idCounter
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = time.Now()
	copied := *session
	m.sessions[sessionKey(session.BusinessID, session.CustomerPhone)] = &copied
}

func (m *MemoryStore) GetAbandonedCartSessions(olderThanMinutes int) ([]*models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	var results []*models.ChatSession
	for _, session := range m.sessions {
		if len(session.Cart) > 0 && !session.ReminderSent &&
			session.LastActivity.Before(cutoff) && !session.IsStale(time.Now()) {
			copied := *session
			results = append(results, &copied)
		}
	}
	return results, nil
}

func (m *MemoryStore) GetStaleSessions() ([]*models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var results []*models.ChatSession
	for _, session := range m.sessions {
		if session.IsStale(now) && (session.State != models.StateIdle || len(session.Cart) > 0) {
			copied := *session
			results = append(results, &copied)
		}
	}
	return results, nil
}

// Customer operations

func (m *MemoryStore) GetCustomer(businessID uint, phone string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customer, exists := m.customers[sessionKey(businessID, phone)]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *customer
	return &copied, nil
}

func (m *MemoryStore) UpsertCustomer(customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCustomerLocked(customer)
	return nil
}

func (m *MemoryStore) upsertCustomerLocked(customer *models.Customer) {
	key := sessionKey(customer.BusinessID, customer.Phone)
	if existing, exists := m.customers[key]; exists {
		customer.ID = existing.ID
		customer.CreatedAt = existing.CreatedAt
	} else {
		m.idCounter++
		customer.ID = m.idCounter
		customer.CreatedAt = time.Now()
	}
	customer.UpdatedAt = time.Now()
	copied := *customer
	m.customers[key] = &copied
}

// Product operations

// AddProduct registers a product (test/seed helper).
func (m *MemoryStore) AddProduct(product *models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	if product.ProductID == "" {
		m.idCounter++
		product.ProductID = fmt.Sprintf("prd%016d", m.idCounter)
	}
	m.products[product.ProductID] = product
	return product
}

func (m *MemoryStore) GetProduct(businessID uint, productID string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	product, exists := m.products[productID]
	if !exists || product.BusinessID != businessID || !product.IsActive {
		return nil, ErrNotFound
	}
	return product, nil
}

func (m *MemoryStore) GetProducts(businessID uint, limit int) ([]*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var products []*models.Product
	for _, product := range m.products {
		if product.BusinessID == businessID && product.IsActive {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

// Order operations

func (m *MemoryStore) CreateOrder(order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createOrderLocked(order)
}

func (m *MemoryStore) createOrderLocked(order *models.Order) error {
	if order.OrderID == "" {
		order.OrderID = models.GenerateOrderID()
	}
	if _, exists := m.orders[order.OrderID]; exists {
		return fmt.Errorf("order %s already exists", order.OrderID)
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}
	m.idCounter++
	order.ID = m.idCounter
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	copied := *order
	m.orders[order.OrderID] = &copied
	return nil
}

// CommitOrder applies order creation, cart clear and customer upsert as one
// atomic step under the store lock.
func (m *MemoryStore) CommitOrder(order *models.Order, session *models.ChatSession, customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.createOrderLocked(order); err != nil {
		return err
	}
	m.saveSessionLocked(session)
	if customer != nil {
		m.upsertCustomerLocked(customer)
	}
	return nil
}

func (m *MemoryStore) GetOrderByOrderID(businessID uint, orderID string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[strings.ToUpper(orderID)]
	if !exists || order.BusinessID != businessID {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *MemoryStore) GetOrdersByCustomer(businessID uint, phones []string, limit int) ([]*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	phoneSet := make(map[string]bool, len(phones))
	for _, p := range phones {
		phoneSet[p] = true
	}

	var orders []*models.Order
	for _, order := range m.orders {
		if order.BusinessID == businessID && phoneSet[order.CustomerPhone] {
			copied := *order
			orders = append(orders, &copied)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryStore) GetOrdersByBusiness(businessID uint, limit int) ([]*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*models.Order
	for _, order := range m.orders {
		if order.BusinessID == businessID {
			copied := *order
			orders = append(orders, &copied)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrderStatus(businessID uint, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[strings.ToUpper(orderID)]
	if !exists || order.BusinessID != businessID {
		return ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

// Flow and bot config operations

// AddFlow registers a flow (test/seed helper). Iteration order for matching
// is insertion order.
func (m *MemoryStore) AddFlow(flow *models.Flow) *models.Flow {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.idCounter++
	flow.ID = m.idCounter
	m.flows = append(m.flows, flow)
	return flow
}

func (m *MemoryStore) GetActiveFlows(businessID uint) ([]*models.Flow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var flows []*models.Flow
	for _, flow := range m.flows {
		if flow.BusinessID == businessID && flow.IsActive {
			flows = append(flows, flow)
		}
	}
	return flows, nil
}

// SetOrderBotConfig stores a bot config (test/seed helper).
func (m *MemoryStore) SetOrderBotConfig(config *models.OrderBotConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs[config.BusinessID] = config
}

func (m *MemoryStore) GetOrderBotConfig(businessID uint) (*models.OrderBotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config, exists := m.configs[businessID]
	if !exists {
		return nil, ErrNotFound
	}
	return config, nil
}

// Message log operations

func (m *MemoryStore) CreateMessage(message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(message.BusinessID, message.PlatformID)
	if _, exists := m.messages[key]; exists {
		return fmt.Errorf("message %s already logged", message.PlatformID)
	}
	m.idCounter++
	message.ID = m.idCounter
	message.CreatedAt = time.Now()
	copied := *message
	m.messages[key] = &copied
	return nil
}

func (m *MemoryStore) GetMessageByPlatformID(businessID uint, platformID string) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	message, exists := m.messages[sessionKey(businessID, platformID)]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *message
	return &copied, nil
}

func (m *MemoryStore) UpdateMessageStatus(businessID uint, platformID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	message, exists := m.messages[sessionKey(businessID, platformID)]
	if !exists {
		return ErrNotFound
	}
	message.Status = status
	message.UpdatedAt = time.Now()
	return nil
}

// Support operations

func (m *MemoryStore) AppendSupportMessage(businessID uint, customerPhone, text string) (*models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(businessID, customerPhone)
	ticket, exists := m.tickets[key]
	if !exists || ticket.Status == "resolved" || ticket.Status == "closed" {
		m.idCounter++
		ticket = &models.SupportTicket{
			TicketID:      fmt.Sprintf("TK%d", time.Now().UnixNano()),
			BusinessID:    businessID,
			CustomerPhone: customerPhone,
			Status:        "open",
			Priority:      "medium",
		}
		ticket.ID = m.idCounter
		ticket.CreatedAt = time.Now()
		m.tickets[key] = ticket
	}
	if ticket.Transcript != "" {
		ticket.Transcript += "\n"
	}
	ticket.Transcript += fmt.Sprintf("[%s] %s", time.Now().Format("02 Jan 15:04"), text)
	ticket.UpdatedAt = time.Now()

	copied := *ticket
	return &copied, nil
}
