package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
	"github.com/chatcart/chatcart-backend/internal/utils"
)

const (
	catalogProductLimit = 100
	orderHistoryLimit   = 5
	minNameLen          = 2
	minAddressLen       = 10
)

// CommerceService drives cart building, checkout, payment resolution and
// order commitment.
type CommerceService struct {
	store     storage.Store
	messenger *Messenger
}

// NewCommerceService creates a new commerce service
func NewCommerceService(store storage.Store, messenger *Messenger) *CommerceService {
	return &CommerceService{store: store, messenger: messenger}
}

func (c *CommerceService) config(businessID uint) *models.OrderBotConfig {
	config, err := c.store.GetOrderBotConfig(businessID)
	if err != nil {
		// No config yet: bot defaults apply, cash on delivery only.
		return &models.OrderBotConfig{BusinessID: businessID, Enabled: true, AcceptCOD: true, CreditDays: 7}
	}
	return config
}

func formatMoney(business *models.Business, amount float64) string {
	currency := business.Currency
	if currency == "" {
		currency = "₹"
	}
	return fmt.Sprintf("%s%.2f", currency, amount)
}

// SendCatalog renders up to 100 in-stock products grouped by category as a
// selectable list, capped at 10 categories x 10 products.
func (c *CommerceService) SendCatalog(business *models.Business, session *models.ChatSession) error {
	products, err := c.store.GetProducts(business.ID, catalogProductLimit)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if len(products) == 0 {
		return c.messenger.Text(business, session.CustomerPhone,
			fmt.Sprintf("🛍️ %s hasn't added any products yet. Please check back soon!", business.Name))
	}

	var inStock []*models.Product
	for _, p := range products {
		if p.InStock() {
			inStock = append(inStock, p)
		}
	}
	if len(inStock) == 0 {
		return c.messenger.Text(business, session.CustomerPhone,
			"😔 Everything is out of stock right now. Please check back soon!")
	}

	// Group by category preserving first-seen order
	var categories []string
	grouped := make(map[string][]*models.Product)
	for _, p := range inStock {
		category := p.Category
		if category == "" {
			category = "Other"
		}
		if _, seen := grouped[category]; !seen {
			categories = append(categories, category)
		}
		grouped[category] = append(grouped[category], p)
	}
	if len(categories) > MaxListSections {
		categories = categories[:MaxListSections]
	}

	var sections []ListSection
	for _, category := range categories {
		items := grouped[category]
		if len(items) > MaxListRows {
			items = items[:MaxListRows]
		}
		section := ListSection{Title: category}
		for _, p := range items {
			section.Rows = append(section.Rows, ListRow{
				ID:          p.ProductID,
				Title:       p.Name,
				Description: strings.TrimSuffix(fmt.Sprintf("%s · %s", formatMoney(business, p.Price), p.Description), " · "),
			})
		}
		sections = append(sections, section)
	}

	session.State = models.StateBrowsing
	return c.messenger.List(business, session.CustomerPhone,
		fmt.Sprintf("🛍️ *%s*\n\nTap below to browse our products!", business.Name),
		"View Products", sections)
}

// AddToCart adds a product to the session cart, merging into an existing line
// for the same product. The cart total is recomputed on every mutation.
func (c *CommerceService) AddToCart(business *models.Business, session *models.ChatSession, productID string) error {
	product, err := c.store.GetProduct(business.ID, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return c.messenger.Buttons(business, session.CustomerPhone,
			"😔 That product is no longer available.",
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	if !product.InStock() {
		return c.messenger.Buttons(business, session.CustomerPhone,
			fmt.Sprintf("😔 *%s* is out of stock right now.", product.Name),
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}

	merged := false
	for i := range session.Cart {
		if session.Cart[i].ProductID == product.ProductID {
			session.Cart[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		session.Cart = append(session.Cart, models.CartLine{
			ProductID: product.ProductID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
		})
	}
	session.RecomputeCartTotal()
	session.State = models.StateCart
	session.ReminderSent = false

	body := fmt.Sprintf("✅ Added *%s* to your cart!\n\n%s", product.Name, c.cartLines(business, session))
	return c.messenger.Buttons(business, session.CustomerPhone, body, []Button{
		{ID: "browse_products", Title: "➕ Add More"},
		{ID: "checkout", Title: "🛒 Checkout"},
		{ID: "view_cart", Title: "👀 View Cart"},
	})
}

func (c *CommerceService) cartLines(business *models.Business, session *models.ChatSession) string {
	var b strings.Builder
	for _, line := range session.Cart {
		fmt.Fprintf(&b, "• %s x%d — %s\n", line.Name, line.Quantity, formatMoney(business, line.LineTotal))
	}
	fmt.Fprintf(&b, "\n*Total: %s*", formatMoney(business, session.CartTotal))
	return b.String()
}

// SendCartSummary shows the current cart with next-step buttons.
func (c *CommerceService) SendCartSummary(business *models.Business, session *models.ChatSession) error {
	if len(session.Cart) == 0 {
		return c.messenger.Buttons(business, session.CustomerPhone,
			"🛒 Your cart is empty!",
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}

	body := fmt.Sprintf("🛒 *Your Cart*\n\n%s", c.cartLines(business, session))
	return c.messenger.Buttons(business, session.CustomerPhone, body, []Button{
		{ID: "checkout", Title: "✅ Checkout"},
		{ID: "browse_products", Title: "➕ Add More"},
	})
}

// StartCheckout begins the checkout sub-dialogue. With a saved customer
// record the customer may reuse it; otherwise delivery details are collected.
func (c *CommerceService) StartCheckout(business *models.Business, session *models.ChatSession) error {
	if len(session.Cart) == 0 {
		return c.messenger.Buttons(business, session.CustomerPhone,
			"🛒 Your cart is empty! Add something before checking out.",
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}

	customer, err := c.store.GetCustomer(business.ID, session.CustomerPhone)
	if err == nil && customer.Name != "" && customer.Address != "" {
		session.State = models.StateReviewingInfo
		body := fmt.Sprintf("📦 Deliver to your saved details?\n\n*%s*\n%s", customer.Name, customer.Address)
		return c.messenger.Buttons(business, session.CustomerPhone, body, []Button{
			{ID: "use_saved_info", Title: "✅ Use These"},
			{ID: "update_info", Title: "✏️ Update"},
			{ID: "skip_details", Title: "⏭️ Skip"},
		})
	}

	session.State = models.StateCollectingInfo
	return c.messenger.Buttons(business, session.CustomerPhone,
		"📦 Would you like to add your name and delivery address?",
		[]Button{
			{ID: "add_details", Title: "✅ Yes"},
			{ID: "skip_details", Title: "⏭️ Skip"},
		})
}

var yesWords = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "ok": true, "okay": true, "sure": true}
var noWords = map[string]bool{"no": true, "n": true, "nope": true, "skip": true}

// HandleCollectingInfo processes free text while asking whether to collect
// delivery details.
func (c *CommerceService) HandleCollectingInfo(business *models.Business, session *models.ChatSession, text string) error {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case yesWords[normalized]:
		return c.promptName(business, session)
	case noWords[normalized]:
		session.TempInfo = models.CustomerInfo{}
		return c.ContinueToSummary(business, session)
	default:
		return c.messenger.Buttons(business, session.CustomerPhone,
			"Please choose: add delivery details or skip?",
			[]Button{
				{ID: "add_details", Title: "✅ Yes"},
				{ID: "skip_details", Title: "⏭️ Skip"},
			})
	}
}

func (c *CommerceService) promptName(business *models.Business, session *models.ChatSession) error {
	session.State = models.StateCollectingName
	return c.messenger.Text(business, session.CustomerPhone,
		"👤 What's your name? (or type *skip*)")
}

// HandleCollectingName stores the customer name and moves on to the address.
func (c *CommerceService) HandleCollectingName(business *models.Business, session *models.ChatSession, text string) error {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, "skip") {
		session.State = models.StateCollectingAddr
		return c.promptAddress(business, session)
	}
	if len([]rune(trimmed)) < minNameLen {
		return c.messenger.Text(business, session.CustomerPhone,
			"🤔 That name looks too short. Please send your name, or type *skip*.")
	}
	session.TempInfo.Name = trimmed
	session.State = models.StateCollectingAddr
	return c.promptAddress(business, session)
}

func (c *CommerceService) promptAddress(business *models.Business, session *models.ChatSession) error {
	return c.messenger.Text(business, session.CustomerPhone,
		"🏠 What's your delivery address? (or type *skip*)")
}

// HandleCollectingAddress stores the address and proceeds to the order
// summary.
func (c *CommerceService) HandleCollectingAddress(business *models.Business, session *models.ChatSession, text string) error {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, "skip") {
		return c.ContinueToSummary(business, session)
	}
	if len([]rune(trimmed)) < minAddressLen {
		return c.messenger.Text(business, session.CustomerPhone,
			"🤔 That address looks too short. Please send your full address, or type *skip*.")
	}
	session.TempInfo.Address = trimmed
	return c.ContinueToSummary(business, session)
}

// HandleReviewingInfo processes the saved-details choice, from buttons or
// typed text.
func (c *CommerceService) HandleReviewingInfo(business *models.Business, session *models.ChatSession, input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch normalized {
	case "use_saved_info", "use", "yes", "y":
		customer, err := c.store.GetCustomer(business.ID, session.CustomerPhone)
		if err == nil {
			session.TempInfo = models.CustomerInfo{Name: customer.Name, Address: customer.Address}
		}
		return c.ContinueToSummary(business, session)
	case "update_info", "update":
		return c.promptName(business, session)
	case "skip_details", "skip", "no", "n":
		session.TempInfo = models.CustomerInfo{}
		return c.ContinueToSummary(business, session)
	default:
		return c.messenger.Buttons(business, session.CustomerPhone,
			"Please choose an option for your delivery details.",
			[]Button{
				{ID: "use_saved_info", Title: "✅ Use Saved"},
				{ID: "update_info", Title: "✏️ Update"},
				{ID: "skip_details", Title: "⏭️ Skip"},
			})
	}
}

// ContinueToSummary resolves the payment method and, once resolved, shows the
// order summary. It halts (with a prompt) when the customer must choose.
func (c *CommerceService) ContinueToSummary(business *models.Business, session *models.ChatSession) error {
	resolved, err := c.ensurePaymentSelected(business, session)
	if err != nil || !resolved {
		return err
	}
	return c.SendOrderSummary(business, session)
}

// ensurePaymentSelected resolves the payment method against the business
// config. Zero enabled methods halts checkout; exactly one auto-selects; a
// still-enabled prior choice is reused; otherwise the customer is prompted.
// Returns true when a method is set and checkout can proceed.
func (c *CommerceService) ensurePaymentSelected(business *models.Business, session *models.ChatSession) (bool, error) {
	config := c.config(business.ID)
	methods := config.EnabledPaymentMethods()

	if len(methods) == 0 {
		session.PaymentMethod = ""
		session.State = models.StateIdle
		return false, c.messenger.Text(business, session.CustomerPhone,
			fmt.Sprintf("😔 %s hasn't enabled any payment methods yet. Please contact them directly.", business.Name))
	}

	if len(methods) == 1 {
		c.selectPayment(session, config, methods[0])
		return true, nil
	}

	// Reuse a prior selection only while it is still enabled
	for _, m := range methods {
		if session.PaymentMethod == m {
			return true, nil
		}
	}

	session.PaymentMethod = ""
	session.State = models.StateSelectingPayment
	var buttons []Button
	for _, m := range methods {
		buttons = append(buttons, Button{ID: paymentActionID(m), Title: paymentLabel(m, config.CreditDays)})
	}
	return false, c.messenger.Buttons(business, session.CustomerPhone,
		"💳 How would you like to pay?", buttons)
}

func (c *CommerceService) selectPayment(session *models.ChatSession, config *models.OrderBotConfig, method string) {
	session.PaymentMethod = method
	if method == models.PaymentCredit {
		session.CreditDays = config.CreditDays
	} else {
		session.CreditDays = 0
	}
}

// HandlePaymentSelection processes a payment-choice structured reply.
func (c *CommerceService) HandlePaymentSelection(business *models.Business, session *models.ChatSession, replyID string) error {
	method, ok := paymentMethodForAction(replyID)
	if !ok {
		return c.ContinueToSummary(business, session)
	}

	config := c.config(business.ID)
	enabled := false
	for _, m := range config.EnabledPaymentMethods() {
		if m == method {
			enabled = true
			break
		}
	}
	if !enabled {
		// Choice raced a config change; re-resolve from scratch
		session.PaymentMethod = ""
		return c.ContinueToSummary(business, session)
	}

	c.selectPayment(session, config, method)
	return c.SendOrderSummary(business, session)
}

func paymentActionID(method string) string {
	switch method {
	case models.PaymentCOD:
		return "payment_cod"
	case models.PaymentOnline:
		return "payment_online"
	case models.PaymentCredit:
		return "payment_credit"
	}
	return ""
}

func paymentMethodForAction(id string) (string, bool) {
	switch id {
	case "payment_cod":
		return models.PaymentCOD, true
	case "payment_online":
		return models.PaymentOnline, true
	case "payment_credit":
		return models.PaymentCredit, true
	}
	return "", false
}

func paymentLabel(method string, creditDays int) string {
	switch method {
	case models.PaymentCOD:
		return "Cash on Delivery"
	case models.PaymentOnline:
		return "Pay Online"
	case models.PaymentCredit:
		if creditDays > 0 {
			return fmt.Sprintf("Credit (%d days)", creditDays)
		}
		return "Credit"
	}
	return method
}

// SendOrderSummary composes the final review message with confirm/cancel
// buttons and moves the session to confirming.
func (c *CommerceService) SendOrderSummary(business *models.Business, session *models.ChatSession) error {
	if len(session.Cart) == 0 {
		return c.messenger.Buttons(business, session.CustomerPhone,
			"🛒 Your cart is empty!",
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Order Summary — %s*\n\n", business.Name)
	b.WriteString(c.cartLines(business, session))
	b.WriteString("\n\n")
	if session.TempInfo.Name != "" && session.TempInfo.Address != "" {
		fmt.Fprintf(&b, "📦 Deliver to: %s, %s\n", session.TempInfo.Name, session.TempInfo.Address)
	} else {
		fmt.Fprintf(&b, "📦 Deliver to: %s\n", session.CustomerPhone)
	}
	fmt.Fprintf(&b, "💳 Payment: %s", paymentLabel(session.PaymentMethod, session.CreditDays))

	session.State = models.StateConfirming
	return c.messenger.Buttons(business, session.CustomerPhone, b.String(), []Button{
		{ID: "confirm_order", Title: "✅ Confirm Order"},
		{ID: "cancel_order", Title: "❌ Cancel"},
	})
}

// ConfirmOrder commits the order: the order row, the cleared session and the
// customer upsert apply in one store transaction. If the commit fails the
// cart is untouched and no order exists.
func (c *CommerceService) ConfirmOrder(business *models.Business, session *models.ChatSession) error {
	if len(session.Cart) == 0 {
		return c.messenger.Buttons(business, session.CustomerPhone,
			"🛒 Your cart is empty — nothing to confirm!",
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}

	session.RecomputeCartTotal()

	items := make([]models.OrderItem, 0, len(session.Cart))
	for _, line := range session.Cart {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	order := &models.Order{
		OrderID:         models.GenerateOrderID(),
		BusinessID:      business.ID,
		CustomerPhone:   session.CustomerPhone,
		CustomerName:    session.TempInfo.Name,
		DeliveryAddress: session.TempInfo.Address,
		Items:           items,
		Total:           session.CartTotal,
		Status:          models.OrderStatusPending,
		PaymentMethod:   session.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		CreditDays:      session.CreditDays,
		Source:          "whatsapp",
	}

	now := time.Now()
	customer := &models.Customer{
		BusinessID:  business.ID,
		Phone:       session.CustomerPhone,
		Name:        session.TempInfo.Name,
		Address:     session.TempInfo.Address,
		TotalOrders: 1,
		TotalSpent:  order.Total,
		LastOrderAt: &now,
	}
	if existing, err := c.store.GetCustomer(business.ID, session.CustomerPhone); err == nil {
		if customer.Name == "" {
			customer.Name = existing.Name
		}
		if customer.Address == "" {
			customer.Address = existing.Address
		}
		customer.TotalOrders = existing.TotalOrders + 1
		customer.TotalSpent = existing.TotalSpent + order.Total
	}

	// Commit against a cleared copy so a failure leaves the live session
	// (and its cart) untouched.
	cleared := *session
	cleared.Reset()
	cleared.LastOrderID = order.OrderID

	deliveryLine := order.CustomerName
	if deliveryLine != "" && order.DeliveryAddress != "" {
		deliveryLine = fmt.Sprintf("%s, %s", order.CustomerName, order.DeliveryAddress)
	} else {
		deliveryLine = session.CustomerPhone
	}

	if err := c.store.CommitOrder(order, &cleared, customer); err != nil {
		log.Printf("❌ Order commit failed for %s: %v", session.CustomerPhone, err)
		return c.messenger.Buttons(business, session.CustomerPhone,
			"😔 Something went wrong placing your order. Your cart is safe — please try again.",
			[]Button{{ID: "confirm_order", Title: "🔄 Try Again"}})
	}
	*session = cleared

	var b strings.Builder
	fmt.Fprintf(&b, "🎉 *Order Confirmed!*\n\n")
	fmt.Fprintf(&b, "🧾 Order ID: *%s*\n", order.OrderID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s x%d — %s\n", item.Name, item.Quantity, formatMoney(business, item.LineTotal))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n", formatMoney(business, order.Total))
	fmt.Fprintf(&b, "📦 Deliver to: %s\n", deliveryLine)
	fmt.Fprintf(&b, "💳 Payment: %s\n\n", paymentLabel(order.PaymentMethod, order.CreditDays))
	fmt.Fprintf(&b, "Thank you for shopping with %s! 🙏", business.Name)

	return c.messenger.Buttons(business, session.CustomerPhone, b.String(), []Button{
		{ID: "browse_products", Title: "🛍️ Shop Again"},
		{ID: "track_order", Title: "📦 Track Order"},
	})
}

// CancelOrder abandons the checkout. The cart is kept so the customer can
// resume later; staged payment and delivery details are dropped.
func (c *CommerceService) CancelOrder(business *models.Business, session *models.ChatSession) error {
	session.State = models.StateIdle
	session.PaymentMethod = ""
	session.CreditDays = 0
	session.TempInfo = models.CustomerInfo{}

	return c.messenger.Buttons(business, session.CustomerPhone,
		"❌ Checkout cancelled. Your cart is still saved!",
		[]Button{
			{ID: "view_cart", Title: "👀 View Cart"},
			{ID: "browse_products", Title: "🛍️ Browse Products"},
		})
}

// SendOrderHistory lists the customer's recent orders, tolerating historical
// phone formats the orders may have been stored under.
func (c *CommerceService) SendOrderHistory(business *models.Business, session *models.ChatSession) error {
	phones := utils.PhoneVariants(session.CustomerPhone)
	orders, err := c.store.GetOrdersByCustomer(business.ID, phones, orderHistoryLimit)
	if err != nil {
		return fmt.Errorf("find orders: %w", err)
	}

	if len(orders) == 0 {
		return c.messenger.Buttons(business, session.CustomerPhone,
			"📭 You haven't placed any orders yet.",
			[]Button{{ID: "browse_products", Title: "🛍️ Browse Products"}})
	}

	var b strings.Builder
	b.WriteString("📦 *Your Recent Orders*\n")
	for _, order := range orders {
		fmt.Fprintf(&b, "\n🧾 *%s*\n   %s · %s · %s\n",
			order.OrderID,
			order.CreatedAt.Format("02 Jan 2006"),
			formatMoney(business, order.Total),
			statusLabel(order.Status))
	}
	b.WriteString("\nSend *track* with an order ID for details.")

	session.State = models.StateViewingOrders
	return c.messenger.Buttons(business, session.CustomerPhone, b.String(), []Button{
		{ID: "track_order", Title: "📦 Track Order"},
		{ID: "browse_products", Title: "🛍️ Shop Again"},
	})
}

// StartTracking asks for an order id and moves the session to tracking.
func (c *CommerceService) StartTracking(business *models.Business, session *models.ChatSession) error {
	session.State = models.StateTracking
	return c.messenger.Text(business, session.CustomerPhone,
		"🔍 Please send your order ID (it looks like ORD2408311234).")
}

// HandleTracking resolves an order id from free text while tracking. Text
// without an order-id pattern re-prompts; a resolved (or missing) id returns
// the session to idle.
func (c *CommerceService) HandleTracking(business *models.Business, session *models.ChatSession, text string) error {
	orderID := utils.ExtractOrderID(text)
	if orderID == "" {
		return c.messenger.Text(business, session.CustomerPhone,
			"🤔 That doesn't look like an order ID. It starts with ORD — or type *menu* to go back.")
	}

	session.State = models.StateIdle

	order, err := c.store.GetOrderByOrderID(business.ID, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return c.messenger.Buttons(business, session.CustomerPhone,
			fmt.Sprintf("😔 No order found with ID *%s*.", orderID),
			[]Button{{ID: "view_orders", Title: "📦 My Orders"}})
	}
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Order %s*\n\n", order.OrderID)
	fmt.Fprintf(&b, "Status: %s\n", statusLabel(order.Status))
	fmt.Fprintf(&b, "Placed: %s\n", order.CreatedAt.Format("02 Jan 2006 15:04"))
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s x%d\n", item.Name, item.Quantity)
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n", formatMoney(business, order.Total))
	fmt.Fprintf(&b, "💳 %s (%s)", paymentLabel(order.PaymentMethod, order.CreditDays), order.PaymentStatus)

	return c.messenger.Text(business, session.CustomerPhone, b.String())
}

func statusLabel(status string) string {
	switch status {
	case models.OrderStatusPending:
		return "⏳ Pending"
	case models.OrderStatusConfirmed:
		return "✅ Confirmed"
	case models.OrderStatusProcessing:
		return "👨‍🍳 Processing"
	case models.OrderStatusShipped:
		return "🚚 Shipped"
	case models.OrderStatusDelivered:
		return "📬 Delivered"
	case models.OrderStatusCancelled:
		return "❌ Cancelled"
	}
	return status
}
