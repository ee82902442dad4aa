package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatcart/chatcart-backend/internal/models"
)

func TestAddToCartMergesLinesAndRecomputesTotal(t *testing.T) {
	env := newTestEnv()
	p1 := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	p2 := env.addProduct("Filter Coffee", "Beverages", 40, nil)
	session := env.session("919876543210")

	require.NoError(t, env.commerce.AddToCart(env.business, session, p1.ProductID))
	require.NoError(t, env.commerce.AddToCart(env.business, session, p1.ProductID))
	require.NoError(t, env.commerce.AddToCart(env.business, session, p2.ProductID))

	require.Len(t, session.Cart, 2)
	assert.Equal(t, 2, session.Cart[0].Quantity)
	assert.Equal(t, 160.0, session.Cart[0].LineTotal)
	assert.Equal(t, 200.0, session.CartTotal)
	assert.Equal(t, models.StateCart, session.State)
	assert.False(t, session.ReminderSent)
}

func TestAddToCartOutOfStock(t *testing.T) {
	env := newTestEnv()
	p := env.addProduct("Ghee Roast", "South Indian", 120, intPtr(0))
	session := env.session("919876543210")

	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))

	assert.Empty(t, session.Cart)
	assert.Contains(t, env.gateway.last().body, "out of stock")
}

func TestAddToCartUnknownProduct(t *testing.T) {
	env := newTestEnv()
	session := env.session("919876543210")

	require.NoError(t, env.commerce.AddToCart(env.business, session, "prd0000000000009999"))

	assert.Empty(t, session.Cart)
	assert.Contains(t, env.gateway.last().body, "no longer available")
}

func TestCatalogGroupsByCategoryAndSkipsOutOfStock(t *testing.T) {
	env := newTestEnv()
	env.addProduct("Masala Dosa", "South Indian", 80, nil)
	env.addProduct("Idli", "South Indian", 40, nil)
	env.addProduct("Filter Coffee", "Beverages", 40, nil)
	env.addProduct("Sold Out Thing", "Beverages", 99, intPtr(0))
	session := env.session("919876543210")

	require.NoError(t, env.commerce.SendCatalog(env.business, session))

	msg := env.gateway.last()
	require.Equal(t, "list", msg.kind)
	require.Len(t, msg.sections, 2)

	var rows int
	for _, section := range msg.sections {
		rows += len(section.Rows)
	}
	assert.Equal(t, 3, rows)
	assert.Equal(t, models.StateBrowsing, session.State)
}

func TestCheckoutAutoSelectsSinglePaymentMethod(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID: env.business.ID,
		Enabled:    true,
		AcceptCOD:  true,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))

	require.NoError(t, env.commerce.ContinueToSummary(env.business, session))

	assert.Equal(t, models.PaymentCOD, session.PaymentMethod)
	assert.Equal(t, models.StateConfirming, session.State)
	assert.Contains(t, env.gateway.last().body, "Order Summary")
}

func TestCheckoutPromptsWhenMultipleMethodsEnabled(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID:   env.business.ID,
		Enabled:      true,
		AcceptCOD:    true,
		AcceptOnline: true,
		AcceptCredit: true,
		CreditDays:   15,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))

	require.NoError(t, env.commerce.ContinueToSummary(env.business, session))

	assert.Equal(t, models.StateSelectingPayment, session.State)
	assert.Empty(t, session.PaymentMethod)

	msg := env.gateway.last()
	require.Equal(t, "buttons", msg.kind)
	require.Len(t, msg.buttons, 3)
	assert.Equal(t, "payment_cod", msg.buttons[0].ID)
	assert.Equal(t, "payment_online", msg.buttons[1].ID)
	assert.Equal(t, "payment_credit", msg.buttons[2].ID)
	assert.Equal(t, "Credit (15 days)", msg.buttons[2].Title)
}

func TestCheckoutReusesPriorSelectionWhileEnabled(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID:   env.business.ID,
		Enabled:      true,
		AcceptCOD:    true,
		AcceptOnline: true,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))
	session.PaymentMethod = models.PaymentOnline

	require.NoError(t, env.commerce.ContinueToSummary(env.business, session))

	assert.Equal(t, models.PaymentOnline, session.PaymentMethod)
	assert.Equal(t, models.StateConfirming, session.State)
}

func TestCheckoutHaltsWithNoPaymentMethods(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID: env.business.ID,
		Enabled:    true,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))

	require.NoError(t, env.commerce.ContinueToSummary(env.business, session))

	assert.Equal(t, models.StateIdle, session.State)
	assert.Contains(t, env.gateway.last().body, "hasn't enabled any payment methods")
}

func TestPaymentSelectionRejectsDisabledMethod(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID:   env.business.ID,
		Enabled:      true,
		AcceptCOD:    true,
		AcceptOnline: true,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))

	// Credit was never enabled; the stale button press re-prompts
	require.NoError(t, env.commerce.HandlePaymentSelection(env.business, session, "payment_credit"))

	assert.Empty(t, session.PaymentMethod)
	assert.Equal(t, models.StateSelectingPayment, session.State)
}

func TestConfirmOrderCommitsAndClearsSession(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID: env.business.ID,
		Enabled:    true,
		AcceptCOD:  true,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))
	session.PaymentMethod = models.PaymentCOD
	session.TempInfo = models.CustomerInfo{Name: "Asha", Address: "12 MG Road, Bengaluru"}

	require.NoError(t, env.commerce.ConfirmOrder(env.business, session))

	assert.Empty(t, session.Cart)
	assert.Zero(t, session.CartTotal)
	assert.Equal(t, models.StateIdle, session.State)
	assert.NotEmpty(t, session.LastOrderID)

	order, err := env.store.GetOrderByOrderID(env.business.ID, session.LastOrderID)
	require.NoError(t, err)
	assert.Equal(t, 160.0, order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentCOD, order.PaymentMethod)
	assert.Equal(t, "Asha", order.CustomerName)

	customer, err := env.store.GetCustomer(env.business.ID, session.CustomerPhone)
	require.NoError(t, err)
	assert.Equal(t, "Asha", customer.Name)
	assert.Equal(t, "12 MG Road, Bengaluru", customer.Address)
	assert.Equal(t, 1, customer.TotalOrders)
	assert.Equal(t, 160.0, customer.TotalSpent)
	require.NotNil(t, customer.LastOrderAt)
}

func TestConfirmOrderWithEmptyCartDoesNotCreateOrder(t *testing.T) {
	env := newTestEnv()
	session := env.session("919876543210")

	require.NoError(t, env.commerce.ConfirmOrder(env.business, session))

	orders, err := env.store.GetOrdersByBusiness(env.business.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Contains(t, env.gateway.last().body, "empty")
}

func TestDuplicateConfirmDoesNotDoubleCreate(t *testing.T) {
	env := newTestEnv()
	env.store.SetOrderBotConfig(&models.OrderBotConfig{
		BusinessID: env.business.ID,
		Enabled:    true,
		AcceptCOD:  true,
	})
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))
	session.PaymentMethod = models.PaymentCOD

	require.NoError(t, env.commerce.ConfirmOrder(env.business, session))
	require.NoError(t, env.commerce.ConfirmOrder(env.business, session))

	orders, err := env.store.GetOrdersByBusiness(env.business.ID, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCancelOrderKeepsCart(t *testing.T) {
	env := newTestEnv()
	p := env.addProduct("Masala Dosa", "South Indian", 80, nil)
	session := env.session("919876543210")
	require.NoError(t, env.commerce.AddToCart(env.business, session, p.ProductID))
	session.PaymentMethod = models.PaymentCOD
	session.TempInfo = models.CustomerInfo{Name: "Asha"}

	require.NoError(t, env.commerce.CancelOrder(env.business, session))

	assert.Len(t, session.Cart, 1)
	assert.Equal(t, models.StateIdle, session.State)
	assert.Empty(t, session.PaymentMethod)
	assert.Empty(t, session.TempInfo.Name)
}

func TestCollectingNameAndAddressValidation(t *testing.T) {
	env := newTestEnv()
	session := env.session("919876543210")
	session.State = models.StateCollectingName

	// Too short, re-prompts without advancing
	require.NoError(t, env.commerce.HandleCollectingName(env.business, session, "A"))
	assert.Equal(t, models.StateCollectingName, session.State)

	require.NoError(t, env.commerce.HandleCollectingName(env.business, session, "Asha"))
	assert.Equal(t, "Asha", session.TempInfo.Name)
	assert.Equal(t, models.StateCollectingAddr, session.State)

	require.NoError(t, env.commerce.HandleCollectingAddress(env.business, session, "short"))
	assert.Empty(t, session.TempInfo.Address)
	assert.Equal(t, models.StateCollectingAddr, session.State)
}

func TestTrackingResolvesOrderID(t *testing.T) {
	env := newTestEnv()
	session := env.session("919876543210")

	order := &models.Order{
		BusinessID:    env.business.ID,
		CustomerPhone: session.CustomerPhone,
		Items:         []models.OrderItem{{Name: "Masala Dosa", Quantity: 2}},
		Total:         160,
		Status:        models.OrderStatusShipped,
		PaymentMethod: models.PaymentCOD,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, env.store.CreateOrder(order))

	require.NoError(t, env.commerce.StartTracking(env.business, session))
	assert.Equal(t, models.StateTracking, session.State)

	// Garbage text re-prompts, still tracking
	require.NoError(t, env.commerce.HandleTracking(env.business, session, "no idea"))
	assert.Equal(t, models.StateTracking, session.State)

	require.NoError(t, env.commerce.HandleTracking(env.business, session, "my id is "+order.OrderID))
	assert.Equal(t, models.StateIdle, session.State)
	assert.Contains(t, env.gateway.last().body, order.OrderID)
	assert.Contains(t, env.gateway.last().body, "Shipped")
}

func TestOrderHistoryMatchesPhoneVariants(t *testing.T) {
	env := newTestEnv()
	session := env.session("919876543210")

	// Historical order stored with a leading plus
	require.NoError(t, env.store.CreateOrder(&models.Order{
		BusinessID:    env.business.ID,
		CustomerPhone: "+919876543210",
		Total:         120,
		Status:        models.OrderStatusDelivered,
	}))

	require.NoError(t, env.commerce.SendOrderHistory(env.business, session))

	assert.Equal(t, models.StateViewingOrders, session.State)
	assert.Contains(t, env.gateway.last().body, "Your Recent Orders")
}
