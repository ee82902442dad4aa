package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
	"github.com/chatcart/chatcart-backend/internal/utils"
)

// BotService is the conversation engine: it consumes canonical webhook
// events and drives the per-customer state machine.
type BotService struct {
	store     storage.Store
	messenger *Messenger
	sessions  *SessionManager
	resolver  *BusinessResolver
	flows     *FlowService
	commerce  *CommerceService
}

// NewBotService wires the conversation engine.
func NewBotService(store storage.Store, messenger *Messenger, sessions *SessionManager, resolver *BusinessResolver, flows *FlowService, commerce *CommerceService) *BotService {
	return &BotService{
		store:     store,
		messenger: messenger,
		sessions:  sessions,
		resolver:  resolver,
		flows:     flows,
		commerce:  commerce,
	}
}

// HandleEvent resolves the tenant and applies one canonical event. Unknown
// tenants are an expected miss: logged and dropped, never an error.
func (b *BotService) HandleEvent(event *Event) error {
	business, err := b.resolver.Resolve(event.ChannelID, event.AccountID)
	if err != nil {
		return fmt.Errorf("resolve business: %w", err)
	}
	if business == nil {
		log.Printf("📭 Dropping event for unknown channel %s (account %s)", event.ChannelID, event.AccountID)
		return nil
	}

	switch {
	case event.Status != nil:
		return b.applyStatus(business, event.Status)
	case event.Message != nil:
		return b.ProcessMessage(business, event.Message)
	}
	return nil
}

// applyStatus updates the delivery status on a logged outbound message.
// Repeats of the same status are naturally idempotent.
func (b *BotService) applyStatus(business *models.Business, status *StatusEvent) error {
	err := b.store.UpdateMessageStatus(business.ID, status.PlatformID, status.Status)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("📭 Status %s for unknown message %s", status.Status, status.PlatformID)
		return nil
	}
	return err
}

// ProcessMessage runs one conversation turn. Duplicate deliveries of the same
// platform message id are detected and skipped before any side effect.
func (b *BotService) ProcessMessage(business *models.Business, msg *MessageEvent) error {
	if _, err := b.store.GetMessageByPlatformID(business.ID, msg.PlatformID); err == nil {
		log.Printf("🔁 Duplicate delivery of message %s, skipping", msg.PlatformID)
		return nil
	}

	record := &models.Message{
		BusinessID:    business.ID,
		PlatformID:    msg.PlatformID,
		Direction:     models.DirectionInbound,
		CustomerPhone: msg.From,
		Type:          msg.Type,
		Body:          msg.Text,
	}
	if record.Body == "" {
		record.Body = msg.ReplyID
	}
	if err := b.store.CreateMessage(record); err != nil {
		// A concurrent delivery won the race; treat like a duplicate.
		log.Printf("🔁 Message %s already logged, skipping: %v", msg.PlatformID, err)
		return nil
	}

	unlock := b.sessions.Lock(business.ID, msg.From)
	defer unlock()

	session, err := b.sessions.GetOrCreate(business.ID, msg.From)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if msg.ReplyID != "" {
		err = b.handleAction(business, session, msg.ReplyID)
	} else {
		err = b.handleText(business, session, msg)
	}
	if err != nil {
		log.Printf("❌ Error processing message %s: %v", msg.PlatformID, err)
	}

	if err := b.sessions.Save(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// quickCommand is one entry of the fixed quick-command table.
type quickCommand struct {
	keyword string
	action  string
}

// Order matters: first match wins on prefix lookups.
var quickCommands = []quickCommand{
	{"cart", "view_cart"},
	{"orders", "view_orders"},
	{"my orders", "view_orders"},
	{"browse", "browse_products"},
	{"products", "browse_products"},
	{"shop", "browse_products"},
	{"checkout", "checkout"},
	{"track", "track_order"},
	{"menu", "main_menu"},
	{"help", "contact_support"},
	{"support", "contact_support"},
}

var greetings = []string{
	"hi", "hii", "hello", "hey", "hola", "namaste", "start",
	"good morning", "good afternoon", "good evening",
}

// handleText routes a free-text inbound message. Precedence: stateful
// continuation, quick command, greeting, configured flow, fallback.
func (b *BotService) handleText(business *models.Business, session *models.ChatSession, msg *MessageEvent) error {
	text := msg.Text
	normalized := strings.ToLower(strings.TrimSpace(text))

	// 1. Mid-dialogue states take priority over keyword matching
	switch session.State {
	case models.StateCollectingInfo:
		return b.commerce.HandleCollectingInfo(business, session, text)
	case models.StateCollectingName:
		return b.commerce.HandleCollectingName(business, session, text)
	case models.StateCollectingAddr:
		return b.commerce.HandleCollectingAddress(business, session, text)
	case models.StateReviewingInfo:
		return b.commerce.HandleReviewingInfo(business, session, normalized)
	case models.StateSupport:
		return b.handleSupportMessage(business, session, text)
	case models.StateTracking:
		if normalized == "menu" {
			session.State = models.StateIdle
			return b.sendWelcome(business, session, msg.ProfileName)
		}
		return b.commerce.HandleTracking(business, session, text)
	}

	// 2. Quick commands
	for _, cmd := range quickCommands {
		if normalized == cmd.keyword || strings.HasPrefix(normalized, cmd.keyword+" ") {
			// "track ORD..." resolves in one step
			if cmd.action == "track_order" {
				if orderID := utils.ExtractOrderID(text); orderID != "" {
					session.State = models.StateTracking
					return b.commerce.HandleTracking(business, session, orderID)
				}
			}
			return b.handleAction(business, session, cmd.action)
		}
	}

	// 3. Greetings
	for _, greeting := range greetings {
		if normalized == greeting || strings.HasPrefix(normalized, greeting+" ") {
			return b.sendWelcome(business, session, msg.ProfileName)
		}
	}

	// 4. Tenant-configured flows
	flow, err := b.flows.Match(business.ID, text)
	if err != nil {
		log.Printf("⚠️  Flow matching failed: %v", err)
	}
	if flow != nil {
		name := msg.ProfileName
		if name == "" {
			name = "there"
		}
		if err := b.flows.Execute(business, session, flow, name); err != nil {
			log.Printf("⚠️  Flow %q failed, falling back: %v", flow.Name, err)
			return b.sendHelp(business, session)
		}
		return nil
	}

	// 5./6. Fallback: help if the bot is on, silence otherwise
	if b.botEnabled(business.ID) {
		return b.sendHelp(business, session)
	}
	log.Printf("🤖 Bot disabled for business %d, ignoring %q", business.ID, text)
	return nil
}

// handleAction dispatches a structured reply id (button or list row). This
// table is authoritative for all interactive replies and does not re-run
// keyword matching.
func (b *BotService) handleAction(business *models.Business, session *models.ChatSession, id string) error {
	switch id {
	case "browse_products":
		return b.commerce.SendCatalog(business, session)
	case "view_cart":
		return b.commerce.SendCartSummary(business, session)
	case "checkout":
		return b.commerce.StartCheckout(business, session)
	case "confirm_order":
		return b.commerce.ConfirmOrder(business, session)
	case "cancel_order":
		return b.commerce.CancelOrder(business, session)
	case "view_orders":
		return b.commerce.SendOrderHistory(business, session)
	case "track_order":
		return b.commerce.StartTracking(business, session)
	case "main_menu":
		session.State = models.StateIdle
		return b.sendWelcome(business, session, "")
	case "contact_support":
		return b.startSupport(business, session)
	case "add_details":
		return b.commerce.HandleCollectingInfo(business, session, "yes")
	case "skip_details", "use_saved_info", "update_info":
		return b.commerce.HandleReviewingInfo(business, session, id)
	case "payment_cod", "payment_online", "payment_credit":
		return b.commerce.HandlePaymentSelection(business, session, id)
	}

	if utils.LooksLikeProductID(id) {
		return b.commerce.AddToCart(business, session, id)
	}

	log.Printf("🤷 Unknown action id %q from %s", id, session.CustomerPhone)
	return b.sendHelp(business, session)
}

func (b *BotService) botEnabled(businessID uint) bool {
	config, err := b.store.GetOrderBotConfig(businessID)
	if err != nil {
		return false
	}
	return config.Enabled
}

// sendWelcome sends the configured welcome menu, or a minimal greeting when
// the bot is disabled. Sending the menu is not a state commitment.
func (b *BotService) sendWelcome(business *models.Business, session *models.ChatSession, profileName string) error {
	config, err := b.store.GetOrderBotConfig(business.ID)
	if err != nil || !config.Enabled {
		return b.messenger.Text(business, session.CustomerPhone,
			fmt.Sprintf("👋 Hello! Welcome to %s.", business.Name))
	}

	welcome := config.WelcomeMessage
	if welcome == "" {
		welcome = fmt.Sprintf("👋 Welcome to *%s*! How can we help you today?", business.Name)
	}
	if profileName != "" {
		welcome = fmt.Sprintf("👋 Hi %s!\n\n%s", profileName, welcome)
	}

	if len(config.MenuOptions) > 0 {
		section := ListSection{Title: "Menu"}
		for i, option := range config.MenuOptions {
			if i >= MaxListRows {
				break
			}
			section.Rows = append(section.Rows, ListRow{
				ID:          option.ID,
				Title:       option.Title,
				Description: option.Description,
			})
		}
		return b.messenger.List(business, session.CustomerPhone, welcome, "Menu", []ListSection{section})
	}

	return b.messenger.Buttons(business, session.CustomerPhone, welcome, []Button{
		{ID: "browse_products", Title: "🛍️ Browse Products"},
		{ID: "view_cart", Title: "🛒 View Cart"},
		{ID: "contact_support", Title: "💬 Support"},
	})
}

// sendHelp is the generic fallback with standard navigation.
func (b *BotService) sendHelp(business *models.Business, session *models.ChatSession) error {
	return b.messenger.Buttons(business, session.CustomerPhone,
		"🤔 I didn't quite get that. Here's what I can help with:",
		[]Button{
			{ID: "browse_products", Title: "🛍️ Browse Products"},
			{ID: "view_cart", Title: "🛒 View Cart"},
			{ID: "contact_support", Title: "💬 Support"},
		})
}

func (b *BotService) startSupport(business *models.Business, session *models.ChatSession) error {
	session.State = models.StateSupport
	return b.messenger.Text(business, session.CustomerPhone,
		"💬 You're connected to support. Describe your issue and the team will get back to you.\n\nType *menu* anytime to go back.")
}

// handleSupportMessage appends customer text to the open support ticket. The
// ticket write is best-effort and never blocks the acknowledgment.
func (b *BotService) handleSupportMessage(business *models.Business, session *models.ChatSession, text string) error {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "menu" || normalized == "main menu" || normalized == "back" {
		session.State = models.StateIdle
		return b.sendWelcome(business, session, "")
	}

	if _, err := b.store.AppendSupportMessage(business.ID, session.CustomerPhone, text); err != nil {
		log.Printf("⚠️  Failed to record support message from %s: %v", session.CustomerPhone, err)
	}

	return b.messenger.Text(business, session.CustomerPhone,
		"✅ Got it! Our team will get back to you soon.\n\nType *menu* to return to the main menu.")
}
