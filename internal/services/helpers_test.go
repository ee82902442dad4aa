package services

import (
	"fmt"
	"sync"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

// sentMessage records one outbound send for assertions.
type sentMessage struct {
	kind     string
	to       string
	body     string
	buttons  []Button
	sections []ListSection
}

// fakeGateway records sends instead of hitting the platform.
type fakeGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
	seq  int
}

func (f *fakeGateway) record(msg sentMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", fmt.Errorf("gateway unavailable")
	}
	f.seq++
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("wamid.fake%d", f.seq), nil
}

func (f *fakeGateway) SendText(business *models.Business, to, body string) (string, error) {
	return f.record(sentMessage{kind: "text", to: to, body: body})
}

func (f *fakeGateway) SendButtons(business *models.Business, to, body string, buttons []Button) (string, error) {
	return f.record(sentMessage{kind: "buttons", to: to, body: body, buttons: buttons})
}

func (f *fakeGateway) SendList(business *models.Business, to, body, buttonLabel string, sections []ListSection) (string, error) {
	return f.record(sentMessage{kind: "list", to: to, body: body, sections: sections})
}

func (f *fakeGateway) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeGateway) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// testEnv wires the full conversation engine over a memory store and a fake
// gateway.
type testEnv struct {
	store    *storage.MemoryStore
	gateway  *fakeGateway
	bot      *BotService
	commerce *CommerceService
	flows    *FlowService
	sessions *SessionManager
	business *models.Business
}

func newTestEnv() *testEnv {
	store := storage.NewMemoryStore()
	gateway := &fakeGateway{}
	messenger := NewMessenger(store, gateway)

	sessions := NewSessionManager(store)
	resolver := NewBusinessResolver(store)
	commerce := NewCommerceService(store, messenger)
	flows := NewFlowService(store, messenger, commerce)
	flows.SetSendDelay(0)
	bot := NewBotService(store, messenger, sessions, resolver, flows, commerce)

	business := store.AddBusiness(&models.Business{
		Name:          "Spice Villa",
		Phone:         "919876500000",
		WabaID:        "waba-100",
		PhoneNumberID: "pnid-100",
		Provider:      models.ProviderCloudAPI,
		Currency:      "₹",
		IsActive:      true,
	})

	return &testEnv{
		store:    store,
		gateway:  gateway,
		bot:      bot,
		commerce: commerce,
		flows:    flows,
		sessions: sessions,
		business: business,
	}
}

func (e *testEnv) addProduct(name, category string, price float64, stock *int) *models.Product {
	return e.store.AddProduct(&models.Product{
		BusinessID: e.business.ID,
		Name:       name,
		Category:   category,
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	})
}

func (e *testEnv) session(phone string) *models.ChatSession {
	session, err := e.sessions.GetOrCreate(e.business.ID, phone)
	if err != nil {
		panic(err)
	}
	return session
}

func intPtr(n int) *int { return &n }
