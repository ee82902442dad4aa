package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/services"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

type stubGateway struct {
	sent int
}

func (s *stubGateway) SendText(business *models.Business, to, body string) (string, error) {
	s.sent++
	return "wamid.stub", nil
}

func (s *stubGateway) SendButtons(business *models.Business, to, body string, buttons []services.Button) (string, error) {
	s.sent++
	return "wamid.stub", nil
}

func (s *stubGateway) SendList(business *models.Business, to, body, buttonLabel string, sections []services.ListSection) (string, error) {
	s.sent++
	return "wamid.stub", nil
}

func setupApp(t *testing.T) (*fiber.App, *storage.MemoryStore, *stubGateway) {
	t.Helper()

	store := storage.NewMemoryStore()
	gateway := &stubGateway{}
	messenger := services.NewMessenger(store, gateway)
	sessions := services.NewSessionManager(store)
	resolver := services.NewBusinessResolver(store)
	commerce := services.NewCommerceService(store, messenger)
	flows := services.NewFlowService(store, messenger, commerce)
	flows.SetSendDelay(0)
	bot := services.NewBotService(store, messenger, sessions, resolver, flows, commerce)

	store.AddBusiness(&models.Business{
		Name:          "Spice Villa",
		WabaID:        "waba-100",
		PhoneNumberID: "pnid-100",
		Provider:      models.ProviderCloudAPI,
		IsActive:      true,
	})
	store.SetOrderBotConfig(&models.OrderBotConfig{BusinessID: 1, Enabled: true, AcceptCOD: true})

	handler := NewWebhookHandler(bot)
	app := fiber.New()
	app.Get("/webhook/whatsapp", handler.VerifyWebhook)
	app.Post("/webhook/whatsapp", handler.HandleWebhook)
	app.Post("/webhook/twilio", handler.HandleTwilioWebhook)
	return app, store, gateway
}

func TestVerifyWebhookHandshake(t *testing.T) {
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "sekrit")
	app, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=sekrit&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "12345", string(body))
}

func TestVerifyWebhookRejectsBadToken(t *testing.T) {
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "sekrit")
	app, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandleWebhookProcessesMessage(t *testing.T) {
	app, store, gateway := setupApp(t)

	payload := `{
	  "object": "whatsapp_business_account",
	  "entry": [{
	    "id": "waba-100",
	    "changes": [{
	      "field": "messages",
	      "value": {
	        "metadata": {"phone_number_id": "pnid-100"},
	        "messages": [{"from": "919876543210", "id": "wamid.h1", "type": "text", "text": {"body": "hi"}}]
	      }
	    }]
	  }]
	}`

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "EVENT_RECEIVED", string(body))
	assert.Equal(t, 1, gateway.sent)

	// The inbound message was logged for deduplication
	_, err = store.GetMessageByPlatformID(1, "wamid.h1")
	assert.NoError(t, err)
}

func TestHandleWebhookRejectsMalformedBody(t *testing.T) {
	app, _, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleTwilioWebhook(t *testing.T) {
	app, store, _ := setupApp(t)

	business, err := store.GetBusiness(1)
	require.NoError(t, err)
	business.Provider = models.ProviderTwilio
	business.Phone = "919876500000"
	business.PhoneNumberID = "919876500000"
	require.NoError(t, store.UpdateBusiness(business))

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("AccountSid", "AC456")
	form.Set("From", "whatsapp:+919876543210")
	form.Set("To", "whatsapp:+919876500000")
	form.Set("Body", "hi")

	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = store.GetMessageByPlatformID(1, "SM123")
	assert.NoError(t, err)
}
