package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/services"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

type countingGateway struct {
	sent int
}

func (g *countingGateway) SendText(business *models.Business, to, body string) (string, error) {
	g.sent++
	return "wamid.job", nil
}

func (g *countingGateway) SendButtons(business *models.Business, to, body string, buttons []services.Button) (string, error) {
	g.sent++
	return "wamid.job", nil
}

func (g *countingGateway) SendList(business *models.Business, to, body, buttonLabel string, sections []services.ListSection) (string, error) {
	g.sent++
	return "wamid.job", nil
}

func TestSendCartRemindersFlagsSessions(t *testing.T) {
	store := storage.NewMemoryStore()
	gateway := &countingGateway{}
	messenger := services.NewMessenger(store, gateway)
	job := NewReminderJob(store, messenger)

	business := store.AddBusiness(&models.Business{Name: "Spice Villa", IsActive: true})

	session := &models.ChatSession{
		BusinessID:    business.ID,
		CustomerPhone: "919876543210",
		Cart:          []models.CartLine{{Name: "Dosa", Quantity: 1}},
		LastActivity:  time.Now().Add(-3 * time.Hour),
	}
	require.NoError(t, store.SaveSession(session))

	job.sendCartReminders()
	assert.Equal(t, 1, gateway.sent)

	// The reminder flag prevents a second nudge
	job.sendCartReminders()
	assert.Equal(t, 1, gateway.sent)

	saved, err := store.GetSession(business.ID, "919876543210")
	require.NoError(t, err)
	assert.True(t, saved.ReminderSent)
}

func TestSweepStaleSessionsResetsState(t *testing.T) {
	store := storage.NewMemoryStore()
	gateway := &countingGateway{}
	messenger := services.NewMessenger(store, gateway)
	job := NewReminderJob(store, messenger)

	business := store.AddBusiness(&models.Business{Name: "Spice Villa", IsActive: true})

	session := &models.ChatSession{
		BusinessID:    business.ID,
		CustomerPhone: "919876543210",
		State:         models.StateConfirming,
		Cart:          []models.CartLine{{Name: "Dosa", Quantity: 1}},
		CartTotal:     80,
		LastActivity:  time.Now().Add(-25 * time.Hour),
	}
	require.NoError(t, store.SaveSession(session))

	job.sweepStaleSessions()

	saved, err := store.GetSession(business.ID, "919876543210")
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, saved.State)
	assert.Empty(t, saved.Cart)
	assert.Zero(t, saved.CartTotal)

	// Sweeping does not message the customer
	assert.Zero(t, gateway.sent)
}
