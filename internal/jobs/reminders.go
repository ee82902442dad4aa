package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/services"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

const abandonedCartMinutes = 120

// ReminderJob runs the scheduled conversation maintenance tasks.
type ReminderJob struct {
	store     storage.Store
	messenger *services.Messenger
	isRunning bool
}

// NewReminderJob creates a new reminder job scheduler
func NewReminderJob(store storage.Store, messenger *services.Messenger) *ReminderJob {
	return &ReminderJob{
		store:     store,
		messenger: messenger,
	}
}

// Start begins all scheduled jobs
func (r *ReminderJob) Start() {
	if r.isRunning {
		log.Println("Reminder jobs already running")
		return
	}

	r.isRunning = true
	log.Println("Starting scheduled reminder jobs...")

	go r.scheduleCartReminders()
	go r.scheduleStaleSessionSweep()

	log.Println("All reminder jobs started successfully")
}

// Stop halts all scheduled jobs
func (r *ReminderJob) Stop() {
	r.isRunning = false
	log.Println("Stopping scheduled reminder jobs...")
}

// ABANDONED CART REMINDERS - checks every 15 minutes
func (r *ReminderJob) scheduleCartReminders() {
	for r.isRunning {
		time.Sleep(15 * time.Minute)
		if !r.isRunning {
			break
		}
		r.sendCartReminders()
	}
}

// sendCartReminders nudges customers who left a non-empty cart behind. Each
// cart gets at most one reminder.
func (r *ReminderJob) sendCartReminders() {
	sessions, err := r.store.GetAbandonedCartSessions(abandonedCartMinutes)
	if err != nil {
		log.Printf("⚠️  Failed to load abandoned carts: %v", err)
		return
	}

	for _, session := range sessions {
		business, err := r.store.GetBusiness(session.BusinessID)
		if err != nil {
			continue
		}

		body := fmt.Sprintf("🛒 You left %d item(s) in your cart at *%s*!\n\nSend *cart* to pick up where you left off.",
			len(session.Cart), business.Name)
		if err := r.messenger.Text(business, session.CustomerPhone, body); err != nil {
			log.Printf("⚠️  Cart reminder to %s failed: %v", session.CustomerPhone, err)
			continue
		}

		session.ReminderSent = true
		if err := r.store.SaveSession(session); err != nil {
			log.Printf("⚠️  Failed to flag reminder for %s: %v", session.CustomerPhone, err)
		}
	}

	if len(sessions) > 0 {
		log.Printf("📨 Sent %d abandoned cart reminder(s)", len(sessions))
	}
}

// STALE SESSION SWEEP - runs hourly
func (r *ReminderJob) scheduleStaleSessionSweep() {
	for r.isRunning {
		time.Sleep(1 * time.Hour)
		if !r.isRunning {
			break
		}
		r.sweepStaleSessions()
	}
}

// sweepStaleSessions proactively resets sessions that passed the TTL. The
// read path applies the same rule lazily; the sweep keeps CRM views clean.
func (r *ReminderJob) sweepStaleSessions() {
	sessions, err := r.store.GetStaleSessions()
	if err != nil {
		log.Printf("⚠️  Failed to load stale sessions: %v", err)
		return
	}

	swept := 0
	for _, session := range sessions {
		session.Reset()
		session.State = models.StateIdle
		if err := r.store.SaveSession(session); err != nil {
			log.Printf("⚠️  Failed to reset stale session %d: %v", session.ID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		log.Printf("🧹 Reset %d stale session(s)", swept)
	}
}
