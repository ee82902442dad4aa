package services

import (
	"errors"
	"log"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

// BusinessResolver maps a channel id to the tenant that owns it.
type BusinessResolver struct {
	store storage.Store
}

// NewBusinessResolver creates a resolver over the given store.
func NewBusinessResolver(store storage.Store) *BusinessResolver {
	return &BusinessResolver{store: store}
}

// Resolve looks the tenant up by phone-number-id first (exact, most
// specific). On a miss it falls back to the account id and self-heals by
// persisting the discovered channel id so future lookups are exact. Returns
// (nil, nil) when neither matches: foreign or misconfigured senders are
// expected, not errors.
func (r *BusinessResolver) Resolve(channelID, accountID string) (*models.Business, error) {
	business, err := r.store.GetBusinessByPhoneNumberID(channelID)
	if err == nil {
		return business, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	business, err = r.store.GetBusinessByWabaID(accountID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if channelID != "" && business.PhoneNumberID != channelID {
		business.PhoneNumberID = channelID
		if err := r.store.UpdateBusiness(business); err != nil {
			// Backfill is an optimization; resolution still succeeded.
			log.Printf("⚠️  Failed to backfill phone number id for business %d: %v", business.ID, err)
		} else {
			log.Printf("✅ Backfilled phone number id %s for business %d", channelID, business.ID)
		}
	}

	return business, nil
}
