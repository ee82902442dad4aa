package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "919876543210", NormalizePhone("whatsapp:+91 98765-43210"))
	assert.Equal(t, "919876543210", NormalizePhone("919876543210"))
	assert.Equal(t, "", NormalizePhone("no digits"))
}

func TestPhoneVariants(t *testing.T) {
	variants := PhoneVariants("919876543210")
	assert.Equal(t, []string{"919876543210", "+919876543210", "9876543210"}, variants)

	// Raw formatted input keeps the original as a variant too
	variants = PhoneVariants("+91 98765 43210")
	assert.Contains(t, variants, "+91 98765 43210")
	assert.Contains(t, variants, "919876543210")
	assert.Contains(t, variants, "9876543210")
}

func TestExtractOrderID(t *testing.T) {
	assert.Equal(t, "ORD24083115420042", ExtractOrderID("where is ord24083115420042 please"))
	assert.Equal(t, "", ExtractOrderID("ORD123"))
	assert.Equal(t, "", ExtractOrderID("no order here"))
}

func TestLooksLikeProductID(t *testing.T) {
	assert.True(t, LooksLikeProductID("550e8400-e29b-41d4-a716-446655440000"))
	assert.True(t, LooksLikeProductID("prd0000000000000042"))
	assert.False(t, LooksLikeProductID("view_cart"))
	assert.False(t, LooksLikeProductID("payment_online"))
	assert.False(t, LooksLikeProductID("short"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "नमस्", Truncate("नमस्ते", 4))
}
