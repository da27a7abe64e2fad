package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduct_IsAvailable(t *testing.T) {
	p := &Product{Active: true, Quantity: 5}

	assert.True(t, p.IsAvailable(1))
	assert.True(t, p.IsAvailable(5))
	assert.False(t, p.IsAvailable(6))

	inactive := &Product{Active: false, Quantity: 5}
	assert.False(t, inactive.IsAvailable(1))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleBuyer))
	assert.True(t, IsValidRole(RoleSeller))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("buyer"))
	assert.False(t, IsValidRole("SUPERADMIN"))
}

func TestIsValidPaymentMethod(t *testing.T) {
	assert.True(t, IsValidPaymentMethod(PaymentMethodStripe))
	assert.True(t, IsValidPaymentMethod(PaymentMethodPayPal))
	assert.False(t, IsValidPaymentMethod("BITCOIN"))
}
