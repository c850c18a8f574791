package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionRenewable(t *testing.T) {
	assert.True(t, SubscriptionRenewable(SubscriptionTrialing))
	assert.True(t, SubscriptionRenewable(SubscriptionActive))
	assert.True(t, SubscriptionRenewable(SubscriptionPastDue))
	assert.False(t, SubscriptionRenewable(SubscriptionPaused))
	assert.False(t, SubscriptionRenewable(SubscriptionCanceled))
	assert.False(t, SubscriptionRenewable(SubscriptionExpired))
	assert.False(t, SubscriptionRenewable("bogus"))
}

func TestSubscriptionTerminal(t *testing.T) {
	assert.True(t, SubscriptionTerminal(SubscriptionCanceled))
	assert.True(t, SubscriptionTerminal(SubscriptionExpired))
	assert.False(t, SubscriptionTerminal(SubscriptionActive))
	assert.False(t, SubscriptionTerminal(SubscriptionPaused))
}
