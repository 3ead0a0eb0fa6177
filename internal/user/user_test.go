package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSubscriptionsAreIndependentCopies(t *testing.T) {
	first := DefaultSubscriptions()
	first[0] = "science"

	assert.Equal(t, []string{"true-random", "brand-new"}, DefaultSubscriptions())
}

func TestProfileRendersEmptySubscriptionsAsArray(t *testing.T) {
	usr := &User{Email: "a@x.com"}

	raw, err := json.Marshal(usr.Profile())
	require.NoError(t, err)

	assert.JSONEq(t, `{"email":"a@x.com","subscriptions":[]}`, string(raw))
}

func TestCloneDoesNotShareSubscriptions(t *testing.T) {
	usr := &User{Email: "a@x.com", Subscriptions: []string{"history"}}

	clone := usr.Clone()
	clone.Subscriptions[0] = "culture"

	assert.Equal(t, []string{"history"}, usr.Subscriptions)
}
