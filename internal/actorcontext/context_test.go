package actorcontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithKitchenID(context.Background(), snowflake.ID(42))
	ctx = WithCustomerID(ctx, snowflake.ID(7))

	kitchenID, ok := KitchenIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), kitchenID)

	customerID, ok := CustomerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(7), customerID)

	_, ok = CustomerIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	id, ok := ParseID(" 1234 ")
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(1234), id)

	_, ok = ParseID("abc")
	assert.False(t, ok)
	_, ok = ParseID("0")
	assert.False(t, ok)
}
