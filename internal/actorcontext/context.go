// Package actorcontext carries the kitchen and customer identities resolved by the upstream gateway.
package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type kitchenKey struct{}

type customerKey struct{}

// WithKitchenID stores the acting kitchen (owner) ID in the context.
func WithKitchenID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, kitchenKey{}, id)
}

// WithCustomerID stores the acting customer ID in the context.
func WithCustomerID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, customerKey{}, id)
}

func KitchenIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFrom(ctx, kitchenKey{})
}

func CustomerIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFrom(ctx, customerKey{})
}

// ParseID parses a header or path value into a non-zero snowflake ID.
func ParseID(raw string) (snowflake.ID, bool) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

func idFrom(ctx context.Context, key any) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(key).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
