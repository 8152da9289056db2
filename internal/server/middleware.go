package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tiffin/internal/actorcontext"
)

// Identity headers are set by the trusted gateway after authentication.
const (
	HeaderKitchen  = "X-Kitchen-ID"
	HeaderCustomer = "X-Customer-ID"
)

// ActorContext copies kitchen and customer identities from headers into the request context.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := strings.TrimSpace(c.GetHeader(HeaderKitchen)); raw != "" {
			id, ok := actorcontext.ParseID(raw)
			if !ok {
				AbortWithError(c, newValidationError("kitchen_id", "invalid_kitchen", "invalid kitchen id"))
				return
			}
			ctx = actorcontext.WithKitchenID(ctx, id)
		}

		if raw := strings.TrimSpace(c.GetHeader(HeaderCustomer)); raw != "" {
			id, ok := actorcontext.ParseID(raw)
			if !ok {
				AbortWithError(c, newValidationError("customer_id", "invalid_customer", "invalid customer id"))
				return
			}
			ctx = actorcontext.WithCustomerID(ctx, id)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func KitchenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorcontext.KitchenIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func CustomerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorcontext.CustomerIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
