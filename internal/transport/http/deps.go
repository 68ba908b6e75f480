package http

import (
	"github.com/himalfrost/store-api/internal/application/auth"
	"github.com/himalfrost/store-api/internal/application/order"
	"github.com/himalfrost/store-api/internal/application/ota"
	"github.com/himalfrost/store-api/internal/application/product"
	"github.com/himalfrost/store-api/internal/application/user"
	"github.com/himalfrost/store-api/internal/pkg/ratelimit"
)

// Deps holds the application services and shared limiters the router wires
// into handlers.
type Deps struct {
	Auth     auth.Service
	Users    user.Service
	Products product.Service
	Orders   order.Service
	OTA      ota.Service

	// VerifyLimiter bounds code verification attempts per client IP.
	VerifyLimiter ratelimit.Limiter
	// AuthLimiter bounds the other public sign-in endpoints per client IP.
	AuthLimiter ratelimit.Limiter
}
