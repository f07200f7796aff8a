package handlers

import (
	"sync"
	"time"

	"tms/internal/clients/gateway"
	"tms/internal/clients/parentapp"
	"tms/internal/http/middleware"
	"tms/internal/push"
	"tms/internal/realtime"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

// Options carries the collaborators handlers cannot take from the shared DB.
type Options struct {
	Tokens            services.TokenIssuer
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	AllowMockLogin    bool
	ParentApp         *parentapp.Client
	Gateway           *gateway.Client
	Push              push.Sender
	Hub               *realtime.Hub
}

var (
	optsMu sync.RWMutex
	opts   Options
)

// Configure installs the handler dependencies; call before serving.
func Configure(o Options) {
	optsMu.Lock()
	defer optsMu.Unlock()
	opts = o
}

func current() Options {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts
}

func authService(c *gin.Context) services.AuthService {
	o := current()
	return services.AuthService{
		Tokens:            o.Tokens,
		MaxFailedAttempts: o.MaxFailedAttempts,
		LockoutDuration:   o.LockoutDuration,
		AllowMockLogin:    o.AllowMockLogin,
		RequestID:         middleware.GetRequestID(c),
	}
}

func oauthService(c *gin.Context) services.OAuthService {
	o := current()
	return services.OAuthService{Client: o.ParentApp, Tokens: o.Tokens, RequestID: middleware.GetRequestID(c)}
}

func notificationService(c *gin.Context) services.NotificationService {
	return services.NotificationService{Sender: current().Push, RequestID: middleware.GetRequestID(c)}
}

func enrollmentService(c *gin.Context) services.EnrollmentService {
	return services.EnrollmentService{Notifications: notificationService(c), RequestID: middleware.GetRequestID(c)}
}

func bookingService(c *gin.Context) services.BookingService {
	return services.BookingService{RequestID: middleware.GetRequestID(c)}
}

func paymentService(c *gin.Context) services.PaymentService {
	return services.PaymentService{
		Gateway:       current().Gateway,
		Notifications: notificationService(c),
		RequestID:     middleware.GetRequestID(c),
	}
}

func grievanceService(c *gin.Context) services.GrievanceService {
	return services.GrievanceService{Notifications: notificationService(c), RequestID: middleware.GetRequestID(c)}
}

func locationService(c *gin.Context) services.LocationService {
	return services.LocationService{Hub: current().Hub, RequestID: middleware.GetRequestID(c)}
}
