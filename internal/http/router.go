package api

import (
	"log"
	stdhttp "net/http"

	intconfig "tms/internal/config"
	"tms/internal/domain"
	h "tms/internal/http/handlers"
	"tms/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(env intconfig.Env, tokens middleware.TokenParser) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"success": false,
			"error":   "route not found",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staff := middleware.RequireRoles(domain.StaffRoles...)
	student := middleware.RequireRoles(domain.RoleStudent)
	driver := middleware.RequireRoles(domain.RoleDriver)
	driverOrStaff := middleware.RequireRoles(append([]string{domain.RoleDriver}, domain.StaffRoles...)...)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes-table", h.RoutesTable)

		// Auth
		limiter := middleware.RateLimit(middleware.NewIPRateLimiter(env.LoginRatePerMinute))
		auth := api.Group("/auth")
		auth.POST("/login", limiter, h.Login)
		auth.POST("/driver/login", limiter, h.DriverLogin)
		auth.POST("/staff/login", limiter, h.StaffLogin)
		auth.POST("/mock-login", limiter, h.MockLogin)
		auth.GET("/oauth/authorize", h.OAuthAuthorize)
		auth.POST("/oauth/callback", limiter, h.OAuthCallback)

		// Gateway callbacks carry their own signature.
		api.POST("/payments/webhook", h.PaymentWebhook)

		secured := api.Group("", middleware.Auth(tokens))
		secured.GET("/auth/me", h.Me)
		secured.POST("/auth/logout", h.Logout)

		// Directory (parent app)
		directory := secured.Group("/directory", staff)
		directory.GET("/students", h.SearchDirectoryStudents)
		directory.GET("/staff", h.SearchDirectoryStaff)

		// Students
		secured.GET("/students/me", student, h.GetMyStudentProfile)
		secured.PUT("/students/me", student, h.UpdateMyStudentProfile)

		// Enrollments
		enrollments := secured.Group("/enrollments")
		enrollments.POST("", student, h.CreateEnrollment)
		enrollments.GET("/me", student, h.MyEnrollments)
		enrollments.GET("", staff, h.ListEnrollments)
		enrollments.PUT("/:id/approve", staff, h.ApproveEnrollment)
		enrollments.PUT("/:id/reject", staff, h.RejectEnrollment)

		// Routes
		routes := secured.Group("/routes")
		routes.GET("", h.ListRoutes)
		routes.GET("/:id", h.GetRoute)
		routes.POST("", staff, h.CreateRoute)
		routes.PUT("/:id", staff, h.UpdateRoute)
		routes.POST("/:id/stops", staff, h.AddRouteStop)

		// Schedules
		schedules := secured.Group("/schedules")
		schedules.GET("", h.ListSchedules)
		schedules.GET("/availability", h.ScheduleAvailability)
		schedules.POST("", staff, h.CreateSchedule)
		schedules.GET("/:id/bookings", driverOrStaff, h.ScheduleManifest)

		admin := secured.Group("/admin", staff)
		admin.GET("/booking-settings", h.GetBookingSettings)
		admin.PUT("/booking-settings", h.UpdateBookingSettings)

		// Bookings
		bookings := secured.Group("/bookings", student)
		bookings.POST("", h.CreateBooking)
		bookings.GET("/me", h.MyBookings)
		bookings.DELETE("/:id", h.CancelBooking)

		// Payments
		payments := secured.Group("/payments")
		payments.GET("/me", student, h.MyPayments)
		payments.POST("/orders", student, h.CreatePaymentOrder)
		payments.POST("/verify", student, h.VerifyPayment)
		payments.GET("/:id/receipt", h.GetPaymentReceipt)
		payments.GET("/receipts/:id", h.GetReceipt)
		payments.GET("/receipts/:id/pdf", h.GetReceiptPDF)

		// Grievances
		grievances := secured.Group("/grievances")
		grievances.POST("", student, h.CreateGrievance)
		grievances.GET("/me", student, h.MyGrievances)
		grievances.GET("", staff, h.ListGrievances)
		grievances.GET("/:id", h.GetGrievance)
		grievances.POST("/:id/messages", h.AddGrievanceMessage)
		grievances.PUT("/:id/status", staff, h.ChangeGrievanceStatus)

		// Notifications & web push
		notifications := secured.Group("/notifications")
		notifications.GET("/me", h.MyNotifications)
		notifications.PUT("/:id/read", h.MarkNotificationRead)
		notifications.POST("", staff, h.CreateNotification)
		secured.POST("/push/subscriptions", h.SavePushSubscription)
		secured.DELETE("/push/subscriptions", h.DeletePushSubscription)

		// Live location
		location := secured.Group("/location")
		location.POST("/driver", driver, h.UpdateDriverLocation)
		location.POST("/student", student, h.UpdateStudentLocation)
		location.PUT("/sharing", h.SetLocationSharing)
		location.GET("/routes/:id", h.RouteLocation)
		location.GET("/routes/:id/live", h.LiveRouteLocation)
		location.GET("/drivers/:id/history", staff, h.DriverLocationHistory)

		// Drivers & vehicles
		drivers := secured.Group("/drivers")
		drivers.GET("/me", driver, h.MyDriverProfile)
		drivers.GET("/me/schedules", driver, h.MyDriverSchedules)
		drivers.GET("", staff, h.ListDrivers)

		vehicles := secured.Group("/vehicles", staff)
		vehicles.GET("", h.ListVehicles)
		vehicles.POST("", h.CreateVehicle)
		vehicles.PUT("/:id", h.UpdateVehicle)
	}

	h.SetRouter(r)
	return r
}
