package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tms/internal/clients/gateway"
	"tms/internal/clients/parentapp"
	intconfig "tms/internal/config"
	intdb "tms/internal/db"
	router "tms/internal/http"
	"tms/internal/http/handlers"
	"tms/internal/http/middleware"
	"tms/internal/jobs"
	"tms/internal/push"
	"tms/internal/realtime"
	"tms/internal/report"
	"tms/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	report.SetupSentry(env.SentryDSN, env.AppEnv)
	defer report.FlushSentry()

	db := intconfig.ConnectDB(env.DBDSN)
	defer intconfig.CloseDB()

	if env.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := intdb.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatalf("schema migration failed: %v", err)
		}
		cancel()
	}

	tokens := services.TokenIssuer{Secret: []byte(env.JWTSecret), TTL: env.JWTTTL}
	gw := gateway.New(gateway.Config{
		BaseURL:       env.GatewayURL,
		KeyID:         env.GatewayKeyID,
		KeySecret:     env.GatewayKeySecret,
		WebhookSecret: env.GatewayWebhookSecret,
	})
	hub := realtime.NewHub(middleware.OriginChecker(env.CORSAllowedOrigins))

	opts := handlers.Options{
		Tokens:            tokens,
		MaxFailedAttempts: env.AuthMaxFailedAttempts,
		LockoutDuration:   env.AuthLockoutDuration,
		AllowMockLogin:    env.AuthAllowMockLogin,
		ParentApp: parentapp.New(parentapp.Config{
			BaseURL:     env.ParentAppURL,
			AppID:       env.ParentAppAppID,
			APIKey:      env.ParentAppAPIKey,
			RedirectURI: env.ParentAppRedirectURI,
		}),
		Gateway: gw,
		Hub:     hub,
	}
	// A nil *VAPIDSender must not become a non-nil interface.
	if sender := push.NewVAPIDSender(push.Config{
		PublicKey:  env.VAPIDPublicKey,
		PrivateKey: env.VAPIDPrivateKey,
		Subject:    env.VAPIDSubject,
	}); sender != nil {
		opts.Push = sender
	} else {
		log.Println("web push disabled: VAPID keys not configured")
	}
	handlers.Configure(opts)

	sweeper, err := jobs.New("@every 15m", services.PaymentService{Gateway: gw, RequestID: "payment-sweeper"}, env.PaymentPendingTTL)
	if err != nil {
		log.Fatalf("failed to schedule jobs: %v", err)
	}
	sweeper.Start()

	r := router.NewRouter(env, tokens)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           middleware.Sentry(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweeper.Stop(ctx)
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped cleanly.")
}
