package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/billing"
	"attendtrack/internal/config"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/queue"
	"attendtrack/internal/razorpay"
	"attendtrack/internal/store"
	"attendtrack/internal/student"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("configuration error: %v", err)
		}
	} else if err := cfg.Validate(); err != nil {
		// Dev keeps running so the data endpoints stay usable without
		// payment/mail credentials, but says so loudly.
		log.Printf("WARNING: %v (payment and receipt mail will fail)", err)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var jobs queue.Queue
	if cfg.QueueBackend == "memory" {
		jobs = queue.NewInMemory(64)
	} else {
		jobs = queue.NewRedisQueue(redisClient.Client, "attendtrack:receipts")
	}

	studentRepo := student.NewRepository(db.Client)
	attRepo := attendance.NewRepository(db.Client)

	a := &api{
		cfg:         cfg,
		studentRepo: studentRepo,
		students:    student.NewService(studentRepo),
		att:         attendance.NewService(attRepo),
		billing: billing.NewService(
			studentRepo,
			razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
			jobs,
			cfg.PaymentAmount,
			cfg.PaymentCurrency,
		),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/signup", a.signup)
	r.POST("/v1/auth/login", a.login)
	r.POST("/v1/auth/refresh", a.refresh)
	r.POST("/v1/auth/logout", a.logout)

	// Session required, payment wall not yet: profile and the payment flow
	// itself must stay reachable for unentitled users.
	sessionGroup := r.Group("/v1", auth.RequireSession(cfg.JWTSigningKey, cfg.JWTIssuer))
	sessionGroup.GET("/me", a.profile)
	sessionGroup.PUT("/me", a.updateProfile)
	sessionGroup.POST("/me/reset", a.resetData)
	sessionGroup.POST("/payment/order", a.createOrder)
	sessionGroup.POST("/payment/finalize", a.finalizePayment)

	// Dashboard routes sit behind the payment wall; an unentitled request is
	// rejected before any data query runs.
	paidGroup := sessionGroup.Group("", a.requireEntitlement())
	paidGroup.GET("/dashboard", a.dashboard)
	paidGroup.GET("/subjects", a.listSubjects)
	paidGroup.POST("/subjects", a.createSubject)
	paidGroup.PUT("/subjects/:id", a.updateSubject)
	paidGroup.DELETE("/subjects/:id", a.deleteSubject)
	paidGroup.POST("/subjects/:id/mark", a.markAttendance)
	paidGroup.GET("/calendar", a.calendar)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
