package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"attendtrack/internal/config"
	"attendtrack/internal/mail"
	"attendtrack/internal/queue"
	"attendtrack/internal/store"
)

// Worker consumes queued receipt jobs and delivers them through the mail
// relay. Delivery is best-effort: failures are logged and the job dropped,
// never fed back into the payment flow.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	var mailer mail.Mailer
	if cfg.MailBackend == "console" {
		mailer = mail.ConsoleMailer{}
	} else {
		if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
			log.Fatalf("configuration error: SMTP_EMAIL and SMTP_PASSWORD required for smtp mail backend")
		}
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	}

	var jobs queue.Queue
	if cfg.QueueBackend == "memory" {
		jobs = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		jobs = queue.NewRedisQueue(redisClient.Client, "attendtrack:receipts")
	}

	messages, err := jobs.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for receipt jobs...")
	for msg := range messages {
		if msg.Type != queue.TypeReceipt {
			continue
		}

		var receipt mail.Receipt
		if err := json.Unmarshal(msg.Body, &receipt); err != nil {
			log.Printf("discarding malformed receipt job: %v", err)
			continue
		}

		if err := mailer.SendReceipt(ctx, receipt); err != nil {
			log.Printf("receipt send failed for payment %s: %v", receipt.PaymentID, err)
			continue
		}
		log.Printf("receipt sent to %s for payment %s", receipt.Email, receipt.PaymentID)
	}

	log.Println("worker stopped")
}
