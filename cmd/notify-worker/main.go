package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/config"
	"github.com/hackgods/treatment-booking/internal/logging"
	"github.com/hackgods/treatment-booking/internal/notify"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	log := logging.New(cfg.Env, cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"env":      cfg.Env,
		"exchange": cfg.NotifyExchange,
		"queue":    cfg.NotifyQueue,
	}).Info("notify-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mailer notify.Mailer
	if cfg.SendGridAPIKey != "" && cfg.EmailSender != "" {
		mailer = notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailSender, cfg.EmailSenderName)
	} else {
		log.Warn("SENDGRID_API_KEY or EMAIL_SENDER not set, emails are only logged")
		mailer = notify.NewLogMailer(log)
	}

	consumer, err := notify.NewConsumer(cfg.AMQPURL, cfg.NotifyExchange, cfg.NotifyQueue,
		[]string{notify.RKBookingCreated, notify.RKBookingPaid}, 10)
	if err != nil {
		log.Fatalf("rabbitmq connection error: %v", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Errorf("error closing rabbitmq: %v", err)
		}
	}()
	log.Info("connected to RabbitMQ")

	deliveries, err := consumer.Deliveries(rootCtx)
	if err != nil {
		log.Fatalf("consume error: %v", err)
	}

	worker := notify.NewWorker(mailer, cfg.EmailSenderName, cfg.NotifyTimeout, log)
	if err := worker.Run(rootCtx, deliveries); err != nil {
		log.Errorf("worker stopped: %v", err)
	}

	log.Info("shutting down notify-worker")
}
