package main

import (
	"context"
	"net/http"
	"time"

	"freshbread-be/internal/auth"
	"freshbread-be/internal/cart"
	"freshbread-be/internal/catalog"
	"freshbread-be/internal/checkout"
	"freshbread-be/internal/config"
	"freshbread-be/internal/db"
	"freshbread-be/internal/logger"
	"freshbread-be/internal/notify"
	"freshbread-be/internal/order"
	"freshbread-be/internal/payment"
	"freshbread-be/internal/ratelimit"
	"freshbread-be/internal/referral"
	"freshbread-be/internal/review"
	"freshbread-be/internal/transport"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database, err := db.InitDB(cfg)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close()

	ledger := payment.NewLedger(database)
	reviewRepo := review.NewRepository(database)
	adminRepo := notify.NewAdminRepository(database)
	notifier := notify.NewNotifier(notify.LogSender{})

	referralRepo := referral.NewRepository(database)
	rewards := referral.NewEngine(referralRepo, notifier)

	// 3 requests burst, refilling one every 20 seconds; generous for a
	// human clicking through checkout, hostile to scripted retries.
	limiter := ratelimit.New(ratelimit.NewMemoryStore(10*time.Minute), rate.Every(20*time.Second), 3)

	checkoutSvc := checkout.NewService(
		checkout.NewMemoryStore(cfg.SessionTTL),
		checkout.NewRepository(database),
		cart.NewProvider(database),
		reviewRepo,
		ledger,
		referralRepo,
		adminRepo,
		checkout.Config{
			ShippingFee:      cfg.ShippingFee,
			InboxAddress:     cfg.PaymentInboxAddress,
			ResubmitCooldown: cfg.ResubmitCooldown,
			TempIdentityTTL:  cfg.TempIdentityTTL,
		},
	)

	orderSvc := order.NewService(
		order.NewRepository(database, ledger, reviewRepo),
		reviewRepo,
		catalog.NewLookup(database),
		notifier,
		rewards,
		order.NewDeliveryAttemptLimiter(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := payment.NewPoller(payment.EmptyFeed{}, ledger, reviewRepo, adminRepo, cfg.InboxPollEvery)
	go poller.Run(ctx)

	handler := transport.NewHandler(
		cfg,
		auth.NewDirectory(database),
		checkoutSvc,
		orderSvc,
		reviewRepo,
		adminRepo,
	)

	log.Info("server listening", zap.String("port", cfg.AppPort))
	if err := http.ListenAndServe(":"+cfg.AppPort, transport.NewRouter(handler, limiter)); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
