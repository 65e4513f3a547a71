// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/streadway/amqp"

	"github.com/wanjiru-dev/storypress-backend/internal/config"
	"github.com/wanjiru-dev/storypress-backend/internal/controller"
	"github.com/wanjiru-dev/storypress-backend/internal/db"
	"github.com/wanjiru-dev/storypress-backend/internal/logging"
	"github.com/wanjiru-dev/storypress-backend/internal/mailer"
	"github.com/wanjiru-dev/storypress-backend/internal/newsletter"
	"github.com/wanjiru-dev/storypress-backend/internal/queue"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
	"github.com/wanjiru-dev/storypress-backend/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Level)

	database, err := db.Open(cfg.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(cfg.URL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	campaignRepo := &repository.CampaignRepository{DB: database}
	deliveryRepo := &repository.DeliveryRepository{DB: database}
	subscriberRepo := &repository.SubscriberRepository{DB: database}
	eventRepo := &repository.EventRepository{DB: database}
	articleRepo := &repository.ArticleRepository{DB: database}

	sender := mailer.NewClient(cfg.APIKey, cfg.FromEmail)

	orchestrator := newsletter.NewOrchestrator(
		campaignRepo, deliveryRepo, sender,
		cfg.BaseURL, cfg.SiteURL, log,
	)

	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to AMQP broker")
		}
		defer conn.Close()

		q, err := queue.NewAMQPQueue(conn, cfg.QueueName)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to declare campaign queue")
		}
		defer q.Close()
		orchestrator.Queue = q
		log.Info().Str("queue", cfg.QueueName).Msg("campaign dispatch via AMQP")
	}

	processor := &webhook.Processor{
		Deliveries: deliveryRepo,
		Events:     eventRepo,
		Recomputer: orchestrator,
		Log:        log,
	}

	adminController := &controller.AdminNewsletterController{
		Campaigns:    campaignRepo,
		Deliveries:   deliveryRepo,
		Subscribers:  subscriberRepo,
		Articles:     articleRepo,
		Orchestrator: orchestrator,
		Log:          log,
	}
	publicController := &controller.NewsletterController{
		Subscribers:   subscriberRepo,
		Mailer:        sender,
		Processor:     processor,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       cfg.BaseURL,
		Log:           log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/newsletter", func(r chi.Router) {
		r.Post("/subscribe", publicController.Subscribe)
		r.Get("/verify/{token}", publicController.Verify)
		r.Get("/unsubscribe/{token}", publicController.Unsubscribe)
		r.Post("/webhooks/resend", publicController.ResendWebhook)
	})

	r.Route("/api/admin/newsletter", func(r chi.Router) {
		r.Get("/summary", adminController.Summary)
		r.Get("/campaigns", adminController.ListCampaigns)
		r.Post("/campaigns", adminController.CreateCampaign)
		r.Get("/campaigns/{id}/deliveries", adminController.ListDeliveries)
	})

	// Pick up campaigns that were mid-flight when the previous process died.
	if err := orchestrator.ResumePendingCampaigns(); err != nil {
		log.Error().Err(err).Msg("failed to resume pending campaigns")
	}

	log.Info().Str("addr", cfg.Addr).Msg("server listening")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
