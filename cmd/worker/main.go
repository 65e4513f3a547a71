// cmd/worker/main.go
package main

import (
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/wanjiru-dev/storypress-backend/internal/config"
	"github.com/wanjiru-dev/storypress-backend/internal/db"
	"github.com/wanjiru-dev/storypress-backend/internal/logging"
	"github.com/wanjiru-dev/storypress-backend/internal/mailer"
	"github.com/wanjiru-dev/storypress-backend/internal/newsletter"
	"github.com/wanjiru-dev/storypress-backend/internal/queue"
	"github.com/wanjiru-dev/storypress-backend/internal/repository"
)

// The worker consumes campaign jobs published by the server and drives
// campaign processing out of the request path. One message per campaign;
// acked only after Process returns so broker redelivery covers crashes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Level)

	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the worker")
	}

	database, err := db.Open(cfg.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	campaignRepo := &repository.CampaignRepository{DB: database}
	deliveryRepo := &repository.DeliveryRepository{DB: database}

	sender := mailer.NewClient(cfg.APIKey, cfg.FromEmail)
	orchestrator := newsletter.NewOrchestrator(
		campaignRepo, deliveryRepo, sender,
		cfg.BaseURL, cfg.SiteURL, log,
	)

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to AMQP broker")
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open AMQP channel")
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to declare campaign queue")
	}
	if err := channel.Qos(1, 0, false); err != nil {
		log.Fatal().Err(err).Msg("failed to set channel QoS")
	}

	messages, err := channel.Consume(cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to consume campaign queue")
	}

	log.Info().Str("queue", cfg.QueueName).Msg("worker consuming campaign jobs")

	for msg := range messages {
		var job queue.Job
		if err := json.Unmarshal(msg.Body, &job); err != nil || job.CampaignID < 1 {
			log.Error().Err(err).Str("body", string(msg.Body)).Msg("discarding invalid campaign job")
			msg.Ack(false)
			continue
		}

		log.Info().Int("campaign_id", job.CampaignID).Msg("processing campaign job")
		orchestrator.Process(job.CampaignID)
		msg.Ack(false)
	}

	log.Info().Msg("campaign queue closed, worker exiting")
}
