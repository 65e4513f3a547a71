// Package queue schedules background campaign processing. The default
// implementation runs in-process; the AMQP one hands jobs to cmd/worker.
package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"
)

// Job is one unit of campaign work on the wire.
type Job struct {
	CampaignID int `json:"campaign_id"`
}

// GoroutineQueue dispatches processing on a fresh goroutine in the same
// process. The orchestrator's in-flight set handles duplicate dispatch.
type GoroutineQueue struct {
	Process func(campaignID int)
}

func (q *GoroutineQueue) Publish(campaignID int) error {
	go q.Process(campaignID)
	return nil
}

// AMQPQueue publishes jobs to a durable RabbitMQ queue consumed by the
// worker binary. Use it when sending is split out of the API process;
// exactly one worker must consume the queue or duplicate sends can occur.
type AMQPQueue struct {
	channel *amqp.Channel
	name    string
}

func NewAMQPQueue(conn *amqp.Connection, name string) (*AMQPQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		return nil, err
	}

	return &AMQPQueue{channel: ch, name: name}, nil
}

func (q *AMQPQueue) Publish(campaignID int) error {
	body, err := json.Marshal(Job{CampaignID: campaignID})
	if err != nil {
		return err
	}

	return q.channel.Publish(
		"",     // default exchange
		q.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *AMQPQueue) Close() error {
	return q.channel.Close()
}
