package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends domain events to RabbitMQ.  Action-event publishes
// run in confirm mode and wait for the broker acknowledgment: intake
// handlers treat an unconfirmed publish as a failed write and report
// it to the HTTP caller.  The reward-granted publish goes through the
// same path but its caller swallows the error.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishUserLoggedIn publishes to the user.logged-in queue, confirmed.
func (p *Publisher) PublishUserLoggedIn(ctx context.Context, ev UserLoggedInEvent) error {
	return p.publish(ctx, UserLoggedInQueue, ev)
}

// PublishGameLaunched publishes to the game.launched queue, confirmed.
func (p *Publisher) PublishGameLaunched(ctx context.Context, ev GameLaunchedEvent) error {
	return p.publish(ctx, GameLaunchedQueue, ev)
}

// PublishGamePlayed publishes to the game.played queue, confirmed.
func (p *Publisher) PublishGamePlayed(ctx context.Context, ev GamePlayedEvent) error {
	return p.publish(ctx, GamePlayedQueue, ev)
}

// NotifyRewardGranted publishes to the reward.granted queue,
// confirmed.  The reward coordinator logs and ignores failures here.
func (p *Publisher) NotifyRewardGranted(ctx context.Context, userID uint64, points int) error {
	return p.publish(ctx, RewardGrantedQueue, RewardGrantedEvent{
		UserID:     userID,
		Points:     points,
		OccurredAt: time.Now().UnixMilli(),
	})
}

// publish declares the durable queue (idempotent), sends one
// persistent JSON message on the default exchange and waits for the
// publisher confirm.
func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Confirm(false); err != nil {
		log.Printf("rabbitmq: confirm mode failed: %v", err)
		return err
	}

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	)
	if err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("rabbitmq: publish to %s not confirmed", queueName)
	}
	return nil
}
