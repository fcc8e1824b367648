package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/game-missions/internal/service"
)

// refLookup answers the reference checks consumers run before handing
// an event to the pipeline.
type refLookup interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// Consumer drains the three user-action queues and drives the mission
// pipeline.  Processing is at-least-once: retryable failures (version
// conflict exhaustion, reward-lock exhaustion, store outages) are
// Nacked with requeue so the broker redelivers; malformed payloads and
// events referencing unknown users or games are dropped.
type Consumer struct {
	url         string
	users       refLookup
	games       refLookup
	eligibility *service.EligibilityService
	progress    *service.ProgressService
}

// NewConsumer wires a Consumer for the given AMQP URL.
func NewConsumer(url string, users, games refLookup, eligibility *service.EligibilityService, progress *service.ProgressService) *Consumer {
	return &Consumer{url: url, users: users, games: games, eligibility: eligibility, progress: progress}
}

// Start launches one consuming goroutine per action queue.  Each runs
// a reconnect loop with exponential dial backoff and never returns
// while the process lives.
func (c *Consumer) Start() {
	go c.run(UserLoggedInQueue, c.handleUserLoggedIn)
	go c.run(GameLaunchedQueue, c.handleGameLaunched)
	go c.run(GamePlayedQueue, c.handleGamePlayed)
}

func (c *Consumer) run(queueName string, handle func(context.Context, []byte) error) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("consumer[%s]: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(conn, queueName, handle); err != nil {
			log.Printf("consumer[%s]: consume loop ended: %v; reconnecting", queueName, err)
			time.Sleep(2 * time.Second)
		}
		_ = conn.Close()
	}
}

func (c *Consumer) consumeLoop(conn *amqp.Connection, queueName string, handle func(context.Context, []byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("consumer[%s]: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(context.Background(), d.Body); err != nil {
			if isRetryable(err) {
				log.Printf("consumer[%s]: retryable failure, requeueing: %v", queueName, err)
				_ = d.Nack(false, true)
			} else {
				log.Printf("consumer[%s]: dropping message: %v", queueName, err)
				_ = d.Nack(false, false)
			}
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// isRetryable separates failures that redelivery can fix from ones it
// cannot.  Exhausted optimistic retries and lock retries are transient
// contention; everything else reaching here is a store/broker fault,
// also worth redelivering.  Permanent conditions (bad payloads,
// missing references, ineligible users) never surface as errors; the
// handlers drop those directly.
func isRetryable(err error) bool {
	return !errors.Is(err, errDrop)
}

// errDrop marks permanent per-message conditions.
var errDrop = errors.New("drop message")

func dropf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, errDrop)...)
}

func (c *Consumer) handleUserLoggedIn(ctx context.Context, body []byte) error {
	var ev UserLoggedInEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return dropf("unmarshal user-logged-in: %v", err)
	}
	date, err := time.Parse("2006-01-02", ev.LoginDate)
	if err != nil {
		return dropf("invalid login_date %q", ev.LoginDate)
	}
	ok, err := c.checkUser(ctx, ev.UserID)
	if err != nil || !ok {
		return err
	}
	return c.progress.ProcessLogin(ctx, ev.UserID, date)
}

func (c *Consumer) handleGameLaunched(ctx context.Context, body []byte) error {
	var ev GameLaunchedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return dropf("unmarshal game-launched: %v", err)
	}
	ok, err := c.checkUser(ctx, ev.UserID)
	if err != nil || !ok {
		return err
	}
	ok, err = c.checkGame(ctx, ev.GameID)
	if err != nil || !ok {
		return err
	}
	return c.progress.ProcessGameLaunch(ctx, ev.UserID, ev.GameID)
}

func (c *Consumer) handleGamePlayed(ctx context.Context, body []byte) error {
	var ev GamePlayedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return dropf("unmarshal game-played: %v", err)
	}
	if strings.TrimSpace(ev.IdempotencyKey) == "" {
		return dropf("game-played missing idempotency key: user=%d game=%d", ev.UserID, ev.GameID)
	}
	ok, err := c.checkUser(ctx, ev.UserID)
	if err != nil || !ok {
		return err
	}
	ok, err = c.checkGame(ctx, ev.GameID)
	if err != nil || !ok {
		return err
	}
	return c.progress.ProcessGamePlay(ctx, ev.UserID, ev.GameID, ev.Score, ev.IdempotencyKey)
}

// checkUser validates the user reference and the eligibility window.
// A (false, nil) return means the event should be acked and skipped.
func (c *Consumer) checkUser(ctx context.Context, userID uint64) (bool, error) {
	exists, err := c.users.Exists(ctx, userID)
	if err != nil {
		return false, err
	}
	if !exists {
		log.Printf("consumer: skip event for missing user=%d", userID)
		return false, nil
	}
	eligible, err := c.eligibility.IsEligible(ctx, userID)
	if err != nil {
		return false, err
	}
	return eligible, nil
}

func (c *Consumer) checkGame(ctx context.Context, gameID uint64) (bool, error) {
	exists, err := c.games.Exists(ctx, gameID)
	if err != nil {
		return false, err
	}
	if !exists {
		log.Printf("consumer: skip event for missing game=%d", gameID)
		return false, nil
	}
	return true, nil
}
