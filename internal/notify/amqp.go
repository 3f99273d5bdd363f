package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

// AMQPNotifier publishes EventAssigned envelopes to a topic exchange with
// publisher confirms.
type AMQPNotifier struct {
	conn       *amqp.Connection
	exchange   string
	routingKey string

	mu sync.Mutex
	ch channel

	now func() time.Time
}

// DialAMQP connects to the broker, declares the durable topic exchange and
// puts a channel into confirm mode.
func DialAMQP(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	log.Info().Str("exchange", exchange).Str("routing_key", routingKey).Msg("amqp notifier connected")
	return &AMQPNotifier{conn: conn, exchange: exchange, routingKey: routingKey, ch: ch, now: time.Now}, nil
}

// NotifyAssigned publishes the event and waits for the broker's confirm or
// ctx expiry, whichever comes first.
func (n *AMQPNotifier) NotifyAssigned(ctx context.Context, lawyerUserID, caseSummary, caseID string) error {
	env := NewAssignedEnvelope(correlationID(ctx), Assigned{
		LawyerUserID: lawyerUserID,
		CaseID:       caseID,
		CaseSummary:  caseSummary,
	}, n.now())

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil {
		return errors.New("amqp notifier closed")
	}

	conf, err := n.ch.PublishWithDeferredConfirmWithContext(ctx, n.exchange, n.routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: env.Meta.CorrelationID,
		Type:          env.Meta.Type,
		AppId:         Producer,
		Timestamp:     env.Meta.Time,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	if conf == nil {
		return nil
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("amqp confirm: %w", err)
	}
	if !acked {
		return errors.New("amqp publish nacked by broker")
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var errs []error
	if n.ch != nil {
		errs = append(errs, n.ch.Close())
		n.ch = nil
	}
	if n.conn != nil {
		errs = append(errs, n.conn.Close())
		n.conn = nil
	}
	return errors.Join(errs...)
}

// correlationID links the event to the active trace when there is one.
func correlationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
