package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// deadLetterSuffix names the queue that collects rejected messages
const deadLetterSuffix = ".dead"

// Topology describes the exchange and queue poll messages travel through.
// When DeadLetterExchange is set, messages rejected without requeue are
// routed to a fanout exchange of that name and kept in <Queue>.dead.
type Topology struct {
	Exchange           string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	Queue              string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	DeadLetterExchange string
}

// DeadLetterQueue returns the queue name for rejected messages, or "" when dead-lettering is off
func (t *Topology) DeadLetterQueue() string {
	if t.DeadLetterExchange == "" {
		return ""
	}
	return t.Queue + deadLetterSuffix
}

// queueArgs returns the arguments the work queue is declared with
func (t *Topology) queueArgs() amqp.Table {
	if t.DeadLetterExchange == "" {
		return nil
	}
	return amqp.Table{"x-dead-letter-exchange": t.DeadLetterExchange}
}

func (t *Topology) declare(ch *amqp.Channel) error {
	exchangeType := t.ExchangeType
	if exchangeType == "" {
		exchangeType = amqp.ExchangeDirect
	}

	if err := ch.ExchangeDeclare(t.Exchange, exchangeType, t.ExchangeDurable, t.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}

	if dlq := t.DeadLetterQueue(); dlq != "" {
		if err := ch.ExchangeDeclare(t.DeadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter exchange %s: %w", t.DeadLetterExchange, err)
		}
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter queue %s: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, "", t.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind dead letter queue %s: %w", dlq, err)
		}
	}

	// redeclaring an existing queue with different arguments fails with PRECONDITION_FAILED
	if _, err := ch.QueueDeclare(t.Queue, t.QueueDurable, t.QueueAutoDelete, t.QueueExclusive, false, t.queueArgs()); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.Queue, err)
	}

	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", t.Queue, err)
	}

	return nil
}
