package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// AMQPQueue publishes to and consumes from durable RabbitMQ queues named
// after the topic. Payloads travel as JSON; subscribers receive the raw body.
type AMQPQueue struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func declare(ch *amqp.Channel, topic string) error {
	_, err := ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := declare(q.ch, topic); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe consumes topic on its own channel. A failed delivery is requeued
// once and dropped if it fails again.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := declare(ch, topic); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return err
	}

	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		defer ch.Close()
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				logger.Warn("delivery failed", zap.String("topic", topic), zap.Bool("redelivered", d.Redelivered), zap.Error(err))
				if d.Redelivered {
					d.Ack(false)
				} else {
					d.Nack(false, true)
				}
				continue
			}
			d.Ack(false)
		}
		logger.Info("consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

// NotifyClose reports connection loss.
func (q *AMQPQueue) NotifyClose() <-chan *amqp.Error {
	return q.conn.NotifyClose(make(chan *amqp.Error, 1))
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ch.Close()
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
