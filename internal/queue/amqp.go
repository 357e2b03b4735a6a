package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"
)

// TaskMessage is the wire payload between the dispatcher and the
// direct-send worker.
type TaskMessage struct {
	TaskID string `json:"task_id"`
}

// AMQPQueue publishes to durable RabbitMQ queues named after the topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	if _, err := q.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume declares the durable queue and returns a manual-ack delivery
// channel for the worker.
func (q *AMQPQueue) Consume(topic string) (<-chan amqp.Delivery, error) {
	if _, err := q.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return q.ch.Consume(topic, "", false, false, false, false, nil)
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
