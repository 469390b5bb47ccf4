package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// IndexJob is the queue payload for one document-indexing request.
type IndexJob struct {
	DocumentID uint   `json:"document_id"`
	Text       string `json:"text"`
}

// IndexPublisher enqueues durable indexing jobs for the index worker.
type IndexPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewIndexPublisher(conn *amqp.Connection, queueName string) *IndexPublisher {
	return &IndexPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *IndexPublisher) PublishIndexJob(ctx context.Context, documentID uint, text string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(IndexJob{DocumentID: documentID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal index job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish index job failed: %w", err)
	}
	return nil
}
