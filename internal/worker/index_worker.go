package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docchat/internal/app"
	"docchat/internal/platform/rabbitmq"
)

// IndexWorker consumes indexing jobs and upserts document vectors. Embedding
// failures requeue the job once; a job that fails on redelivery is dropped
// with a log line so a poisoned payload cannot spin the queue.
type IndexWorker struct {
	conn      *amqp.Connection
	index     *app.VectorIndex
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIndexWorker(conn *amqp.Connection, index *app.VectorIndex, queueName string) *IndexWorker {
	return &IndexWorker{
		conn:      conn,
		index:     index,
		queueName: queueName,
	}
}

func (w *IndexWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IndexWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job rabbitmq.IndexJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode index job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.index.Upsert(ctx, job.DocumentID, job.Text); err != nil {
		if d.Redelivered {
			log.Printf("worker index document %d failed twice, dropping: %v", job.DocumentID, err)
			_ = d.Nack(false, false)
			return
		}
		log.Printf("worker index document %d failed, requeueing: %v", job.DocumentID, err)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

func (w *IndexWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
