// cmd/worker/main.go
//
// The worker drains the direct_sends queue: each message carries the id of
// a task already claimed by the dispatcher sweep. The worker delivers it
// through the channel's sender and acks the task. A send failure leaves the
// task claimed; the claim lease expires and the next sweep retries it, up
// to the attempt ceiling.
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/funnelreach/dispatch-backend/internal/config"
	"github.com/funnelreach/dispatch-backend/internal/db"
	"github.com/funnelreach/dispatch-backend/internal/logger"
	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/queue"
	"github.com/funnelreach/dispatch-backend/internal/repository"
	"github.com/funnelreach/dispatch-backend/internal/sender"
	"github.com/funnelreach/dispatch-backend/internal/service"
)

const workerIdentity = "direct-worker"

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	q, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connection failed")
	}
	defer q.Close()

	taskRepo := &repository.TaskRepository{DB: conn}

	senders := sender.Registry{}
	if cfg.SMSProviderURL != "" {
		senders[model.ChannelSMS] = sender.NewHTTPSender(cfg.SMSProviderURL)
	}
	if cfg.EmailProviderURL != "" {
		senders[model.ChannelEmail] = sender.NewHTTPSender(cfg.EmailProviderURL)
	}
	if cfg.TelegramToken != "" {
		tg, err := sender.NewTelegramSender(cfg.TelegramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram sender init failed")
		}
		senders[model.ChannelTelegram] = tg
	}

	msgs, err := q.Consume(service.DirectSendsTopic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register consumer")
	}

	log.Info().Msg("worker running, waiting for messages")

	for d := range msgs {
		var job queue.TaskMessage
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Warn().Err(err).Msg("invalid job payload")
			d.Ack(false)
			continue
		}

		if err := processTask(job.TaskID, taskRepo, senders, log); err != nil {
			log.Error().Err(err).Str("task_id", job.TaskID).Msg("task processing failed")
		}
		// Task-level retries go through the claim lease, not the broker.
		d.Ack(false)
	}
}

func processTask(taskID string, tasks *repository.TaskRepository, senders sender.Registry, log zerolog.Logger) error {
	task, err := tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	if task == nil {
		log.Warn().Str("task_id", taskID).Msg("task not found, dropping")
		return nil
	}
	if task.State != model.TaskClaimed || task.ClaimedBy == nil || *task.ClaimedBy != workerIdentity {
		// Reclaimed or already terminal; someone else owns it now.
		return nil
	}

	snd, ok := senders.For(task.Channel)
	if !ok {
		return tasks.Ack(workerIdentity, task.ID, model.TaskFailed, "no sender configured for channel "+string(task.Channel))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := snd.Send(ctx, task); err != nil {
		// Leave the task claimed; the lease expiry retries it.
		return err
	}

	return tasks.Ack(workerIdentity, task.ID, model.TaskSent, "")
}
