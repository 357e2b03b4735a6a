// cmd/scanner/main.go
//
// The scanner is the periodic engine tick: every interval it runs one scan
// cycle per active campaign and sweeps due direct-channel tasks onto the
// send queue. Each campaign scans independently; an overlapping tick for
// the same campaign+channel is skipped, not queued.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/funnelreach/dispatch-backend/internal/config"
	"github.com/funnelreach/dispatch-backend/internal/db"
	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/logger"
	"github.com/funnelreach/dispatch-backend/internal/queue"
	"github.com/funnelreach/dispatch-backend/internal/repository"
	"github.com/funnelreach/dispatch-backend/internal/service"
)

const directSweepBatch = 200

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

	campaignRepo := &repository.CampaignRepository{DB: conn}
	dispatch := &service.DispatchService{
		CampaignRepo: campaignRepo,
		ResponseRepo: &repository.ResponseRepository{DB: conn},
		CursorRepo:   &repository.CursorRepository{DB: conn},
		DedupRepo:    &repository.DedupRepository{DB: conn},
		TaskRepo:     &repository.TaskRepository{DB: conn},
		Scheduler:    service.NewScheduler(&repository.CounterRepository{DB: conn}),
		Queue:        q,
		Log:          log,
		BatchSize:    cfg.ScanBatchSize,
		Lease:        cfg.ClaimLease,
		MaxAttempts:  cfg.MaxAttempts,
	}

	c := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", cfg.ScanInterval)

	_, err = c.AddFunc(spec, func() {
		campaigns, err := campaignRepo.ListActive()
		if err != nil {
			log.Error().Err(err).Msg("failed to list active campaigns")
			return
		}

		for _, campaign := range campaigns {
			go func(id int) {
				result, err := dispatch.RunScan(id)
				if err != nil {
					if appErrors.IsScanInFlight(err) {
						return
					}
					log.Error().Err(err).Int("campaign_id", id).Msg("scan failed")
					return
				}
				if result.Scheduled > 0 {
					log.Info().
						Int("campaign_id", id).
						Int("scanned", result.Scanned).
						Int("scheduled", result.Scheduled).
						Msg("scan cycle complete")
				}
			}(campaign.ID)
		}

		published, err := dispatch.DispatchDirect(directSweepBatch)
		if err != nil {
			log.Error().Err(err).Msg("direct dispatch sweep failed")
		} else if published > 0 {
			log.Info().Int("published", published).Msg("direct tasks handed to worker")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid cron spec")
	}

	c.Start()
	log.Info().Dur("interval", cfg.ScanInterval).Msg("scanner running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
}
