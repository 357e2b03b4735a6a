// internal/service/dispatch_service.go
package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/queue"
	"github.com/funnelreach/dispatch-backend/internal/repository"
)

// DirectSendsTopic is the queue between the dispatcher and the direct-send
// worker.
const DirectSendsTopic = "direct_sends"

// directWorkerIdentity claims direct-channel tasks on behalf of the queue
// worker, through the same lease mechanism the executor uses.
const directWorkerIdentity = "direct-worker"

// DispatchService is the composition root: cursor scan -> extraction ->
// segmentation -> dedup claim -> schedule -> task creation, plus campaign
// lifecycle transitions.
type DispatchService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ResponseRepo repository.ResponseRepositoryInterface
	CursorRepo   repository.CursorRepositoryInterface
	DedupRepo    repository.DedupRepositoryInterface
	TaskRepo     repository.TaskRepositoryInterface
	Scheduler    *Scheduler
	Queue        queue.Queue
	Log          zerolog.Logger

	BatchSize   int
	Lease       time.Duration
	MaxAttempts int

	inflight sync.Map
}

// ScanResult summarizes one scan cycle.
type ScanResult struct {
	CampaignID int `json:"campaign_id"`
	Scanned    int `json:"scanned"`
	Matched    int `json:"matched"`
	Scheduled  int `json:"scheduled"`
}

// RunScan performs one sync cycle for a campaign. Concurrent scans for
// different campaigns are independent; a second scan for the same
// campaign+channel is rejected with ErrScanInFlight. The cursor only
// advances after scheduled work has been handed off, so a crash mid-scan
// re-delivers the window and the dedup ledger absorbs the duplicates.
func (s *DispatchService) RunScan(campaignID int) (*ScanResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.StatusActive {
		return nil, appErrors.NewValidation("campaign %d is not active", campaignID)
	}

	key := scanKey(campaign.ID, campaign.Channel)
	if _, running := s.inflight.LoadOrStore(key, struct{}{}); running {
		return nil, &appErrors.ErrScanInFlight{CampaignID: campaign.ID, Channel: string(campaign.Channel)}
	}
	defer s.inflight.Delete(key)

	cursorTS, cursorID, err := s.CursorRepo.Get(campaign.ID, campaign.Channel)
	if err != nil {
		return nil, err
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = 500
	}
	responses, err := s.ResponseRepo.ListSince(campaign.FunnelID, cursorTS, cursorID, batch)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{CampaignID: campaign.ID}
	maxSeenTS, maxSeenID := cursorTS, cursorID

	for i := range responses {
		resp := &responses[i]
		result.Scanned++
		// Rows arrive ordered by (submitted_at, id); the last one is the
		// new checkpoint.
		maxSeenTS, maxSeenID = resp.SubmittedAt, resp.ID

		lead, ok := ExtractLead(resp)
		if !ok {
			continue
		}

		segment, ok := SelectSegment(lead, campaign)
		if !ok {
			continue
		}

		handle := lead.HandleFor(campaign.Channel)
		if handle == "" {
			continue
		}
		result.Matched++

		claimed, err := s.DedupRepo.TryClaim(campaign.ID, campaign.Channel, handle)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}

		scheduledAt, err := s.Scheduler.Schedule(campaign)
		if err != nil {
			return nil, err
		}

		task := &model.DispatchTask{
			CampaignID:      campaign.ID,
			Channel:         campaign.Channel,
			ContactHandle:   handle,
			RenderedMessage: RenderForLead(segment.Template, lead),
			State:           model.TaskPending,
			ScheduledAt:     scheduledAt,
		}
		if err := s.TaskRepo.Create(task); err != nil {
			return nil, err
		}
		result.Scheduled++

		s.Log.Info().
			Int("campaign_id", campaign.ID).
			Str("channel", string(campaign.Channel)).
			Str("task_id", task.ID).
			Time("scheduled_at", scheduledAt).
			Msg("dispatch task scheduled")
	}

	if maxSeenTS.After(cursorTS) || (maxSeenTS.Equal(cursorTS) && maxSeenID > cursorID) {
		if err := s.CursorRepo.Advance(campaign.ID, campaign.Channel, maxSeenTS, maxSeenID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// DispatchDirect claims due tasks on server-reachable channels and hands
// them to the direct-send worker over the queue. Claims use the same lease
// as the executor bridge, so a crashed worker's tasks become reclaimable.
func (s *DispatchService) DispatchDirect(maxItems int) (int, error) {
	tasks, err := s.TaskRepo.Pull(directWorkerIdentity, model.DirectChannels, maxItems, time.Now(), s.Lease, s.MaxAttempts)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, t := range tasks {
		if err := s.Queue.Publish(DirectSendsTopic, queue.TaskMessage{TaskID: t.ID}); err != nil {
			// The claim lease will make this task reclaimable.
			s.Log.Error().Err(err).Str("task_id", t.ID).Msg("failed to publish direct send")
			continue
		}
		published++
	}
	return published, nil
}

func scanKey(campaignID int, channel model.Channel) string {
	return string(channel) + "|" + strconv.Itoa(campaignID)
}
