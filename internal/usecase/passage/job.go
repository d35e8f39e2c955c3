package passage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Topic carries batch commands of running jobs.
const Topic = "passages.batch"

// Bus is the publish/subscribe side of the job topic.
type Bus interface {
	message.Publisher
	message.Subscriber
}

// NewBus returns an in-process bus.
func NewBus(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger)
}

// Command asks a subscriber to run one batch.
type Command struct {
	RunID     string `json:"run_id"`
	File      string `json:"file"`
	BatchSize int    `json:"batch_size"`
	Offset    int    `json:"offset"`
}

// Report sums up a whole job.
type Report struct {
	RunID      string `json:"run_id"`
	Batches    int    `json:"batches"`
	Processed  int    `json:"processed"`
	Indexed    int    `json:"indexed"`
	Errors     int    `json:"errors"`
	NextOffset int    `json:"next_offset"`
	TotalLines int    `json:"total_lines"`
	Complete   bool   `json:"complete"`
}

// Run indexes file from line start to the end. Each finished batch publishes
// the command for the next one and advances the checkpoint. An embedding
// failure stops the job; the checkpoint then points at the failed batch.
func (s *Service) Run(ctx context.Context, file string, batchSize, start int) (Report, error) {
	if s.bus == nil {
		return Report{}, fmt.Errorf("%w: no job bus configured", domain.ErrServiceUnavailable)
	}
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs, err := s.bus.Subscribe(ctx, Topic)
	if err != nil {
		return Report{}, fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	rep := Report{RunID: uuid.NewString(), NextOffset: start}
	log := s.logger.With(zap.String("run_id", rep.RunID), zap.String("file", file))

	if s.checkpoint != nil {
		if err := s.checkpoint.Start(rep.RunID, file, start); err != nil {
			return rep, fmt.Errorf("start checkpoint: %w", err)
		}
	}
	log.Info("Passage job started", zap.Int("offset", start), zap.Int("batch_size", batchSize))

	next := Command{RunID: rep.RunID, File: file, BatchSize: batchSize, Offset: start}
	if err := s.publish(next); err != nil {
		return rep, err
	}

	for {
		var msg *message.Message
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return rep, fmt.Errorf("subscription %s closed", Topic)
			}
			msg = m
		}

		var cmd Command
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			log.Warn("Dropping malformed batch command", zap.Error(err))
			msg.Ack()
			continue
		}
		msg.Ack()
		// other jobs share the topic
		if cmd.RunID != rep.RunID {
			continue
		}

		p, err := s.RunBatch(ctx, cmd.File, cmd.BatchSize, cmd.Offset)
		if err != nil {
			return rep, fmt.Errorf("batch at offset %d: %w", cmd.Offset, err)
		}

		rep.Batches++
		rep.Processed += p.Processed
		rep.Indexed += p.Indexed
		rep.Errors += p.Errors
		rep.NextOffset = p.NextOffset
		rep.TotalLines = p.TotalLines
		rep.Complete = p.Complete

		if s.checkpoint != nil {
			if err := s.checkpoint.Advance(p.NextOffset, p.Processed, p.Indexed, p.Errors, p.Complete); err != nil {
				return rep, fmt.Errorf("advance checkpoint: %w", err)
			}
		}
		log.Info("Passage batch done",
			zap.Int("offset", cmd.Offset),
			zap.Int("processed", p.Processed),
			zap.Int("indexed", p.Indexed),
			zap.Int("errors", p.Errors),
			zap.Int("total_lines", p.TotalLines),
		)

		if p.Complete {
			log.Info("Passage job complete",
				zap.Int("batches", rep.Batches), zap.Int("indexed", rep.Indexed), zap.Int("errors", rep.Errors))
			return rep, nil
		}

		next.Offset = p.NextOffset
		if err := s.publish(next); err != nil {
			return rep, err
		}
	}
}

func (s *Service) publish(cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal batch command: %w", err)
	}
	if err := s.bus.Publish(Topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("publish %s: %w", Topic, err)
	}
	return nil
}
