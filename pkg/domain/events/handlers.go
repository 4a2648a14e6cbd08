package events

import (
	"context"
	"log/slog"
)

// LoggingHandler is a catch-all handler that logs every event at debug level.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a new LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

// Handle logs the event details.
func (h *LoggingHandler) Handle(_ context.Context, event DomainEvent) error {
	h.logger.Debug("domain event",
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"aggregate_type", event.AggregateType(),
		"occurred_at", event.OccurredAt())
	return nil
}

// Registration returns the HandlerRegistration for this handler.
func (h *LoggingHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "LoggingHandler",
		Handler:    h.Handle,
		EventTypes: []string{"*"},
	}
}

// MilestoneHandler logs the journey milestones a farmer cares about at info level.
type MilestoneHandler struct {
	logger *slog.Logger
}

// NewMilestoneHandler creates a new MilestoneHandler.
func NewMilestoneHandler(logger *slog.Logger) *MilestoneHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MilestoneHandler{logger: logger}
}

// Handle logs verifications, rejections, completions and resets.
func (h *MilestoneHandler) Handle(ctx context.Context, event DomainEvent) error {
	switch e := event.(type) {
	case *StepVerified:
		h.logger.Info("step verified",
			"journey_id", e.AggregateID(),
			"step_id", e.StepID,
			"points", e.Points,
			"eco_points", e.EcoPoints)
	case *StepRejected:
		level := slog.LevelInfo
		if e.SensorFailure {
			level = slog.LevelWarn
		}
		h.logger.Log(ctx, level, "step rejected",
			"journey_id", e.AggregateID(),
			"step_id", e.StepID,
			"sensor_failure", e.SensorFailure)
	case *JourneyCompleted:
		h.logger.Info("journey completed",
			"journey_id", e.AggregateID(),
			"crop_id", e.CropID)
	case *JourneyReset:
		h.logger.Info("journey reset",
			"journey_id", e.AggregateID(),
			"run", e.Run)
	}
	return nil
}

// Registration returns the HandlerRegistration for this handler.
func (h *MilestoneHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:    "MilestoneHandler",
		Handler: h.Handle,
		EventTypes: []string{
			EventTypeStepVerified,
			EventTypeStepRejected,
			EventTypeJourneyCompleted,
			EventTypeJourneyReset,
		},
	}
}

// RecordingHandler appends every event to an EventStore.
type RecordingHandler struct {
	store  EventStore
	logger *slog.Logger
}

// NewRecordingHandler creates a new RecordingHandler.
func NewRecordingHandler(store EventStore, logger *slog.Logger) *RecordingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingHandler{store: store, logger: logger}
}

// Handle appends the event's envelope to the store.
func (h *RecordingHandler) Handle(_ context.Context, event DomainEvent) error {
	if h.store == nil {
		return nil
	}
	if err := h.store.Append(event.Envelope()); err != nil {
		h.logger.Error("failed to record event",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"error", err)
		return err
	}
	return nil
}

// Registration returns the HandlerRegistration for this handler.
func (h *RecordingHandler) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "RecordingHandler",
		Handler:    h.Handle,
		EventTypes: []string{"*"},
	}
}
