package config_handler

import (
	"context"

	"wacrm/internal/logger"
	"wacrm/pkg/models"
	"wacrm/pkg/retry"
)

// SegmentReloader refreshes the in-memory set of compiled segments.
type SegmentReloader interface {
	ReloadSegments(ctx context.Context) error
}

type Handler struct {
	expectedEventType string
	reloader          SegmentReloader
	logger            logger.Logger
}

func NewHandler(expectedEventType string, reloader SegmentReloader, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType: expectedEventType,
		reloader:          reloader,
		logger:            log,
	}
}

// HandleConfigUpdateEvent reloads segments when a matching config event
// arrives. Events of other types are acknowledged and ignored.
func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.Envelope) error {
	eventType := envelope.Type
	if payloadType, ok := envelope.Payload["event_type"].(string); ok && payloadType != "" {
		eventType = payloadType
	}
	if eventType == "" {
		h.logger.WarnwCtx(ctx, "Config event missing event_type", "id", envelope.ID)
		return nil
	}
	if eventType != h.expectedEventType {
		return nil
	}

	var event models.SegmentConfigEvent
	if err := envelope.DecodePayload(&event); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to decode config event", "error", err, "id", envelope.ID)
		return retry.NewFatalError(err)
	}

	h.logger.InfowCtx(ctx, "Received segment config event",
		"action", event.Action,
		"segment_id", event.SegmentID,
		"changed_by", event.ChangedBy,
	)

	if err := h.reloader.ReloadSegments(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload segments after config update", "error", err)
		return err
	}
	h.logger.InfowCtx(ctx, "Segments reloaded after config update", "action", event.Action)
	return nil
}
