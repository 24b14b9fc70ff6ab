package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"petromanage/internal/event"
	"petromanage/internal/model"
	"petromanage/pkg/apierror"
)

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

// AuditService persists auth events and answers queries over them.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Consume writes every event from events until the channel closes or ctx is
// done. Storage failures are logged and the event is lost.
func (s *AuditService) Consume(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := s.store.Log(writeCtx, entryFromEvent(e)); err != nil {
				slog.Error("audit write failed", "type", e.Type, "event_id", e.ID, "error", err)
			}
			cancel()
		}
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))
	query.Email = strings.TrimSpace(query.Email)

	if _, err := parseOptionalAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	if _, err := parseOptionalAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}

	return s.store.Query(ctx, query)
}

func entryFromEvent(e event.Event) model.AuditEntry {
	status := model.AuditStatusSuccess
	if e.Type.Failed() {
		status = model.AuditStatusFailure
	}

	return model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: e.Timestamp.UTC(),
		Actor: model.AuditActor{
			UserID:   e.UserID,
			Email:    e.Email,
			Role:     e.Role,
			ClientIP: e.ClientIP,
		},
		Status: status,
		Code:   e.Code,
	}
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	return model.ParseAuditTime(trimmed)
}
