package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"petromanage/internal/model"
)

// MemoryAuditRepository keeps audit entries in process memory, newest last.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Log(_ context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	return nil
}

// Query expects a query already normalized by the audit service.
func (r *MemoryAuditRepository) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	from, err := optionalTime(query.From)
	if err != nil {
		return nil, model.Meta{}, err
	}
	to, err := optionalTime(query.To)
	if err != nil {
		return nil, model.Meta{}, err
	}

	r.mu.RLock()
	items := make([]model.AuditEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if query.Action != "" && e.Action != query.Action {
			continue
		}
		if query.Email != "" && e.Actor.Email != query.Email {
			continue
		}
		if query.Status != "" && e.Status != query.Status {
			continue
		}
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		items = append(items, e)
	}
	r.mu.RUnlock()

	// Newest first; insertion order breaks ties.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})

	total := len(items)
	start := min((query.Page-1)*query.Limit, total)
	end := min(start+query.Limit, total)

	return items[start:end], pageMeta(query, total), nil
}

func optionalTime(raw string) (t time.Time, err error) {
	if raw == "" {
		return t, nil
	}
	return model.ParseAuditTime(raw)
}
