package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter backing local runs and tests: flag
// repository, event dedupe, outbox, clock, and ID generator.
type Store struct {
	mu sync.RWMutex

	flags      map[string]entities.Flag
	outbox     map[string]outboxRecord
	eventDedup map[string]time.Time
}

func NewStore(seed []entities.Flag) *Store {
	flags := make(map[string]entities.Flag, len(seed))
	for _, flag := range seed {
		flags[flag.FlagID] = flag
	}
	return &Store{
		flags:      flags,
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]time.Time),
	}
}

func (s *Store) SaveFlag(_ context.Context, flag entities.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[strings.TrimSpace(flag.FlagID)] = flag
	return nil
}

func (s *Store) GetFlag(_ context.Context, flagID string) (entities.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flag, ok := s.flags[strings.TrimSpace(flagID)]
	if !ok {
		return entities.Flag{}, domainerrors.ErrFlagNotFound
	}
	return flag, nil
}

func (s *Store) ListUnreviewedFlags(_ context.Context, eventID string) ([]entities.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eventID = strings.TrimSpace(eventID)
	items := make([]entities.Flag, 0)
	for _, flag := range s.flags {
		if flag.AdminReviewed {
			continue
		}
		if eventID != "" && flag.EventID != eventID {
			continue
		}
		items = append(items, flag)
	}
	sortFlagsByCreation(items)
	return items, nil
}

func (s *Store) ListFlagsBySheet(_ context.Context, sheetID string) ([]entities.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sheetID = strings.TrimSpace(sheetID)
	items := make([]entities.Flag, 0)
	for _, flag := range s.flags {
		if flag.SheetID == sheetID {
			items = append(items, flag)
		}
	}
	sortFlagsByCreation(items)
	return items, nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID = strings.TrimSpace(eventID)
	if expiry, ok := s.eventDedup[eventID]; ok && expiry.After(time.Now().UTC()) {
		return false, nil
	}
	s.eventDedup[eventID] = expiresAt
	return true, nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	outboxID := uuid.NewString()
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    event.OccurredAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]ports.OutboxMessage, 0)
	for _, record := range s.outbox {
		if !record.published {
			pending = append(pending, record.message)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortFlagsByCreation(items []entities.Flag) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].FlagID < items[j].FlagID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
