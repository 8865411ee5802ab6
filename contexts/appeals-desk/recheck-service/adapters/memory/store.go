package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter backing local runs and tests: recheck
// repository, outbox, clock, and ID generator.
type Store struct {
	mu sync.RWMutex

	requests map[string]entities.RecheckRequest
	outbox   map[string]outboxRecord
}

func NewStore(seed []entities.RecheckRequest) *Store {
	requests := make(map[string]entities.RecheckRequest, len(seed))
	for _, request := range seed {
		requests[request.RequestID] = request
	}
	return &Store{
		requests: requests,
		outbox:   make(map[string]outboxRecord),
	}
}

func (s *Store) SaveRequest(_ context.Context, request entities.RecheckRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[strings.TrimSpace(request.RequestID)] = request
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (entities.RecheckRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[strings.TrimSpace(requestID)]
	if !ok {
		return entities.RecheckRequest{}, domainerrors.ErrRecheckNotFound
	}
	return request, nil
}

func (s *Store) FindOpenByResult(_ context.Context, result entities.ResultRef) (entities.RecheckRequest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.requests {
		if request.Result == result && !request.Status.Terminal() {
			return request, true, nil
		}
	}
	return entities.RecheckRequest{}, false, nil
}

func (s *Store) GetRequestByOrder(_ context.Context, orderID string) (entities.RecheckRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orderID = strings.TrimSpace(orderID)
	for _, request := range s.requests {
		if request.Payment.OrderID == orderID && orderID != "" {
			return request, nil
		}
	}
	return entities.RecheckRequest{}, domainerrors.ErrRecheckNotFound
}

func (s *Store) ListRequestsByStudent(_ context.Context, studentID string) ([]entities.RecheckRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	studentID = strings.TrimSpace(studentID)
	items := make([]entities.RecheckRequest, 0)
	for _, request := range s.requests {
		if request.StudentID == studentID {
			items = append(items, request)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].RequestID < items[j].RequestID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
	return items, nil
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
