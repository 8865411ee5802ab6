package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	"rostrum/contexts/judging-core/score-entry-service/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter backing local runs and tests. It implements
// the sheet repository, the criterion catalog, the outbox, the clock, and the
// ID generator behind the service ports.
type Store struct {
	mu sync.RWMutex

	sheets   map[string]entities.ScoreSheet
	criteria map[string][]entities.Criterion
	outbox   map[string]outboxRecord
}

func NewStore(seed []entities.ScoreSheet) *Store {
	sheets := make(map[string]entities.ScoreSheet, len(seed))
	for _, sheet := range seed {
		sheets[sheet.SheetID] = sheet
	}
	return &Store{
		sheets:   sheets,
		criteria: make(map[string][]entities.Criterion),
		outbox:   make(map[string]outboxRecord),
	}
}

// SetCriteria seeds the catalog projection for an event.
func (s *Store) SetCriteria(eventID string, criteria []entities.Criterion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria[strings.TrimSpace(eventID)] = append([]entities.Criterion(nil), criteria...)
}

func (s *Store) CriteriaForEvent(_ context.Context, eventID string) ([]entities.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	criteria, ok := s.criteria[strings.TrimSpace(eventID)]
	if !ok {
		return nil, domainerrors.ErrEventNotFound
	}
	return append([]entities.Criterion(nil), criteria...), nil
}

func (s *Store) SaveSheet(_ context.Context, sheet entities.ScoreSheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[strings.TrimSpace(sheet.SheetID)] = cloneSheet(sheet)
	return nil
}

func (s *Store) GetSheet(_ context.Context, sheetID string) (entities.ScoreSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sheet, ok := s.sheets[strings.TrimSpace(sheetID)]
	if !ok {
		return entities.ScoreSheet{}, domainerrors.ErrSheetNotFound
	}
	return cloneSheet(sheet), nil
}

func (s *Store) GetSheetByIdentity(
	_ context.Context,
	judgeID string,
	participantID string,
	eventID string,
) (entities.ScoreSheet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	judgeID = strings.TrimSpace(judgeID)
	participantID = strings.TrimSpace(participantID)
	eventID = strings.TrimSpace(eventID)

	for _, sheet := range s.sheets {
		if sheet.JudgeID == judgeID && sheet.ParticipantID == participantID && sheet.EventID == eventID {
			return cloneSheet(sheet), true, nil
		}
	}
	return entities.ScoreSheet{}, false, nil
}

func (s *Store) ListActiveSheets(_ context.Context, participantID, eventID string) ([]entities.ScoreSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.ScoreSheet, 0)
	participantID = strings.TrimSpace(participantID)
	eventID = strings.TrimSpace(eventID)
	for _, sheet := range s.sheets {
		if sheet.ParticipantID == participantID && sheet.EventID == eventID && !sheet.Excluded {
			items = append(items, cloneSheet(sheet))
		}
	}
	sortSheetsBySubmission(items)
	return items, nil
}

func (s *Store) ListSheets(_ context.Context, participantID, eventID string) ([]entities.ScoreSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.ScoreSheet, 0)
	participantID = strings.TrimSpace(participantID)
	eventID = strings.TrimSpace(eventID)
	for _, sheet := range s.sheets {
		if sheet.ParticipantID == participantID && sheet.EventID == eventID {
			items = append(items, cloneSheet(sheet))
		}
	}
	sortSheetsBySubmission(items)
	return items, nil
}

func (s *Store) ListSheetsByJudgeParticipant(_ context.Context, judgeID, participantID string) ([]entities.ScoreSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.ScoreSheet, 0)
	judgeID = strings.TrimSpace(judgeID)
	participantID = strings.TrimSpace(participantID)
	for _, sheet := range s.sheets {
		if sheet.JudgeID == judgeID && sheet.ParticipantID == participantID {
			items = append(items, cloneSheet(sheet))
		}
	}
	sortSheetsBySubmission(items)
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

func cloneSheet(sheet entities.ScoreSheet) entities.ScoreSheet {
	scores := make(map[string]float64, len(sheet.CriterionScores))
	for criterionID, value := range sheet.CriterionScores {
		scores[criterionID] = value
	}
	sheet.CriterionScores = scores
	return sheet
}

func sortSheetsBySubmission(items []entities.ScoreSheet) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].SheetID < items[j].SheetID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
}
