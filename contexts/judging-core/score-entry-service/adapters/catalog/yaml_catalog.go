package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
)

// YAMLCatalog serves criterion definitions from a catalog export file. The
// catalog service owns the data; this adapter is a read-only snapshot loaded
// once at startup, matching the catalog's immutability within a scoring
// cycle.
type YAMLCatalog struct {
	mu     sync.RWMutex
	events map[string][]entities.Criterion
}

type catalogFile struct {
	Events []struct {
		EventID  string `yaml:"event_id"`
		Criteria []struct {
			CriterionID string  `yaml:"criterion_id"`
			Label       string  `yaml:"label"`
			MaxScore    float64 `yaml:"max_score"`
		} `yaml:"criteria"`
	} `yaml:"events"`
}

// LoadYAMLCatalog parses a catalog export and validates criterion bounds.
func LoadYAMLCatalog(path string) (*YAMLCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	events := make(map[string][]entities.Criterion, len(file.Events))
	for _, event := range file.Events {
		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			return nil, fmt.Errorf("catalog entry missing event_id")
		}
		criteria := make([]entities.Criterion, 0, len(event.Criteria))
		for _, criterion := range event.Criteria {
			if criterion.MaxScore <= 0 {
				return nil, fmt.Errorf("criterion %q in event %q: max_score must be positive",
					criterion.CriterionID, eventID)
			}
			criteria = append(criteria, entities.Criterion{
				CriterionID: strings.TrimSpace(criterion.CriterionID),
				Label:       strings.TrimSpace(criterion.Label),
				MaxScore:    criterion.MaxScore,
			})
		}
		events[eventID] = criteria
	}
	return &YAMLCatalog{events: events}, nil
}

func (c *YAMLCatalog) CriteriaForEvent(_ context.Context, eventID string) ([]entities.Criterion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	criteria, ok := c.events[strings.TrimSpace(eventID)]
	if !ok {
		return nil, domainerrors.ErrEventNotFound
	}
	return append([]entities.Criterion(nil), criteria...), nil
}
