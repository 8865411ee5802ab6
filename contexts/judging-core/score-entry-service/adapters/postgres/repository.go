package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rostrum/contexts/judging-core/score-entry-service/domain/entities"
	domainerrors "rostrum/contexts/judging-core/score-entry-service/domain/errors"
	"rostrum/contexts/judging-core/score-entry-service/ports"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) SaveSheet(ctx context.Context, sheet entities.ScoreSheet) error {
	row, err := sheetModelFromEntity(sheet)
	if err != nil {
		return err
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"criterion_scores": row.CriterionScores,
			"total":            row.Total,
			"comments":         row.Comments,
			"excluded":         row.Excluded,
			"updated_at":       row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrSheetConflict
		}
		return r.logError("scoring_repo_save_sheet_failed", create.Error,
			"sheet_id", strings.TrimSpace(sheet.SheetID),
			"judge_id", strings.TrimSpace(sheet.JudgeID),
		)
	}
	return nil
}

func (r *Repository) GetSheet(ctx context.Context, sheetID string) (entities.ScoreSheet, error) {
	var row sheetModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sheetID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ScoreSheet{}, domainerrors.ErrSheetNotFound
		}
		return entities.ScoreSheet{}, r.logError("scoring_repo_get_sheet_failed", err,
			"sheet_id", strings.TrimSpace(sheetID))
	}
	return row.toEntity()
}

func (r *Repository) GetSheetByIdentity(
	ctx context.Context,
	judgeID string,
	participantID string,
	eventID string,
) (entities.ScoreSheet, bool, error) {
	var row sheetModel
	err := r.db.WithContext(ctx).Model(&sheetModel{}).
		Where("judge_id = ?", strings.TrimSpace(judgeID)).
		Where("participant_id = ?", strings.TrimSpace(participantID)).
		Where("event_id = ?", strings.TrimSpace(eventID)).
		Order("updated_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ScoreSheet{}, false, nil
		}
		return entities.ScoreSheet{}, false, r.logError("scoring_repo_get_sheet_by_identity_failed", err,
			"judge_id", strings.TrimSpace(judgeID),
			"participant_id", strings.TrimSpace(participantID),
			"event_id", strings.TrimSpace(eventID),
		)
	}
	sheet, convErr := row.toEntity()
	if convErr != nil {
		return entities.ScoreSheet{}, false, convErr
	}
	return sheet, true, nil
}

func (r *Repository) ListActiveSheets(ctx context.Context, participantID, eventID string) ([]entities.ScoreSheet, error) {
	return r.listSheets(ctx, participantID, eventID, true)
}

func (r *Repository) ListSheets(ctx context.Context, participantID, eventID string) ([]entities.ScoreSheet, error) {
	return r.listSheets(ctx, participantID, eventID, false)
}

func (r *Repository) listSheets(ctx context.Context, participantID, eventID string, activeOnly bool) ([]entities.ScoreSheet, error) {
	tx := r.db.WithContext(ctx).Model(&sheetModel{}).
		Where("participant_id = ?", strings.TrimSpace(participantID)).
		Where("event_id = ?", strings.TrimSpace(eventID))
	if activeOnly {
		tx = tx.Where("excluded = ?", false)
	}
	var rows []sheetModel
	if err := tx.Order("submitted_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("scoring_repo_list_sheets_failed", err,
			"participant_id", strings.TrimSpace(participantID),
			"event_id", strings.TrimSpace(eventID),
		)
	}
	return sheetsFromModels(rows)
}

func (r *Repository) ListSheetsByJudgeParticipant(ctx context.Context, judgeID, participantID string) ([]entities.ScoreSheet, error) {
	var rows []sheetModel
	err := r.db.WithContext(ctx).Model(&sheetModel{}).
		Where("judge_id = ?", strings.TrimSpace(judgeID)).
		Where("participant_id = ?", strings.TrimSpace(participantID)).
		Order("submitted_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("scoring_repo_list_by_judge_failed", err,
			"judge_id", strings.TrimSpace(judgeID),
			"participant_id", strings.TrimSpace(participantID),
		)
	}
	return sheetsFromModels(rows)
}

func (r *Repository) CriteriaForEvent(ctx context.Context, eventID string) ([]entities.Criterion, error) {
	var rows []criterionProjectionModel
	err := r.db.WithContext(ctx).Model(&criterionProjectionModel{}).
		Where("event_id = ?", strings.TrimSpace(eventID)).
		Order("position ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("scoring_repo_catalog_failed", err,
			"event_id", strings.TrimSpace(eventID))
	}
	if len(rows) == 0 {
		return nil, domainerrors.ErrEventNotFound
	}
	criteria := make([]entities.Criterion, 0, len(rows))
	for _, row := range rows {
		criteria = append(criteria, entities.Criterion{
			CriterionID: row.CriterionID,
			Label:       row.Label,
			MaxScore:    row.MaxScore,
		})
	}
	return criteria, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	row := outboxModel{
		ID:           event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("scoring_repo_append_outbox_failed", err, "event_id", event.EventID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("scoring_repo_list_outbox_failed", err)
	}
	pending := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return pending, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		}).
		Error
	if err != nil {
		return r.logError("scoring_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "judging-core/score-entry-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("score entry repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type sheetModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	JudgeID         string    `gorm:"column:judge_id"`
	ParticipantID   string    `gorm:"column:participant_id"`
	EventID         string    `gorm:"column:event_id"`
	CriterionScores []byte    `gorm:"column:criterion_scores;type:jsonb"`
	Total           float64   `gorm:"column:total"`
	Comments        string    `gorm:"column:comments"`
	Excluded        bool      `gorm:"column:excluded"`
	SubmittedAt     time.Time `gorm:"column:submitted_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (sheetModel) TableName() string {
	return "score_sheets"
}

func sheetModelFromEntity(sheet entities.ScoreSheet) (sheetModel, error) {
	scores, err := json.Marshal(sheet.CriterionScores)
	if err != nil {
		return sheetModel{}, err
	}
	return sheetModel{
		ID:              strings.TrimSpace(sheet.SheetID),
		JudgeID:         strings.TrimSpace(sheet.JudgeID),
		ParticipantID:   strings.TrimSpace(sheet.ParticipantID),
		EventID:         strings.TrimSpace(sheet.EventID),
		CriterionScores: scores,
		Total:           sheet.Total,
		Comments:        strings.TrimSpace(sheet.Comments),
		Excluded:        sheet.Excluded,
		SubmittedAt:     sheet.SubmittedAt.UTC(),
		UpdatedAt:       sheet.UpdatedAt.UTC(),
	}, nil
}

func (m sheetModel) toEntity() (entities.ScoreSheet, error) {
	scores := make(map[string]float64)
	if len(m.CriterionScores) > 0 {
		if err := json.Unmarshal(m.CriterionScores, &scores); err != nil {
			return entities.ScoreSheet{}, err
		}
	}
	return entities.ScoreSheet{
		SheetID:         m.ID,
		JudgeID:         m.JudgeID,
		ParticipantID:   m.ParticipantID,
		EventID:         m.EventID,
		CriterionScores: scores,
		Total:           m.Total,
		Comments:        m.Comments,
		Excluded:        m.Excluded,
		SubmittedAt:     m.SubmittedAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}

func sheetsFromModels(rows []sheetModel) ([]entities.ScoreSheet, error) {
	items := make([]entities.ScoreSheet, 0, len(rows))
	for _, row := range rows {
		sheet, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, sheet)
	}
	return items, nil
}

type criterionProjectionModel struct {
	EventID     string  `gorm:"column:event_id;primaryKey"`
	CriterionID string  `gorm:"column:criterion_id;primaryKey"`
	Label       string  `gorm:"column:label"`
	MaxScore    float64 `gorm:"column:max_score"`
	Position    int     `gorm:"column:position"`
}

func (criterionProjectionModel) TableName() string {
	return "criterion_catalog_projection"
}

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "score_entry_outbox"
}
