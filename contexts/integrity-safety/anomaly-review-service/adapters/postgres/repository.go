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

	"rostrum/contexts/integrity-safety/anomaly-review-service/domain/entities"
	domainerrors "rostrum/contexts/integrity-safety/anomaly-review-service/domain/errors"
	"rostrum/contexts/integrity-safety/anomaly-review-service/ports"
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

func (r *Repository) SaveFlag(ctx context.Context, flag entities.Flag) error {
	row := flagModelFromEntity(flag)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"admin_reviewed": row.AdminReviewed,
			"decision":       row.Decision,
			"reviewer_id":    row.ReviewerID,
			"review_notes":   row.ReviewNotes,
			"reviewed_at":    row.ReviewedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("integrity_repo_save_flag_failed", create.Error,
			"flag_id", strings.TrimSpace(flag.FlagID),
			"sheet_id", strings.TrimSpace(flag.SheetID),
		)
	}
	return nil
}

func (r *Repository) GetFlag(ctx context.Context, flagID string) (entities.Flag, error) {
	var row flagModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(flagID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Flag{}, domainerrors.ErrFlagNotFound
		}
		return entities.Flag{}, r.logError("integrity_repo_get_flag_failed", err,
			"flag_id", strings.TrimSpace(flagID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListUnreviewedFlags(ctx context.Context, eventID string) ([]entities.Flag, error) {
	tx := r.db.WithContext(ctx).Model(&flagModel{}).
		Where("admin_reviewed = ?", false)
	if eventID = strings.TrimSpace(eventID); eventID != "" {
		tx = tx.Where("event_id = ?", eventID)
	}
	var rows []flagModel
	if err := tx.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("integrity_repo_list_unreviewed_failed", err,
			"event_id", eventID)
	}
	return flagsFromModels(rows), nil
}

func (r *Repository) ListFlagsBySheet(ctx context.Context, sheetID string) ([]entities.Flag, error) {
	var rows []flagModel
	err := r.db.WithContext(ctx).Model(&flagModel{}).
		Where("sheet_id = ?", strings.TrimSpace(sheetID)).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("integrity_repo_list_by_sheet_failed", err,
			"sheet_id", strings.TrimSpace(sheetID))
	}
	return flagsFromModels(rows), nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{
		EventID:   strings.TrimSpace(eventID),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, r.logError("integrity_repo_reserve_event_failed", err, "event_id", eventID)
	}
	return true, nil
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
		return r.logError("integrity_repo_append_outbox_failed", err, "event_id", event.EventID)
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
		return nil, r.logError("integrity_repo_list_outbox_failed", err)
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
		return r.logError("integrity_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "integrity-safety/anomaly-review-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("anomaly review repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type flagModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	SheetID       string     `gorm:"column:sheet_id"`
	JudgeID       string     `gorm:"column:judge_id"`
	ParticipantID string     `gorm:"column:participant_id"`
	EventID       string     `gorm:"column:event_id"`
	Severity      string     `gorm:"column:severity"`
	Confidence    float64    `gorm:"column:confidence"`
	Method        string     `gorm:"column:method"`
	Reason        string     `gorm:"column:reason"`
	AdminReviewed bool       `gorm:"column:admin_reviewed"`
	Decision      string     `gorm:"column:decision"`
	ReviewerID    string     `gorm:"column:reviewer_id"`
	ReviewNotes   string     `gorm:"column:review_notes"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at"`
}

func (flagModel) TableName() string {
	return "anomaly_flags"
}

func flagModelFromEntity(flag entities.Flag) flagModel {
	row := flagModel{
		ID:            strings.TrimSpace(flag.FlagID),
		SheetID:       strings.TrimSpace(flag.SheetID),
		JudgeID:       strings.TrimSpace(flag.JudgeID),
		ParticipantID: strings.TrimSpace(flag.ParticipantID),
		EventID:       strings.TrimSpace(flag.EventID),
		Severity:      string(flag.Severity),
		Confidence:    flag.Confidence,
		Method:        flag.Method,
		Reason:        flag.Reason,
		AdminReviewed: flag.AdminReviewed,
		Decision:      string(flag.Decision),
		ReviewerID:    strings.TrimSpace(flag.ReviewerID),
		ReviewNotes:   strings.TrimSpace(flag.ReviewNotes),
		CreatedAt:     flag.CreatedAt.UTC(),
	}
	if flag.ReviewedAt != nil {
		reviewed := flag.ReviewedAt.UTC()
		row.ReviewedAt = &reviewed
	}
	return row
}

func (m flagModel) toEntity() entities.Flag {
	return entities.Flag{
		FlagID:        m.ID,
		SheetID:       m.SheetID,
		JudgeID:       m.JudgeID,
		ParticipantID: m.ParticipantID,
		EventID:       m.EventID,
		Severity:      entities.Severity(m.Severity),
		Confidence:    m.Confidence,
		Method:        m.Method,
		Reason:        m.Reason,
		AdminReviewed: m.AdminReviewed,
		Decision:      entities.ReviewDecision(m.Decision),
		ReviewerID:    m.ReviewerID,
		ReviewNotes:   m.ReviewNotes,
		CreatedAt:     m.CreatedAt,
		ReviewedAt:    m.ReviewedAt,
	}
}

func flagsFromModels(rows []flagModel) []entities.Flag {
	items := make([]entities.Flag, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type eventDedupModel struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string {
	return "anomaly_review_event_dedup"
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
	return "anomaly_review_outbox"
}
