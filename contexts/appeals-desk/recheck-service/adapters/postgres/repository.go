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

	"rostrum/contexts/appeals-desk/recheck-service/domain/entities"
	domainerrors "rostrum/contexts/appeals-desk/recheck-service/domain/errors"
	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

var terminalStatuses = []string{
	string(entities.StatusRejected),
	string(entities.StatusResolved),
}

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

func (r *Repository) SaveRequest(ctx context.Context, request entities.RecheckRequest) error {
	row := requestModelFromEntity(request)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":               row.Status,
			"assigned_volunteer":   row.AssignedVolunteer,
			"payment_paid":         row.PaymentPaid,
			"payment_order_id":     row.PaymentOrderID,
			"payment_payment_id":   row.PaymentPaymentID,
			"payment_paid_at":      row.PaymentPaidAt,
			"decided_at":           row.DecidedAt,
			"payment_initiated_at": row.PaymentInitiatedAt,
			"paid_at":              row.PaidAt,
			"resolved_at":          row.ResolvedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("recheck_repo_save_request_failed", create.Error,
			"request_id", strings.TrimSpace(request.RequestID))
	}
	return nil
}

func (r *Repository) GetRequest(ctx context.Context, requestID string) (entities.RecheckRequest, error) {
	var row requestModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(requestID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RecheckRequest{}, domainerrors.ErrRecheckNotFound
		}
		return entities.RecheckRequest{}, r.logError("recheck_repo_get_request_failed", err,
			"request_id", strings.TrimSpace(requestID))
	}
	return row.toEntity(), nil
}

func (r *Repository) FindOpenByResult(ctx context.Context, result entities.ResultRef) (entities.RecheckRequest, bool, error) {
	var row requestModel
	err := r.db.WithContext(ctx).Model(&requestModel{}).
		Where("participant_id = ?", strings.TrimSpace(result.ParticipantID)).
		Where("event_id = ?", strings.TrimSpace(result.EventID)).
		Where("status NOT IN ?", terminalStatuses).
		Order("submitted_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RecheckRequest{}, false, nil
		}
		return entities.RecheckRequest{}, false, r.logError("recheck_repo_find_open_failed", err,
			"participant_id", strings.TrimSpace(result.ParticipantID),
			"event_id", strings.TrimSpace(result.EventID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetRequestByOrder(ctx context.Context, orderID string) (entities.RecheckRequest, error) {
	var row requestModel
	err := r.db.WithContext(ctx).Model(&requestModel{}).
		Where("payment_order_id = ?", strings.TrimSpace(orderID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RecheckRequest{}, domainerrors.ErrRecheckNotFound
		}
		return entities.RecheckRequest{}, r.logError("recheck_repo_get_by_order_failed", err,
			"order_id", strings.TrimSpace(orderID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListRequestsByStudent(ctx context.Context, studentID string) ([]entities.RecheckRequest, error) {
	var rows []requestModel
	err := r.db.WithContext(ctx).Model(&requestModel{}).
		Where("student_id = ?", strings.TrimSpace(studentID)).
		Order("submitted_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("recheck_repo_list_by_student_failed", err,
			"student_id", strings.TrimSpace(studentID))
	}
	items := make([]entities.RecheckRequest, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
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
		return r.logError("recheck_repo_append_outbox_failed", err, "event_id", event.EventID)
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
		return nil, r.logError("recheck_repo_list_outbox_failed", err)
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
		return r.logError("recheck_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "appeals-desk/recheck-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("recheck repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type requestModel struct {
	ID                 string     `gorm:"column:id;primaryKey"`
	ParticipantID      string     `gorm:"column:participant_id"`
	EventID            string     `gorm:"column:event_id"`
	StudentID          string     `gorm:"column:student_id"`
	Reason             string     `gorm:"column:reason"`
	Status             string     `gorm:"column:status"`
	AssignedVolunteer  string     `gorm:"column:assigned_volunteer"`
	PaymentFee         float64    `gorm:"column:payment_fee"`
	PaymentCurrency    string     `gorm:"column:payment_currency"`
	PaymentPaid        bool       `gorm:"column:payment_paid"`
	PaymentOrderID     string     `gorm:"column:payment_order_id"`
	PaymentPaymentID   string     `gorm:"column:payment_payment_id"`
	PaymentPaidAt      *time.Time `gorm:"column:payment_paid_at"`
	SubmittedAt        time.Time  `gorm:"column:submitted_at"`
	DecidedAt          *time.Time `gorm:"column:decided_at"`
	PaymentInitiatedAt *time.Time `gorm:"column:payment_initiated_at"`
	PaidAt             *time.Time `gorm:"column:paid_at"`
	ResolvedAt         *time.Time `gorm:"column:resolved_at"`
}

func (requestModel) TableName() string {
	return "recheck_requests"
}

func requestModelFromEntity(request entities.RecheckRequest) requestModel {
	return requestModel{
		ID:                 strings.TrimSpace(request.RequestID),
		ParticipantID:      strings.TrimSpace(request.Result.ParticipantID),
		EventID:            strings.TrimSpace(request.Result.EventID),
		StudentID:          strings.TrimSpace(request.StudentID),
		Reason:             strings.TrimSpace(request.Reason),
		Status:             string(request.Status),
		AssignedVolunteer:  strings.TrimSpace(request.AssignedVolunteer),
		PaymentFee:         request.Payment.Fee,
		PaymentCurrency:    request.Payment.Currency,
		PaymentPaid:        request.Payment.Paid,
		PaymentOrderID:     strings.TrimSpace(request.Payment.OrderID),
		PaymentPaymentID:   strings.TrimSpace(request.Payment.PaymentID),
		PaymentPaidAt:      utcOrNil(request.Payment.PaidAt),
		SubmittedAt:        request.SubmittedAt.UTC(),
		DecidedAt:          utcOrNil(request.DecidedAt),
		PaymentInitiatedAt: utcOrNil(request.PaymentInitiatedAt),
		PaidAt:             utcOrNil(request.PaidAt),
		ResolvedAt:         utcOrNil(request.ResolvedAt),
	}
}

func (m requestModel) toEntity() entities.RecheckRequest {
	return entities.RecheckRequest{
		RequestID: m.ID,
		Result: entities.ResultRef{
			ParticipantID: m.ParticipantID,
			EventID:       m.EventID,
		},
		StudentID:         m.StudentID,
		Reason:            m.Reason,
		Status:            entities.Status(m.Status),
		AssignedVolunteer: m.AssignedVolunteer,
		Payment: entities.PaymentRecord{
			Fee:       m.PaymentFee,
			Currency:  m.PaymentCurrency,
			Paid:      m.PaymentPaid,
			OrderID:   m.PaymentOrderID,
			PaymentID: m.PaymentPaymentID,
			PaidAt:    m.PaymentPaidAt,
		},
		SubmittedAt:        m.SubmittedAt,
		DecidedAt:          m.DecidedAt,
		PaymentInitiatedAt: m.PaymentInitiatedAt,
		PaidAt:             m.PaidAt,
		ResolvedAt:         m.ResolvedAt,
	}
}

func utcOrNil(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
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
	return "recheck_outbox"
}
