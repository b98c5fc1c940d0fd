package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/orgcontext"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"github.com/classbill/classbill/pkg/db/option"
	"github.com/classbill/classbill/pkg/db/pagination"
	"github.com/classbill/classbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  subjectdomain.Repository
	store repository.Repository[subjectdomain.Subject]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subjectdomain.Repository
	Store repository.Repository[subjectdomain.Subject]
}

func NewService(p ServiceParam) subjectdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subject.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		store: p.Store,
	}
}

func (s *Service) Create(ctx context.Context, req subjectdomain.CreateSubjectRequest) (subjectdomain.SubjectResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subjectdomain.SubjectResponse{}, subjectdomain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return subjectdomain.SubjectResponse{}, subjectdomain.ErrInvalidName
	}
	programClass := strings.TrimSpace(req.ProgramClass)
	if programClass == "" {
		return subjectdomain.SubjectResponse{}, subjectdomain.ErrInvalidProgramClass
	}
	kind, err := parseBillingKind(req.BillingKind)
	if err != nil {
		return subjectdomain.SubjectResponse{}, err
	}

	now := s.clock.Now()
	subject := subjectdomain.Subject{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		ProgramClass: programClass,
		BillingKind:  kind,
		Status:       subjectdomain.SubjectStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Metadata != nil {
		subject.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, &subject); err != nil {
		return subjectdomain.SubjectResponse{}, err
	}

	return toResponse(&subject), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (subjectdomain.Subject, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subjectdomain.Subject{}, subjectdomain.ErrInvalidOrganization
	}

	subjectID, err := parseID(id)
	if err != nil {
		return subjectdomain.Subject{}, subjectdomain.ErrInvalidSubject
	}

	subject, err := s.repo.FindByID(ctx, s.db, orgID, subjectID)
	if err != nil {
		return subjectdomain.Subject{}, err
	}
	if subject == nil {
		return subjectdomain.Subject{}, subjectdomain.ErrSubjectNotFound
	}
	return *subject, nil
}

var subjectSortFields = map[string]bool{
	"created_at": true,
	"name":       true,
}

func (s *Service) List(ctx context.Context, req subjectdomain.ListSubjectsRequest) (subjectdomain.ListSubjectsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subjectdomain.ListSubjectsResponse{}, subjectdomain.ErrInvalidOrganization
	}

	query := subjectdomain.Subject{
		OrgID:        orgID,
		ProgramClass: strings.TrimSpace(req.ProgramClass),
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		query.Status = subjectdomain.SubjectStatus(status)
	}
	if kind := strings.ToUpper(strings.TrimSpace(req.BillingKind)); kind != "" {
		query.BillingKind = subjectdomain.BillingKind(kind)
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := req.OrderBy
	if orderBy == "" {
		orderBy = "desc"
	}

	rows, err := s.store.Find(ctx, &query,
		option.ApplyPagination(req.Pagination),
		option.WithSortBy(option.WithQuerySortBy(sortBy, orderBy, subjectSortFields)),
	)
	if err != nil {
		return subjectdomain.ListSubjectsResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	pageInfo := pagination.BuildCursorPageInfo(rows, int32(size), func(row *subjectdomain.Subject) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(rows) > size {
		rows = rows[:size]
	}
	subjects := make([]subjectdomain.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, *row)
	}

	return subjectdomain.ListSubjectsResponse{
		Subjects: subjects,
		PageInfo: pageInfo,
	}, nil
}

// Delete removes a subject. It is rejected while financial obligations are
// open: an active plan or unpaid schedule items.
func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subjectdomain.ErrInvalidOrganization
	}

	subjectID, err := parseID(id)
	if err != nil {
		return subjectdomain.ErrInvalidSubject
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subject, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return subjectdomain.ErrSubjectNotFound
		}

		activePlans, err := s.countActivePlans(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		pendingItems, err := s.countPendingItems(ctx, tx, orgID, subjectID)
		if err != nil {
			return err
		}
		if activePlans > 0 || pendingItems > 0 {
			return &subjectdomain.ActiveObligationsError{
				ActivePlans:  activePlans,
				PendingItems: pendingItems,
			}
		}

		return s.repo.Delete(ctx, tx, orgID, subjectID)
	})
}

func (s *Service) countActivePlans(ctx context.Context, tx *gorm.DB, orgID, subjectID snowflake.ID) (int64, error) {
	var count int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM billing_plans WHERE org_id = ? AND subject_id = ? AND status = ?`,
		orgID,
		subjectID,
		"ACTIVE",
	).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) countPendingItems(ctx context.Context, tx *gorm.DB, orgID, subjectID snowflake.ID) (int64, error) {
	var count int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM schedule_items WHERE org_id = ? AND subject_id = ? AND status = ?`,
		orgID,
		subjectID,
		"PENDING",
	).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, subjectdomain.ErrInvalidSubject
	}
	return id, nil
}

func parseBillingKind(value string) (subjectdomain.BillingKind, error) {
	kind := subjectdomain.BillingKind(strings.ToUpper(strings.TrimSpace(value)))
	switch kind {
	case subjectdomain.BillingKindInstallment, subjectdomain.BillingKindUsage:
		return kind, nil
	default:
		return "", subjectdomain.ErrInvalidBillingKind
	}
}

func toResponse(subject *subjectdomain.Subject) subjectdomain.SubjectResponse {
	return subjectdomain.SubjectResponse{
		ID:           subject.ID.String(),
		OrgID:        subject.OrgID.String(),
		Name:         subject.Name,
		ProgramClass: subject.ProgramClass,
		BillingKind:  subject.BillingKind,
		Status:       subject.Status,
	}
}
