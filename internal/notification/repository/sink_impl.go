package repository

import (
	"context"

	notificationdomain "github.com/classbill/classbill/internal/notification/domain"
	"github.com/classbill/classbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sink struct {
	db  *gorm.DB
	log *zap.Logger
}

type SinkParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func ProvideSink(p SinkParam) notificationdomain.Sink {
	return &sink{
		db:  p.DB,
		log: p.Log.Named("notification.sink"),
	}
}

func (s *sink) Publish(ctx context.Context, n *notificationdomain.Notification) (bool, error) {
	err := s.db.WithContext(ctx).Create(n).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.log.Debug("notification suppressed by dedupe key",
				zap.String("dedupe_key", n.DedupeKey),
			)
			return false, nil
		}
		return false, err
	}

	s.log.Info("notification published",
		zap.String("subject_id", n.SubjectID.String()),
		zap.String("event_type", string(n.EventType)),
		zap.String("dedupe_key", n.DedupeKey),
	)
	return true, nil
}
