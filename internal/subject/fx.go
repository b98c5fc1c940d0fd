package subject

import (
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"github.com/classbill/classbill/internal/subject/repository"
	"github.com/classbill/classbill/internal/subject/service"
	pkgrepository "github.com/classbill/classbill/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("subject.service",
	fx.Provide(repository.Provide),
	fx.Provide(pkgrepository.ProvideStore[subjectdomain.Subject]),
	fx.Provide(service.NewService),
)
