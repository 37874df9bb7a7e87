package repository

import (
	"go.uber.org/fx"

	domainrepo "wizesign/internal/domain/repository"
)

var Module = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			NewDocumentRepository,
			fx.As(new(domainrepo.DocumentRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			NewPatientRepository,
			fx.As(new(domainrepo.PatientRepository)),
		),
	),
)
