package pdf

import (
	"go.uber.org/fx"

	"wizesign/internal/usecase"
)

var Module = fx.Module("pdf",
	fx.Provide(
		fx.Annotate(
			NewComposer,
			fx.As(new(usecase.ArtifactComposer)),
		),
	),
)
