package redis

import (
	"go.uber.org/fx"

	"wizesign/internal/usecase"
)

var Module = fx.Module("redis",
	fx.Provide(NewRedisClient),
	fx.Provide(
		fx.Annotate(
			NewDocumentLock,
			fx.As(new(usecase.DocumentLocker)),
		),
	),
)
