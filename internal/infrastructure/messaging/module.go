package messaging

import (
	"go.uber.org/fx"

	"wizesign/internal/usecase"
)

var Module = fx.Module("messaging",
	fx.Provide(
		fx.Annotate(
			NewWizeChatClient,
			fx.As(new(usecase.Messenger)),
		),
	),
)
