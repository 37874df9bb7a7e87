package http

import (
	"go.uber.org/fx"

	"wizesign/internal/delivery/http/handler"
	"wizesign/internal/delivery/http/router"
)

var Module = fx.Module("http",
	fx.Provide(
		handler.NewDocumentHandler,
		handler.NewHealthHandler,
		router.NewRouter,
	),
)
