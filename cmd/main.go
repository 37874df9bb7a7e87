package main

import (
	"go.uber.org/fx"

	"wizesign/internal/config"
	deliveryhttp "wizesign/internal/delivery/http"
	"wizesign/internal/infrastructure/database"
	"wizesign/internal/infrastructure/logger"
	"wizesign/internal/infrastructure/messaging"
	"wizesign/internal/infrastructure/pdf"
	"wizesign/internal/infrastructure/redis"
	"wizesign/internal/infrastructure/repository"
	"wizesign/internal/infrastructure/storage"
	"wizesign/internal/server"
	"wizesign/internal/usecase"
)

func main() {
	fx.New(
		// Configuration
		config.Module,

		// Infrastructure
		logger.Module,
		database.Module,
		redis.Module,
		storage.Module,
		messaging.Module,
		pdf.Module,
		repository.Module,

		// Business Logic
		usecase.Module,

		// Delivery
		deliveryhttp.Module,

		// Server
		server.Module,
	).Run()
}
