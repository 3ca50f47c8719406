package main

import (
	"fmt"
	"os"

	"maintenance-service/internal/auth"
	"maintenance-service/internal/client"
	"maintenance-service/internal/config"
	"maintenance-service/internal/db"
	"maintenance-service/internal/events"
	httphandler "maintenance-service/internal/http"
	"maintenance-service/internal/http/middleware"
	"maintenance-service/internal/logger"
	"maintenance-service/internal/repository"
	"maintenance-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	hub := events.NewHub(appLogger)
	go hub.Run()
	broadcaster := events.NewBroadcaster(hub, appLogger)

	rentalsClient := client.NewRentalsClient(cfg)

	taskRepo := repository.NewTaskRepository(database)
	propertyRepo := repository.NewPropertyRepository(database)
	userRepo := repository.NewUserRepository(database)
	problemRepo := repository.NewProblemRepository(database)

	availabilityService := service.NewAvailabilityService(rentalsClient)
	taskService := service.NewTaskService(taskRepo, propertyRepo, userRepo, availabilityService, broadcaster)
	propertyService := service.NewPropertyService(propertyRepo, rentalsClient, broadcaster)
	problemService := service.NewProblemService(problemRepo, taskService, broadcaster)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	wsHandler := httphandler.NewWSHandler(hub, appLogger)
	handler := httphandler.NewHandler(taskService, propertyService, problemService, availabilityService, wsHandler, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting maintenance service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
