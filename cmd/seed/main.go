package main

import (
	"context"
	"log"

	"medimate-be/internal/apperror"
	"medimate-be/internal/authprovider"
	"medimate-be/internal/config"
	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/mailer"
	"medimate-be/internal/repository/memory"
	"medimate-be/internal/repository/unitofwork"
	"medimate-be/internal/service"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/database"
	"medimate-be/pkg/reservation"
	"medimate-be/pkg/session"

	"github.com/fatih/color"
)

// Demo accounts for local development. Passwords are the same for all.
var demoUsers = []dto.SignUpRequest{
	{Name: "Demo Patient", Username: "demo_patient", Email: "patient@medimate.local", Password: "medimate123"},
	{Name: "Unverified Demo", Username: "demo_unverified", Email: "unverified@medimate.local", Password: "medimate123"},
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, false)
	store := unitofwork.NewRepositoryFactory(db)
	provider := authprovider.NewProvider(store, memory.NewRefreshSessionRepository(), mailer.LogOnlyService{Logger: sysLogger}, nil, cfg.Auth, cfg.App.BaseURL, sysLogger)
	client := &backend.Client{Auth: provider, Store: store}
	sessions := session.NewManager(client, sysLogger)
	authService := service.NewAuthService(client, provider, sessions, reservation.NewRegistry(store), nil, sysLogger)

	color.Cyan("Seeding demo users...")
	for i, u := range demoUsers {
		req := u
		res, err := authService.SignUp(ctx, &req)
		if apperror.Is(err, apperror.KindUsernameTaken) || apperror.Is(err, apperror.KindAuthEmailInUse) {
			color.Yellow("User '%s' already exists, skipping...", u.Username)
			continue
		}
		if err != nil {
			color.Red("Error creating '%s': %v", u.Username, err)
			continue
		}

		// Only the first account is verified so both gate paths can be tried.
		if i == 0 {
			if err := provider.SetVerified(ctx, res.User.Id, true); err != nil {
				color.Red("Error verifying '%s': %v", u.Username, err)
				continue
			}
			if _, err := authService.CheckVerification(ctx, res.User.Id); err != nil {
				color.Red("Error syncing profile of '%s': %v", u.Username, err)
				continue
			}
		}
		color.Green("Created %s (%s)", u.Username, u.Email)
	}

	color.Green("Seeding completed!")
}
