package main

import (
	"context"
	"log"

	"github.com/Baaaki/roomchat/internal/config"
	"github.com/Baaaki/roomchat/internal/database"
	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/internal/repository"
	"github.com/Baaaki/roomchat/pkg/logger"
	"go.uber.org/zap"
)

var welcomeMessages = []string{
	"Welcome to the room!",
	"Say hi and join the conversation.",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()
	repo := repository.NewMessageRepository(db)
	room := models.RoomID(cfg.SeedRoom)

	existing, err := repo.ListByRoom(ctx, room)
	if err != nil {
		logger.Log.Fatal("Failed to read room history", zap.Error(err))
	}
	if len(existing) > 0 {
		logger.Log.Info("Room already has messages, skipping seed",
			zap.String("room", cfg.SeedRoom),
			zap.Int("messages", len(existing)),
		)
		return
	}

	for _, text := range welcomeMessages {
		msg, err := repo.Append(ctx, &models.Message{
			Username: cfg.SeedUsername,
			Message:  text,
			Room:     room,
		})
		if err != nil {
			logger.Log.Fatal("Failed to seed message", zap.Error(err))
		}
		logger.Log.Info("Seeded message",
			zap.String("id", msg.ID),
			zap.String("room", cfg.SeedRoom),
		)
	}
}
