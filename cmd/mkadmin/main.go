package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/config"
	"github.com/ipede/okta-identity-service/internal/infrastructure/database"
	"github.com/ipede/okta-identity-service/internal/infrastructure/repository"
	"go.uber.org/zap"
)

// mkadmin grants ROLE_ADMIN to an already-provisioned user, looked up by
// email. The user must have logged in at least once.
func main() {
	email := flag.String("email", "", "Email of the user to grant ROLE_ADMIN")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: mkadmin -email <user email>")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	users := repository.NewUserRepository(db, logger)

	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			logger.Fatal("User not found; they must log in once before being promoted",
				zap.String("email", *email))
		}
		logger.Fatal("Failed to look up user", zap.Error(err))
	}

	if user.HasRole(domain.RoleAdmin) {
		logger.Info("User is already an admin", zap.String("email", *email))
		return
	}

	if err := users.ReplaceRoles(ctx, user.ID, domain.RoleAdmin); err != nil {
		logger.Fatal("Failed to grant admin role", zap.Error(err))
	}

	logger.Info("Granted admin role", zap.String("email", *email), zap.Int64("user_id", user.ID))
}
