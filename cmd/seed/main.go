// Command seed creates or promotes the storefront owner account. It talks to
// the user store directly, using the same DATABASE_URL as the server.
//
// Run: OWNER_EMAIL=owner@example.com OWNER_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/service"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/logger"
)

// ownerConfig names the account to bootstrap.
type ownerConfig struct {
	Email     string `env:"OWNER_EMAIL,required,notEmpty"`
	Password  string `env:"OWNER_PASSWORD,required,notEmpty"`
	FirstName string `env:"OWNER_FIRST_NAME" envDefault:"Store"`
	LastName  string `env:"OWNER_LAST_NAME" envDefault:"Owner"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("identity-seed", cfg.LogLevel)

	var owner ownerConfig
	if err := pkgconfig.LoadWithDotenv(&owner); err != nil {
		log.Error("failed to load owner config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(cfg, owner, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, owner ownerConfig, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := app.OpenUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	hasher := auth.NewPasswordHasher(auth.Argon2Params{
		Time:      cfg.Argon2Time,
		MemoryKiB: cfg.Argon2MemoryKiB,
		Threads:   cfg.Argon2Threads,
	})
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	if err != nil {
		return err
	}
	svc := service.NewUserService(store.Repo, hasher, tokens, nil, nil, log)

	user, created, err := svc.EnsureOwner(ctx, service.RegisterInput{
		FirstName: owner.FirstName,
		LastName:  owner.LastName,
		Email:     owner.Email,
		Password:  owner.Password,
	})
	if err != nil {
		return err
	}

	log.Info("owner account ready",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("created", created),
	)
	return nil
}
