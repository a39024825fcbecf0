package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/khoahotran/devconnect/adapters/persistence"
	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/pkg/auth"
	"github.com/khoahotran/devconnect/pkg/logger"
)

// Seeds one account and prints a bearer token for it, for local testing of
// the profile routes.
func main() {
	fmt.Println("adding account into database...")

	err := godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use system environment variables.")
	}

	dsn := os.Getenv("DB_DSN")
	name := os.Getenv("SEED_NAME")
	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	avatar := os.Getenv("SEED_AVATAR")
	if email == "" || password == "" {
		log.Fatalf("SEED_EMAIL and SEED_PASSWORD are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("cannot hash password: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("cannot connect DB: %v", err)
	}
	defer pool.Close()

	a := &account.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Avatar:       avatar,
		PasswordHash: hash,
	}
	repo := persistence.NewPostgresAccountRepo(pool, logger.NewNopLogger())
	if err := repo.Save(context.Background(), a); err != nil {
		log.Fatalf("cannot add account: %v", err)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		token, err := auth.NewJWTService(secret, 24*time.Hour).GenerateToken(a.ID)
		if err != nil {
			log.Fatalf("cannot issue token: %v", err)
		}
		fmt.Printf("token: %s\n", token)
	}

	fmt.Printf("added account '%s' (%s) successfully!\n", email, a.ID)
}
