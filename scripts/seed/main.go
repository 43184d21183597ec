// Seed creates a user with a batch of todos. Run from project root: go run ./scripts/seed [count]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"todo-api/internal/auth"
	"todo-api/internal/config"
	"todo-api/internal/database"
	"todo-api/internal/models"
	"todo-api/internal/repository"
)

const (
	seedEmail    = "seed@example.com"
	seedPassword = "Seed!pass1"
)

func main() {
	_ = godotenv.Load()

	total := 1_000
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 1 {
			fmt.Fprintln(os.Stderr, "count must be a positive integer")
			os.Exit(1)
		}
		total = n
	}

	ctx := context.Background()
	cfg := config.Get()
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set")
		os.Exit(1)
	}
	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "DB connection failed:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	users := repository.NewUserRepository(db)
	user, err := users.FindByEmail(ctx, seedEmail)
	if errors.Is(err, repository.ErrNotFound) {
		digest, herr := auth.NewBcryptHasher(cfg.BcryptCost).Hash(seedPassword)
		if herr != nil {
			fmt.Fprintln(os.Stderr, "Hash failed:", herr)
			os.Exit(1)
		}
		user = models.User{Email: seedEmail, Name: "Seed User", PasswordHash: digest}
		err = users.Create(ctx, &user)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Seed user failed:", err)
		os.Exit(1)
	}

	todos := repository.NewTodoRepository(db)
	start := time.Now()
	for i := 1; i <= total; i++ {
		todo := &models.Todo{
			OwnerID:     user.ID,
			Title:       fmt.Sprintf("Todo %d", i),
			Description: fmt.Sprintf("Description for todo %d", i),
			IsCompleted: i%3 == 0,
		}
		if err := todos.Create(ctx, todo); err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		if i%100 == 0 || i == total {
			fmt.Printf("\rInserted %d / %d", i, total)
		}
	}

	fmt.Printf("\nDone: %d todos for %s (password %s) in %v\n", total, seedEmail, seedPassword, time.Since(start))
}
