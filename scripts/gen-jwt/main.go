// gen-jwt prints a token for a user id. Run: go run ./scripts/gen-jwt <user-id>
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"todo-api/internal/auth"
	"todo-api/internal/config"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen-jwt <user-id>")
		os.Exit(2)
	}

	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	signed, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry).Issue(os.Args[1])
	if err != nil {
		panic(err)
	}

	fmt.Println(signed)
}
