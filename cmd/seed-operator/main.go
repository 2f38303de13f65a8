package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/powerpit/backend/internal/config"
	"github.com/powerpit/backend/internal/database"
	"github.com/powerpit/backend/internal/operators"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	name := os.Getenv("OPERATOR_NAME")
	if name == "" {
		name = "operator"
		log.Printf("Using default operator name: %s", name)
	}

	token := os.Getenv("OPERATOR_TOKEN")
	if token == "" {
		token = "change-me-in-production"
		log.Printf("WARNING: Using default operator token. Set OPERATOR_TOKEN env var in production!")
	}

	roles := []string{"simulate"}
	if raw := os.Getenv("OPERATOR_ROLES"); raw != "" {
		roles = strings.Split(raw, ",")
	}

	if err := operators.CreateOperator(db, name, token, roles); err != nil {
		log.Fatalf("Failed to create operator: %v", err)
	}

	log.Printf("✓ Operator created/updated successfully")
	log.Printf("  Name: %s", name)
	log.Printf("  Roles: %v", roles)
	log.Println("\nExchange the token for a JWT with POST /api/v1/auth/token")
}
