package operators

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/powerpit/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound     = errors.New("operator not found")
	ErrInvalidToken = errors.New("invalid operator token")
)

// GetOperator retrieves an operator account by name
func GetOperator(db *sqlx.DB, name string) (*models.Operator, error) {
	var op models.Operator
	err := db.Get(&op, `SELECT id, name, token_hash, roles, created_at, updated_at FROM operators WHERE name=$1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load operator: %w", err)
	}
	return &op, nil
}

// HashToken returns the bcrypt hash stored for a plain token.
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// VerifyToken checks if the provided token matches the stored hash
func VerifyToken(hashedToken, plainToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// CreateOperator creates or updates an operator account (used for seeding)
func CreateOperator(db *sqlx.DB, name, plainToken string, roles []string) error {
	hashed, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO operators (name, token_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, name, hashed, pq.Array(roles))

	return err
}

// Authenticate validates a name + token combination
func Authenticate(db *sqlx.DB, name, token string) (*models.Operator, error) {
	op, err := GetOperator(db, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("[OPERATOR] No operator account found for: %s", name)
		} else {
			log.Printf("[OPERATOR] Database error: %v", err)
		}
		return nil, err
	}

	if !VerifyToken(op.TokenHash, token) {
		log.Printf("[OPERATOR] Token verification failed for: %s", name)
		return nil, ErrInvalidToken
	}

	return op, nil
}
