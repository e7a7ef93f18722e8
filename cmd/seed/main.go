// seed inserts development sample data for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the admin user (admin@comanda.mx) already exists.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"comanda/backend/internal/config"
	"comanda/backend/internal/db"
	"comanda/backend/internal/security"
)

const devPassword = "password123"

type seedUser struct {
	id    string
	email string
	name  string
	role  string
}

var seedUsers = []seedUser{
	{"dev-admin-001", "admin@comanda.mx", "Andrés Gerente", "administrator"},
	{"dev-cook-001", "cocina@comanda.mx", "Camila Cocinera", "cook"},
	{"dev-waiter-001", "mesero@comanda.mx", "Marta Mesera", "waiter"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var exists bool
	err = conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, seedUsers[0].email,
	).Scan(&exists)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if exists {
		fmt.Println("seed: already applied, nothing to do")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash: %v", err)
	}

	if err := seed(ctx, conn, hash); err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("seed: created %d users (password %q) and 4 tables\n", len(seedUsers), devPassword)
}

func seed(ctx context.Context, conn *sql.DB, passwordHash string) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range seedUsers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, name, role, password_hash) VALUES ($1, $2, $3, $4, $5)`,
			u.id, u.email, u.name, u.role, passwordHash,
		)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.email, err)
		}
	}

	for n := 1; n <= 4; n++ {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tables (id, number, state) VALUES ($1, $2, 'libre')`,
			fmt.Sprintf("dev-table-%03d", n), n,
		)
		if err != nil {
			return fmt.Errorf("table %d: %w", n, err)
		}
	}

	return tx.Commit()
}
