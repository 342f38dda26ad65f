package commands

import (
	"fmt"
	"os"

	"github.com/taskquest/taskquest/internal/database"
)

// openDatabase connects using DATABASE_URL. The configure tool talks only
// to Postgres, so it reads the variable directly instead of loading the
// full server config.
func openDatabase() (*database.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := database.New(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// closeQuietly closes the database, warning on stderr rather than failing
// the command.
func closeQuietly(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
