package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/handoff-wait/internal/model"
)

// schema creates the two tables the service owns.  open_token is only
// non-NULL while a handoff is open, so its unique index allows any number
// of closed handoffs per token but at most one open one.
var schema = []string{
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS handoffs (
    id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    token VARCHAR(%[1]d) NOT NULL,
    start_time DATETIME(3) NOT NULL,
    end_time DATETIME(3) NULL,
    duration_seconds INT NULL,
    open_token VARCHAR(%[1]d) AS (IF(end_time IS NULL, token, NULL)) STORED,
    UNIQUE KEY uq_handoffs_open_token (open_token),
    KEY idx_handoffs_token_end (token, end_time),
    KEY idx_handoffs_end (end_time)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, model.MaxTokenLen),
	`CREATE TABLE IF NOT EXISTS settings (
    id TINYINT UNSIGNED NOT NULL PRIMARY KEY,
    display_on BOOLEAN NOT NULL DEFAULT TRUE,
    manual_minutes INT NULL,
    updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
