package data

import (
	"context"
	"fmt"

	"github.com/localboxhq/localbox-server/internal/pkg/database"
	"go.uber.org/zap"
)

// AutoMigrate creates the filebox tables and their supporting indexes.
func AutoMigrate(ctx context.Context, db *database.DB) error {
	models := []interface{}{
		&TagPO{},
		&FilePO{},
		&FileTagPO{},
	}

	for _, model := range models {
		if err := db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	if err := createIndexes(ctx, db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes adds the composite indexes the query engine leans on: the
// AND filter resolves (tag_id, file_id) pairs and tag-scoped pagination
// scans (tag_id, id) ranges.
func createIndexes(ctx context.Context, db *database.DB) error {
	if err := db.WithContext(ctx).Exec(`
		CREATE INDEX IF NOT EXISTS idx_file_tags_tag_file
		ON file_tags(tag_id, file_id)
	`).Error; err != nil {
		return err
	}

	if err := db.WithContext(ctx).Exec(`
		CREATE INDEX IF NOT EXISTS idx_file_tags_tag_seq
		ON file_tags(tag_id, id)
	`).Error; err != nil {
		return err
	}

	return nil
}

// MigrateWithLog runs AutoMigrate with progress logging.
func MigrateWithLog(ctx context.Context, db *database.DB, logger *zap.Logger) error {
	logger.Info("starting filebox schema migration")

	if err := AutoMigrate(ctx, db); err != nil {
		logger.Error("schema migration failed", zap.Error(err))
		return err
	}

	logger.Info("filebox schema migration completed successfully")
	return nil
}
