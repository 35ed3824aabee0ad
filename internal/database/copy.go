package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-console/internal/models"
)

const copyBatchSize = 200

// CopyResult counts the rows written per table by Copy.
type CopyResult map[string]int64

// Copy moves every sandbox table from src into dst inside one destination
// transaction. Rows whose primary key already exists in dst are left alone, so
// running it twice is safe.
func Copy(src, dst *gorm.DB, log *zap.Logger) (CopyResult, error) {
	if err := Migrate(dst); err != nil {
		return nil, err
	}

	result := CopyResult{}
	err := dst.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			table string
			run   func() (int64, error)
		}{
			{"contacts", func() (int64, error) { return copyTable[models.Contact](src, tx) }},
			{"templates", func() (int64, error) { return copyTable[models.Template](src, tx) }},
			{"campaigns", func() (int64, error) { return copyTable[models.Campaign](src, tx) }},
			{"messages", func() (int64, error) { return copyTable[models.Message](src, tx) }},
			{"settings", func() (int64, error) { return copyTable[Setting](src, tx) }},
			{"media", func() (int64, error) { return copyTable[Media](src, tx) }},
		}
		for _, step := range steps {
			n, err := step.run()
			if err != nil {
				return fmt.Errorf("copy %s: %w", step.table, err)
			}
			result[step.table] = n
			log.Info("copied table", zap.String("table", step.table), zap.Int64("rows", n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func copyTable[T any](src, dst *gorm.DB) (int64, error) {
	var total int64
	var rows []T
	err := src.Model(new(T)).FindInBatches(&rows, copyBatchSize, func(_ *gorm.DB, _ int) error {
		res := dst.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	}).Error
	return total, err
}
