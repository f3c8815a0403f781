// Package sqlstore keeps the sighting table in SQLite or MySQL through gorm.
// Each table row is one record; the cells are stored as a JSON array so the
// header and any extra columns round-trip unchanged.
package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	insertBatchSize    = 200
)

// TableRow is one row of the sighting table. Position 1 is the header.
type TableRow struct {
	Position  int      `gorm:"primaryKey;autoIncrement:false"`
	Cells     []string `gorm:"serializer:json;type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name independent of the gorm naming strategy
func (TableRow) TableName() string {
	return "sighting_rows"
}

// Table is a sighting.Table stored in a SQL database.
type Table struct {
	db  *gorm.DB
	log logger.Logger
}

// OpenSQLite opens or creates a SQLite database at path.
func OpenSQLite(path string, log logger.Logger) (*Table, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(fmt.Errorf("sqlstore: failed to create database directory: %w", err)).
				Component("sqlstore").
				Category(errors.CategoryFileIO).
				Context("path", dir).
				Build()
		}
	}
	return open(sqlite.Open(path), "sqlite", log)
}

// OpenMySQL connects to a MySQL database using dsn
func OpenMySQL(dsn string, log logger.Logger) (*Table, error) {
	return open(mysql.Open(dsn), "mysql", log)
}

func open(dialector gorm.Dialector, driver string, log logger.Logger) (*Table, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("sqlstore")

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), slowQueryThreshold),
	})
	if err != nil {
		log.Error("failed to open database", logger.String("driver", driver), logger.Error(err))
		return nil, errors.New(fmt.Errorf("sqlstore: failed to open %s database: %w", driver, err)).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("driver", driver).
			Build()
	}

	if err := db.AutoMigrate(&TableRow{}); err != nil {
		return nil, errors.New(fmt.Errorf("sqlstore: migration failed: %w", err)).
			Component("sqlstore").
			Category(errors.CategoryDatabase).
			Context("driver", driver).
			Build()
	}

	log.Info("sighting database ready", logger.String("driver", driver))
	return &Table{db: db, log: log}, nil
}

// ReadAll returns every row in position order
func (t *Table) ReadAll(ctx context.Context) ([][]string, error) {
	var records []TableRow
	if err := t.db.WithContext(ctx).Order("position").Find(&records).Error; err != nil {
		return nil, t.wrap(err, "read")
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Cells)
	}
	return rows, nil
}

// ReplaceAll swaps the stored rows for rows inside one transaction, so a
// failed write leaves the previous table intact.
func (t *Table) ReplaceAll(ctx context.Context, rows [][]string) error {
	records := make([]TableRow, len(rows))
	for i, cells := range rows {
		if cells == nil {
			cells = []string{}
		}
		records[i] = TableRow{Position: i + 1, Cells: cells}
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TableRow{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, insertBatchSize).Error
	})
	if err != nil {
		return t.wrap(err, "replace")
	}
	return nil
}

// Close releases the database connection pool
func (t *Table) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (t *Table) wrap(err error, operation string) error {
	t.log.Error("database operation failed", logger.String("operation", operation), logger.Error(err))
	return errors.New(fmt.Errorf("sqlstore %s: %w", operation, err)).
		Component("sqlstore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
