// database_utils should be the canonical place to put shared DB utils.
// It should not include:
// 1. Any util that doesn't manipulate DB
// 2. Any util that contains business logic
package utils

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Luismorlan/postsync/model"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	SqliteDriver   = "sqlite"
	PostgresDriver = "postgres"

	TestDBPrefix         = "testonlydb_"
	TestDBNameCharLength = 8

	// Writers wait this long for the sqlite file lock instead of failing.
	sqliteBusyTimeoutMs = 5000
)

func sqliteDsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, sqliteBusyTimeoutMs)
}

// GetDBConnection opens the store database with the given driver. dsn is a
// file path for sqlite and a connection string for postgres.
func GetDBConnection(driver string, dsn string) (*gorm.DB, error) {
	switch driver {
	case SqliteDriver:
		db, err := getDB(sqlite.Open(sqliteDsn(dsn)))
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer per file. Funnel every statement through
		// one connection so concurrent store contexts queue up instead of
		// failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case PostgresDriver:
		return getDB(postgres.Open(dsn))
	}
	return nil, errors.Errorf("unsupported store driver %q", driver)
}

func getDB(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// DatabaseSetupAndMigration creates or updates the posts and history tables.
func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(&model.Post{}, &model.HistoryTransaction{})
}

// CloseDB releases the underlying connection pool. It is OK to be called more
// than once.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create a temp sqlite DB for testing, note that this function should only be
// called in a testing environment with test state manager testing.T.
// The database file lives in t.TempDir() and is removed after the test case,
// together with its connections.
func CreateTempDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	dbName := TestDBPrefix + RandomAlphabetString(TestDBNameCharLength)
	path := filepath.Join(t.TempDir(), dbName+".db")

	db, err := GetDBConnection(SqliteDriver, path)
	if err != nil {
		t.Fatalf("fail to create temp DB %s: %v", path, err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		t.Fatalf("fail to migrate temp DB %s: %v", path, err)
	}
	t.Cleanup(func() {
		// Proactively close the connection instead of deferring to GC, the temp
		// dir can't be removed on some platforms while the file is open.
		CloseDB(db)
	})

	return db, dbName
}
