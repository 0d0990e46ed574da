package store

import (
	"fmt"
	"os"
	"path/filepath"
	internalErrors "payment-router/internal/errors"
	"strconv"
)

const (
	DriverSQLite3  = "sqlite3"  // github.com/mattn/go-sqlite3
	DriverSQLite   = "sqlite"   // modernc.org/sqlite
	DriverPostgres = "postgres" // github.com/lib/pq

	sqliteFileName = "payments.db"
)

type dialect struct {
	driver   string
	blobType string
	embedded bool
	// dsn builds the data source name; create grants the right to create
	// the database when it does not exist yet.
	dsn         func(location string, create bool) string
	placeholder func(n int) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite3:
		return dialect{
			driver:   driver,
			blobType: "BLOB",
			embedded: true,
			dsn: func(location string, create bool) string {
				return fmt.Sprintf("file:%s?mode=%s&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL",
					sqlitePath(location), sqliteMode(create))
			},
			placeholder: func(int) string { return "?" },
		}, nil
	case DriverSQLite:
		return dialect{
			driver:   driver,
			blobType: "BLOB",
			embedded: true,
			dsn: func(location string, create bool) string {
				return fmt.Sprintf("file:%s?mode=%s&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
					sqlitePath(location), sqliteMode(create))
			},
			placeholder: func(int) string { return "?" },
		}, nil
	case DriverPostgres:
		return dialect{
			driver:   driver,
			blobType: "BYTEA",
			dsn: func(location string, _ bool) string {
				return location
			},
			placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		}, nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", internalErrors.ErrUnsupportedDriver, driver)
	}
}

func sqlitePath(dir string) string {
	return filepath.Join(dir, sqliteFileName)
}

func sqliteMode(create bool) string {
	if create {
		return "rwc"
	}
	return "rw"
}

// resetFiles removes a previous run's database and journal files from dir,
// creating dir if needed.
func resetFiles(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o775)
	}

	base := sqlitePath(dir)
	for _, name := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}

	return nil
}
