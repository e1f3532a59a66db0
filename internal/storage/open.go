package storage

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

// DriverForPath guesses the driver from a file extension
func DriverForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return DriverSQLite
	default:
		return DriverCSV
	}
}

// Open builds the medium named by driver. The returned closer releases
// any handle the medium holds.
func Open(driver, path string, backup bool, logger *zap.Logger) (Medium, io.Closer, error) {
	switch driver {
	case DriverCSV:
		return NewCSVFile(path, backup, logger), nopCloser{}, nil
	case DriverSQLite:
		db, err := OpenSQLite(path, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
