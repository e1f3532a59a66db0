package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp"
	MetaSuffix      = ".meta.json"
	FilePermissions = 0644
)

// CSVFile stores events as a header-first comma separated table
type CSVFile struct {
	Path string
	// Backup keeps the previous table next to the new one on every save
	Backup bool

	logger *zap.Logger
}

// NewCSVFile returns a CSV medium at path
func NewCSVFile(path string, backup bool, logger *zap.Logger) *CSVFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVFile{Path: path, Backup: backup, logger: logger}
}

// Describe names the medium for logs
func (f *CSVFile) Describe() string {
	return "csv:" + f.Path
}

type csvMeta struct {
	LastID int `json:"last_id"`
}

func (f *CSVFile) metaPath() string {
	return f.Path + MetaSuffix
}

// Load reads the whole table
func (f *CSVFile) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	lastID, err := f.loadMeta()
	if err != nil {
		return Snapshot{}, err
	}

	file, err := os.Open(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{LastID: lastID, Report: LoadReport{Missing: true}}, nil
		}
		return Snapshot{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			f.logger.Warn("error closing events file", zap.String("path", f.Path), zap.Error(err))
		}
	}()

	snap, err := decodeCSV(file)
	if err != nil {
		return Snapshot{}, err
	}
	snap.LastID = lastID
	return snap, nil
}

// decodeCSV runs the tolerant adapter over a table
func decodeCSV(r io.Reader) (Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read header: %w", err)
	}

	// Map positions to canonical names; unknown columns are ignored
	positions := make(map[int]string)
	var dec rowDecoder
	for i, h := range header {
		name, ok := canonicalColumn(h)
		if !ok {
			continue
		}
		if _, dup := positionOf(positions, name); dup {
			continue
		}
		positions[i] = name
		switch name {
		case ColumnEventID:
			dec.hasID = true
		case ColumnOrder:
			dec.hasOrder = true
		}
	}

	var report LoadReport
	var rows []decoded
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.Rows++
				report.Dropped++
				continue
			}
			return Snapshot{}, err
		}
		if isBlank(record) {
			continue
		}
		report.Rows++

		row := make(rawRow, len(positions))
		for i, name := range positions {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		d, ok := dec.decode(row)
		if !ok {
			report.Dropped++
			continue
		}
		rows = append(rows, d)
	}

	evs, dupes := finish(rows)
	report.Dropped += dupes
	return Snapshot{Events: evs, Report: report}, nil
}

func positionOf(positions map[int]string, name string) (int, bool) {
	for i, n := range positions {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func isBlank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}

func (f *CSVFile) loadMeta() (int, error) {
	data, err := os.ReadFile(f.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var meta csvMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		// The table stays authoritative; a broken sidecar only loses the
		// high-water mark of deleted ids
		f.logger.Warn("ignoring unreadable meta file", zap.String("path", f.metaPath()), zap.Error(err))
		return 0, nil
	}
	return meta.LastID, nil
}

// Save replaces the table. The new content goes to a temp file first and is
// renamed into place.
func (f *CSVFile) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, e := range snap.Events {
		if err := w.Write(encode(e)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Create backup
	if f.Backup {
		if _, err := os.Stat(f.Path); err == nil {
			backupFile := f.Path + BackupSuffix
			_ = os.Remove(backupFile)
			if err := os.Link(f.Path, backupFile); err != nil {
				f.logger.Warn("failed to create backup", zap.String("path", backupFile), zap.Error(err))
			}
		}
	}

	if err := writeFileAtomic(f.Path, buf.Bytes()); err != nil {
		return err
	}

	meta, err := json.MarshalIndent(csvMeta{LastID: snap.LastID}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(f.metaPath(), meta)
}

// writeFileAtomic writes data to a temp file and renames it over path
func writeFileAtomic(path string, data []byte) error {
	tmpFile := path + TmpSuffix
	if err := os.WriteFile(tmpFile, data, FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmpFile, path)
}
