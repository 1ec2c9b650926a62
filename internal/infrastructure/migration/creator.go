package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
	// versions sort lexically because the format is fixed-width
	versionFormat = "20060102150405"
)

// MigrationFile describes a freshly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down SQL pair into migrationsDir.
// The version prefix is the current wall-clock time so files stay ordered.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	now := time.Now()
	mf := &MigrationFile{
		Version:     now.Format(versionFormat),
		Name:        name,
		Description: description,
		Timestamp:   now.Format(time.RFC3339),
	}
	base := mf.Version + "_" + sanitizeName(name)
	mf.UpPath = filepath.Join(migrationsDir, base+upSuffix)
	mf.DownPath = filepath.Join(migrationsDir, base+downSuffix)

	if err := writeStub(mf.UpPath, mf.header(false)); err != nil {
		return nil, err
	}
	if err := writeStub(mf.DownPath, mf.header(true)); err != nil {
		// do not leave a half pair behind
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func (mf *MigrationFile) header(down bool) string {
	var b strings.Builder
	if down {
		fmt.Fprintf(&b, "-- Migration: %s (Rollback)\n", mf.Name)
	} else {
		fmt.Fprintf(&b, "-- Migration: %s\n", mf.Name)
	}
	fmt.Fprintf(&b, "-- Created: %s\n", mf.Timestamp)
	if down {
		fmt.Fprintf(&b, "-- Description: Rollback for %s\n", mf.Description)
		b.WriteString("\n-- Write your DOWN migration SQL here\n\n")
	} else {
		fmt.Fprintf(&b, "-- Description: %s\n", mf.Description)
		b.WriteString("\n-- Write your UP migration SQL here\n\n")
	}
	return b.String()
}

func writeStub(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// sanitizeName lowercases the name and collapses separators into single
// underscores so it is safe as a file name component
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			s := b.String()
			if len(s) > 0 && !strings.HasSuffix(s, "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the base names of all migration pairs in
// migrationsDir, sorted by version. A missing directory is not an error.
func ListMigrations(migrationsDir string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), upSuffix); ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}
