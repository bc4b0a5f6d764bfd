package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

const stampLayout = "20060102-150405"

var exportName = regexp.MustCompile(`^(.+)_(\d{8}-\d{6})\.json$`)

// ErrNoExport indicates no export file exists for the requested PLC.
var ErrNoExport = errors.New("export: no export found")

// File is one timestamped database export on disk.
type File struct {
	PLC   string
	Stamp time.Time
	Path  string
}

// Filename returns the canonical basename for the export.
func (f File) Filename() string {
	return fmt.Sprintf("%s_%s.json", f.PLC, f.Stamp.Format(stampLayout))
}

// FromFilename parses an export basename. The second result is false for
// files that do not follow the export naming scheme.
func FromFilename(name string) (File, bool) {
	m := exportName.FindStringSubmatch(name)
	if m == nil {
		return File{}, false
	}
	stamp, err := time.ParseInLocation(stampLayout, m[2], time.Local)
	if err != nil {
		return File{}, false
	}
	return File{PLC: m[1], Stamp: stamp}, true
}

// Write stores raw as a new timestamped export for plc under dir.
func Write(dir, plc string, raw []byte, stamp time.Time) (File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return File{}, fmt.Errorf("export: create directory %q: %w", dir, err)
	}
	file := File{PLC: plc, Stamp: stamp.Truncate(time.Second)}
	file.Path = filepath.Join(dir, file.Filename())
	if err := os.WriteFile(file.Path, raw, 0o644); err != nil {
		return File{}, fmt.Errorf("export: write %q: %w", file.Path, err)
	}
	return file, nil
}

// List returns every export under dir, newest first. Files outside the
// naming scheme are skipped; a missing directory is an empty list.
func List(dir string) ([]File, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("export: read directory %q: %w", dir, err)
	}

	files := make([]File, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		file, ok := FromFilename(entry.Name())
		if !ok {
			continue
		}
		file.Path = filepath.Join(dir, entry.Name())
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Stamp.Equal(files[j].Stamp) {
			return files[i].PLC < files[j].PLC
		}
		return files[i].Stamp.After(files[j].Stamp)
	})
	return files, nil
}

// Latest returns the newest export per PLC under dir.
func Latest(dir string) (map[string]File, error) {
	files, err := List(dir)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]File, len(files))
	for _, file := range files {
		if _, exists := latest[file.PLC]; !exists {
			latest[file.PLC] = file
		}
	}
	return latest, nil
}

// LatestFor returns the newest export for one PLC.
func LatestFor(dir, plc string) (File, error) {
	files, err := List(dir)
	if err != nil {
		return File{}, err
	}
	for _, file := range files {
		if file.PLC == plc {
			return file, nil
		}
	}
	return File{}, fmt.Errorf("export: plc %q: %w", plc, ErrNoExport)
}
