// Package validation holds the filesystem pre-flight checks shared by the
// CLI executables: input directories must exist and look like a dataset
// tree, output directories must be writable, and individual dataset files
// must match what the loader can ingest.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"sricli/internal/config"
)

var datasetFileRe = regexp.MustCompile(config.DatasetFilePattern)

// FileValidator provides the pre-flight file checks for the executables.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputDirectory checks that the input directory exists and, when
// a glob pattern is given, reports how many matching files it holds. Zero
// matches is not an error; the caller decides whether an empty run is
// acceptable.
func (v *FileValidator) ValidateInputDirectory(dir string, pattern string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if pattern != "" {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("failed to check for files: %w", err)
		}
		if len(matches) == 0 {
			v.logger.Warn("no files matching pattern found",
				slog.String("directory", dir),
				slog.String("pattern", pattern))
			return nil
		}
		v.logger.Info("input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", len(matches)),
			slog.String("pattern", pattern))
	}

	return nil
}

// ValidateOutputDirectory ensures the output directory exists (creating
// it if needed) and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// ValidateFile checks that a path names an existing, readable regular
// file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateDatasetFile checks that a path names a readable dataset in one
// of the loader's formats and that its name matches the canonical
// sri_ventas_YYYY_MM pattern. Excel lock files (~$...) are rejected.
func (v *FileValidator) ValidateDatasetFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("file %s is an Excel lock file", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".xlsx":
	default:
		return fmt.Errorf("file %s is not a dataset file (extension: %s)", path, ext)
	}

	if !datasetFileRe.MatchString(base) {
		return fmt.Errorf("file %s does not match the dataset naming pattern %s", base, config.DatasetFilePattern)
	}

	return nil
}

// CountFiles counts the regular files matching a glob pattern inside a
// directory.
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	count := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}
