package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sricli/internal/config"
)

// Manager moves report files around the data directory tree. Relative
// paths resolve against the tree; absolute paths pass through.
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// CopyFile copies a file from source to destination
func (m *Manager) CopyFile(src, dst string) error {
	srcPath := m.resolvePath(src)
	dstPath := m.resolvePath(dst)

	slog.Info("Copying file",
		slog.String("src", src),
		slog.String("dst", dst))

	dstDir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return dstFile.Sync()
}

// MoveFile moves a file from source to destination
func (m *Manager) MoveFile(src, dst string) error {
	srcPath := m.resolvePath(src)
	dstPath := m.resolvePath(dst)

	slog.Info("Moving file",
		slog.String("src", src),
		slog.String("dst", dst))

	dstDir := filepath.Dir(dstPath)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Rename is atomic on the same filesystem.
	if err := os.Rename(srcPath, dstPath); err == nil {
		return nil
	}

	if err := m.CopyFile(src, dst); err != nil {
		return err
	}

	return os.Remove(srcPath)
}

// CheckWritable verifies the directory accepts writes by creating and
// removing a probe file. Used by health checks.
func (m *Manager) CheckWritable(dir string) error {
	fullPath := m.resolvePath(dir)

	probe := filepath.Join(fullPath, ".writecheck")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", fullPath, err)
	}
	return os.Remove(probe)
}

// ArchiveOldReports moves report files in dir older than maxAge into an
// archive subdirectory of dir. Returns the number of files archived.
func (m *Manager) ArchiveOldReports(dir string, maxAge time.Duration) (int, error) {
	fullDir := m.resolvePath(dir)
	cutoff := time.Now().Add(-maxAge)
	archiveDir := filepath.Join(fullDir, "archive")

	entries, err := os.ReadDir(fullDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read reports directory: %w", err)
	}

	archived := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		src := filepath.Join(fullDir, entry.Name())
		dst := filepath.Join(archiveDir, entry.Name())
		if err := m.MoveFile(src, dst); err != nil {
			return archived, fmt.Errorf("failed to archive %s: %w", entry.Name(), err)
		}
		archived++
	}

	slog.Info("Archived old reports",
		slog.Int("count", archived),
		slog.String("archive_dir", archiveDir))

	return archived, nil
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	switch {
	case strings.HasPrefix(path, "raw/"):
		return m.paths.GetRawPath(strings.TrimPrefix(path, "raw/"))
	case strings.HasPrefix(path, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(path, "reports/"))
	case strings.HasPrefix(path, "cache/"):
		return m.paths.GetCachePath(strings.TrimPrefix(path, "cache/"))
	case strings.HasPrefix(path, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(path, "logs/"))
	default:
		return filepath.Join(m.paths.DataDir, path)
	}
}
