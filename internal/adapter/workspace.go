// Package adapter contains infrastructure adapters for the culprit CLI:
// oracle subprocess execution, workspace scoping, report persistence, and
// compiler option expansion.
package adapter

import (
	"io"
	"os"
	"path/filepath"
)

// WorkspaceAdapter abstracts the filesystem operations needed to give each
// trial an isolated working directory, so concurrent builds of differing
// option sets never share mutable build state.
type WorkspaceAdapter interface {
	// CreateTempDir creates a fresh scratch directory for one trial.
	CreateTempDir(pattern string) (string, error)

	// CopyDir recursively copies a directory tree.
	CopyDir(src, dst string) error

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path string) error
}

// LocalWorkspaceAdapter is the os-backed WorkspaceAdapter implementation.
type LocalWorkspaceAdapter struct{}

// NewLocalWorkspaceAdapter constructs a LocalWorkspaceAdapter.
func NewLocalWorkspaceAdapter() *LocalWorkspaceAdapter {
	return &LocalWorkspaceAdapter{}
}

// CreateTempDir creates a temporary directory for one trial.
func (a *LocalWorkspaceAdapter) CreateTempDir(pattern string) (string, error) {
	return os.MkdirTemp("", pattern)
}

// RemoveAll removes a directory and all its contents.
func (a *LocalWorkspaceAdapter) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CopyDir recursively copies a directory tree.
func (a *LocalWorkspaceAdapter) CopyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		// Skip common directories that don't need to be copied
		if info.IsDir() {
			baseName := filepath.Base(path)
			if baseName == ".git" || baseName == "vendor" || baseName == "node_modules" {
				return filepath.SkipDir
			}
		}

		targetPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(targetPath, info.Mode())
		}

		return copyFile(path, targetPath, info.Mode())
	})
}

// copyFile copies a single file.
func copyFile(src, dst string, mode os.FileMode) error {
	// #nosec G304 - src is an internal project file path, not user input
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	// #nosec G304 - dst is an internal destination path, not user input
	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer func() { _ = destFile.Close() }()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return os.Chmod(dst, mode)
}
