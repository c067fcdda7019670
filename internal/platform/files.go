package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File permissions
const (
	DefaultDirPermissions     = 0755
	PrivateFilePermissions    = 0600
	DefaultSessionFileName    = ".dit.json"
	DefaultDownloadsSubfolder = "dit"
)

// CreateDirectoryIfNotExists creates the directory (and parents) when missing.
// A concurrent creator winning the race is not an error; an existing
// non-directory at dirPath is.
func CreateDirectoryIfNotExists(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("directory path is empty")
	}
	if err := os.MkdirAll(dirPath, DefaultDirPermissions); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dirPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists and is not a directory: %s", dirPath)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// DefaultDownloadDir returns ~/Downloads/dit, or ./saved when no home is known
func DefaultDownloadDir() string {
	dir, err := GetHomeDownloadsDir()
	if err != nil {
		return "saved"
	}
	return filepath.Join(dir, DefaultDownloadsSubfolder)
}

// DefaultSessionPath returns the dotfile in the user's home directory where the
// session store lives. Falls back to the working directory.
func DefaultSessionPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return DefaultSessionFileName
	}
	return filepath.Join(homeDir, DefaultSessionFileName)
}

// WithTempFile creates a temp file, hands it to fn, and removes it afterwards
// regardless of fn's result.
func WithTempFile(dir, pattern string, fn func(f *os.File) error) (err error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = fmt.Errorf("failed to remove temp file: %w", rmErr)
		}
	}()
	return fn(f)
}

// RemoveIfExists deletes path and ignores a missing file
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
