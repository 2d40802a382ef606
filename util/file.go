package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// WriteJson writes a pretty-formatted JSON object to a file, creating
// parent directories if required. The write is atomic: the content goes
// to a temporary file in the target directory first and is renamed into
// place, so a crash mid-write never leaves a truncated file behind.
func WriteJson(file string, obj interface{}) error {
	bs, err := json.MarshalIndent(obj, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return WriteBytesAtomic(file, bs, 0600)
}

// WriteBytesAtomic writes bytes to a file using a temporary file and an
// atomic rename. The final file carries the given mode, which matters
// for executables.
func WriteBytesAtomic(file string, bs []byte, mode os.FileMode) error {
	dir, name, err := prepareFileDir(file)
	if err != nil {
		return fmt.Errorf("prepare dir: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".*"+name)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tempFileName := tempFile.Name()

	defer func() {
		if _, err := os.Stat(tempFileName); err == nil {
			if err := os.Remove(tempFileName); err != nil {
				log.Warnf("failed to remove temp file %s: %v", tempFileName, err)
			}
		}
	}()

	if err := os.Chmod(tempFileName, mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("set temp file permissions: %w", err)
	}

	if _, err = tempFile.Write(bs); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tempFileName, err)
	}

	if err = os.Rename(tempFileName, file); err != nil {
		return fmt.Errorf("move %s to %s: %w", tempFileName, file, err)
	}

	return nil
}

// ReadJson reads a JSON file and unmarshals it into the provided value.
func ReadJson(file string, res interface{}) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	bs, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(bs, res); err != nil {
		return err
	}

	return nil
}

// FileExists reports whether the given path exists and is a regular file.
func FileExists(file string) bool {
	s, err := os.Stat(file)
	if err != nil {
		return false
	}
	return s.Mode().IsRegular()
}

// RemoveIfExists removes the specified file if it exists.
func RemoveIfExists(file string) error {
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := os.Remove(file); err != nil {
		return fmt.Errorf("failed to remove file %s: %w", file, err)
	}
	return nil
}

// prepareFileDir ensures the parent directory of file exists.
func prepareFileDir(file string) (string, string, error) {
	dir, name := filepath.Split(file)
	if dir == "" {
		return filepath.Dir(file), name, nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", "", err
	}

	return dir, name, nil
}
