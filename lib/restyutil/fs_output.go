package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	devenv "github.com/Haydos1210/ClassAvailabilityUNSW/dev/env"
)

// FilesystemOutput dumps every request/response pair into its own file,
// handy for diffing what the timetable served between two runs.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput resolves dir through devenv.ResolvePath so
// "<dev_state>/resty" lands under dev/.state. Dumps left by a previous run
// are removed, nothing else in the directory is touched.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = clearDumps(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

// dump files are named by message id
func isDumpName(name string) bool {
	_, err := strconv.ParseUint(name, 10, 64)
	return err == nil
}

func clearDumps(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isDumpName(entry.Name()) {
			continue
		}
		err := os.Remove(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("clear old dump %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
