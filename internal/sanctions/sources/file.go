// Package sources provides sanctions list providers backed by a YAML file or
// a PostgreSQL database.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"txguard/internal/compliance/models"
	"txguard/internal/sanctions"
)

// reloadDebounce is how long the watcher waits after the last write.
const reloadDebounce = 500 * time.Millisecond

type fileDocument struct {
	Version uint64                  `yaml:"version"`
	Entries []models.SanctionsEntry `yaml:"entries"`
}

// File reads a YAML sanctions list:
//
//	version: 42
//	entries:
//	  - name: Example Trading LLC
//	    aliases: [Example Trading]
//	    identifiers: [{type: address, value: "0x..."}]
//	    program: SDGT
//
// When version is omitted the file's modification time stands in for it.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// CurrentEntries implements sanctions.Provider.
func (f *File) CurrentEntries(ctx context.Context) (sanctions.List, error) {
	if err := ctx.Err(); err != nil {
		return sanctions.List{}, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return sanctions.List{}, models.NewExternalServiceError("sanctions_file", models.ErrorOutage, err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sanctions.List{}, models.NewExternalServiceError("sanctions_file", models.ErrorBadData, fmt.Errorf("parse %s: %w", f.path, err))
	}
	if doc.Version == 0 {
		info, err := os.Stat(f.path)
		if err != nil {
			return sanctions.List{}, models.NewExternalServiceError("sanctions_file", models.ErrorOutage, err)
		}
		doc.Version = uint64(info.ModTime().UnixNano())
	}
	return sanctions.List{Version: doc.Version, Entries: doc.Entries}, nil
}

// Watch calls onChange (debounced) whenever the file is written or replaced.
// It blocks until ctx is cancelled.
func (f *File) Watch(ctx context.Context, onChange func(), logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so atomic rename-into-place updates are seen.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	target := filepath.Clean(f.path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, onChange)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "sanctions file watcher error", "error", err)
		}
	}
}
