package prompts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch evicts cached prompts whose files change in the override directory
// until ctx is done. When the watcher drops events the whole cache is
// cleared. It is a no-op for loaders without a directory.
func (l *Loader) Watch(ctx context.Context, logger *zap.Logger) error {
	if l.dir == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch prompt dir %s: %w", l.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(event.Name)
				l.Forget(name)
				logger.Info("prompt changed, cache evicted",
					zap.String("prompt", name),
					zap.String("op", event.Op.String()))
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.watchFailed(werr, logger)
			}
		}
	}()

	return nil
}

func (l *Loader) watchFailed(err error, logger *zap.Logger) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		l.ClearCache()
	}
	logger.Warn("prompt watcher error", zap.Error(err))
}
