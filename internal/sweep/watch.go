package sweep

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/bindery/internal/observability"
	"git.home.luguber.info/inful/bindery/internal/unit"
)

// Watch recompiles units as their sources change under root, until the
// context is canceled.
func (s *Service) Watch(ctx context.Context, root string, formats []unit.Format) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	addTree := func(dir string) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() {
				return nil
			}
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
	}
	if err := addTree(root); err != nil {
		return err
	}

	observability.InfoContext(ctx, "Watching for source changes", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			observability.WarnContext(ctx, "Watcher error", slog.Any("error", err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, watcher, event, formats, addTree)
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, formats []unit.Format, addTree func(string) error) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addTree(event.Name); err != nil {
				observability.WarnContext(ctx, "Could not watch new directory",
					slog.String("dir", event.Name), slog.Any("error", err))
			}
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
		return
	}
	if !strings.HasSuffix(event.Name, s.cfg.Suffix) {
		return
	}

	dir := filepath.Dir(event.Name)
	name := strings.TrimSuffix(filepath.Base(event.Name), s.cfg.Suffix)
	observability.InfoContext(ctx, "Source changed, recompiling",
		slog.String("unit", name), slog.String("op", event.Op.String()))

	if err := s.CompileUnit(ctx, dir, name, formats, nil); err != nil && !errors.Is(err, unit.ErrBusy) {
		observability.ErrorContext(ctx, "Recompilation failed",
			slog.String("unit", name), slog.Any("error", err))
	}
}
