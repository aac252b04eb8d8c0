package config

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DomainWatcher hot-reloads the notes-domain description used by the input
// guardrail's classification prompt from an optional `notes-domain.yaml`
// file, so an operator can retune it without a restart. Watching only ever
// starts when the file exists at construction time; production deployments
// configure NotesDomainDescription via env var and never touch the
// filesystem again after boot.
type DomainWatcher struct {
	current atomic.Value // string
	watcher *fsnotify.Watcher
}

// NewDomainWatcher seeds the description with defaultDescription and, if
// path is non-empty and exists, starts watching it for content changes.
func NewDomainWatcher(path, defaultDescription string) *DomainWatcher {
	dw := &DomainWatcher{}
	dw.current.Store(defaultDescription)

	if path == "" {
		return dw
	}
	if _, err := os.Stat(path); err != nil {
		return dw
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.WithError(err).Warn("could not start notes-domain description watcher")
		return dw
	}
	if err := watcher.Add(path); err != nil {
		logrus.WithError(err).Warn("could not watch notes-domain description file")
		watcher.Close()
		return dw
	}

	dw.watcher = watcher
	dw.reload(path)
	go dw.loop(path)
	return dw
}

func (dw *DomainWatcher) loop(path string) {
	for event := range dw.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
			dw.reload(path)
		}
	}
}

func (dw *DomainWatcher) reload(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	desc := strings.TrimSpace(string(data))
	desc = strings.TrimPrefix(desc, "description:")
	desc = strings.Trim(strings.TrimSpace(desc), `"'`)
	if desc == "" {
		return
	}
	dw.current.Store(desc)
	logrus.WithField("description", desc).Info("reloaded notes-domain description")
}

// Description returns the currently active domain description.
func (dw *DomainWatcher) Description() string {
	return dw.current.Load().(string)
}

// Close stops the underlying filesystem watch, if one was started.
func (dw *DomainWatcher) Close() error {
	if dw.watcher == nil {
		return nil
	}
	return dw.watcher.Close()
}
