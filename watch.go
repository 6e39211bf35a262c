package servicer

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// WatchOp is the kind of change observed on a unit file
type WatchOp int

const (
	// WatchWrite means the unit file was created or rewritten
	WatchWrite WatchOp = iota
	// WatchRemove means the unit file was removed or renamed away
	WatchRemove
)

// String returns the op name
func (op WatchOp) String() string {
	if op == WatchRemove {
		return "remove"
	}
	return "write"
}

// WatchEvent reports a change to a managed unit file
type WatchEvent struct {
	// Unit is the full unit name, empty when Err is set
	Unit string
	Op   WatchOp
	Err  error
}

// WatchCleanupFunc stops a watch and waits for its goroutine to exit
type WatchCleanupFunc func() error

// WatchUnits watches dir for changes to tool-managed unit files. Bursts of
// events are coalesced for debounce (DefaultWatchDebounce when zero) and
// delivered in unit name order. The channel closes when ctx ends or the
// cleanup function is called.
func WatchUnits(ctx context.Context, dir string, debounce time.Duration) (<-chan WatchEvent, WatchCleanupFunc, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: ActionStatus, Unit: dir, Err: err}
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: ActionStatus, Unit: dir, Err: err}
	}

	ch := make(chan WatchEvent, 10)
	sctx := stopper.WithContext(ctx)

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	sctx.Go(func(sctx *stopper.Context) error {
		defer close(ch)
		defer func() { _ = watcher.Close() }()

		pending := make(map[string]WatchOp)
		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		send := func(ev WatchEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-sctx.Stopping():
				return false
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-ctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				unit := filepath.Base(event.Name)
				if !IsFullName(unit) {
					continue
				}
				switch {
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					pending[unit] = WatchRemove
				case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
					pending[unit] = WatchWrite
				default:
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				units := make([]string, 0, len(pending))
				for u := range pending {
					units = append(units, u)
				}
				sort.Strings(units)
				for _, u := range units {
					if !send(WatchEvent{Unit: u, Op: pending[u]}) {
						return nil
					}
					delete(pending, u)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !send(WatchEvent{Err: &OpError{Op: ActionStatus, Unit: dir, Err: err}}) {
					return nil
				}
			}
		}
	})

	return ch, cleanup, nil
}
