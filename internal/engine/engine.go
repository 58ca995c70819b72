// package engine drives reconciliation of a local library against the remote
// service, one sync item per playlist or album.
//
// Phases fan out across items concurrently; the gateway underneath still
// serializes the actual remote calls, so fan-out here only feeds the batch
// coordinators and the admission queue.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/remote"
	"github.com/desertthunder/librec/internal/shared"
)

// Notifier receives item state changes and human-readable diagnostics. Both
// methods may be called from multiple goroutines.
type Notifier interface {
	Update(item Item)
	Error(msg string)
}

type noopNotifier struct{}

func (noopNotifier) Update(Item)  {}
func (noopNotifier) Error(string) {}

// Item is one reconcilable unit of the library.
type Item interface {
	// Name labels the item for display and logs.
	Name() string
	// Status is the current human-readable state.
	Status() string
	// Committable reports whether Commit would do something.
	Committable() bool
	// Sync matches the item's tracks against the remote catalog.
	Sync(ctx context.Context) error
	// Find locates the item's remote counterpart and computes pending work.
	Find(ctx context.Context) error
	// Commit pushes pending work to the remote library.
	Commit(ctx context.Context) error
}

// Engine owns the item list for one library snapshot.
type Engine struct {
	client   *remote.Client
	logger   *log.Logger
	notifier Notifier
	items    []Item
}

// New builds an engine over the library: one item per playlist, then one per
// album. The library is mutated in place as items sync and commit.
func New(client *remote.Client, lib *models.Library, notifier Notifier, logger *log.Logger) *Engine {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	e := &Engine{client: client, logger: logger, notifier: notifier}
	for i := range lib.Playlists {
		e.items = append(e.items, &PlaylistSync{client: client, data: &lib.Playlists[i]})
	}
	for i := range lib.Albums {
		e.items = append(e.items, &AlbumSync{client: client, data: &lib.Albums[i]})
	}
	return e
}

// Items returns the engine's items in display order.
func (e *Engine) Items() []Item { return e.items }

// HandleLogout resets remote-derived state after a session ends. Register it
// as a gateway logout hook.
func (e *Engine) HandleLogout() {
	e.client.ResetPlaylistCache()
	for _, item := range e.items {
		e.notifier.Update(item)
	}
}

// SyncAll matches every item's tracks against the remote catalog.
func (e *Engine) SyncAll(ctx context.Context) {
	e.fanOut(ctx, "sync", Item.Sync)
}

// FindAll locates every item's remote counterpart. The playlist listing cache
// resets first so each find cycle sees the remote library fresh.
func (e *Engine) FindAll(ctx context.Context) {
	e.client.ResetPlaylistCache()
	e.fanOut(ctx, "find", Item.Find)
}

// Reconcile runs a full sync-then-find pass.
func (e *Engine) Reconcile(ctx context.Context) {
	e.SyncAll(ctx)
	e.FindAll(ctx)
}

// CommitAll pushes every committable item's pending work.
func (e *Engine) CommitAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, item := range e.items {
		if !item.Committable() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.run(ctx, "commit", item, Item.Commit)
		}()
	}
	wg.Wait()
}

func (e *Engine) fanOut(ctx context.Context, phase string, op func(Item, context.Context) error) {
	var wg sync.WaitGroup
	for _, item := range e.items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.run(ctx, phase, item, op)
		}()
	}
	wg.Wait()
}

func (e *Engine) run(ctx context.Context, phase string, item Item, op func(Item, context.Context) error) {
	if err := op(item, ctx); err != nil {
		e.logger.Error(phase+" failed", "item", item.Name(), "error", err)
		e.notifier.Error(fmt.Sprintf("%s %q: %v", phase, item.Name(), err))
	}
	e.notifier.Update(item)
}
