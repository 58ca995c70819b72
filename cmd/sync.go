package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/librec/internal/engine"
	"github.com/desertthunder/librec/internal/models"
	"github.com/urfave/cli/v3"
)

// plainNotifier prints engine events as they happen.
type plainNotifier struct {
	r *Runner
}

func (n plainNotifier) Update(item engine.Item) {
	n.r.writePlain("  %s → %s\n", item.Name(), item.Status())
}

func (n plainNotifier) Error(msg string) {
	n.r.logger.Warn(msg)
}

// SyncRun matches tracks and locates remote counterparts, then saves the
// updated snapshot.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	eng, lib, err := r.buildEngine()
	if err != nil {
		return err
	}

	r.writePlain("Reconciling %d items...\n", len(eng.Items()))
	eng.Reconcile(ctx)

	if err := r.saveLibrary(lib); err != nil {
		return err
	}

	committable := 0
	for _, item := range eng.Items() {
		if item.Committable() {
			committable++
		}
	}
	return r.writePlainln("✓ Done; %d items have pending work (run `sync push` to commit)", committable)
}

// SyncPush reconciles and then commits everything with pending work.
func (r *Runner) SyncPush(ctx context.Context, cmd *cli.Command) error {
	eng, lib, err := r.buildEngine()
	if err != nil {
		return err
	}

	r.writePlain("Reconciling %d items...\n", len(eng.Items()))
	eng.Reconcile(ctx)

	r.writePlain("Committing...\n")
	eng.CommitAll(ctx)

	if err := r.saveLibrary(lib); err != nil {
		return err
	}
	return r.writePlainln("✓ Push complete")
}

// buildEngine restores the session and assembles an engine over the stored
// library snapshot.
func (r *Runner) buildEngine() (*engine.Engine, *models.Library, error) {
	if err := r.restoreSession(); err != nil {
		return nil, nil, err
	}

	library, err := r.loadLibrary()
	if err != nil {
		return nil, nil, err
	}
	if len(library.Playlists) == 0 && len(library.Albums) == 0 {
		return nil, nil, fmt.Errorf("library snapshot is empty")
	}

	eng := engine.New(r.client, library, plainNotifier{r: r}, r.logger)
	r.gateway.OnLogout(eng.HandleLogout)
	return eng, library, nil
}
