package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/remote"
	"github.com/desertthunder/librec/internal/shared"
)

// AlbumSync reconciles one local album. Sync resolves the album against the
// catalog, falling back to a per-track vote when the album search misses;
// Find checks remote library membership; Commit saves the album.
type AlbumSync struct {
	client *remote.Client
	data   *models.Album

	mu        sync.Mutex
	inLibrary *bool
}

func (a *AlbumSync) Name() string { return a.data.Name }

func (a *AlbumSync) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.data.Remote.State() {
	case models.Absent:
		return "Unmatched"
	case models.Matched:
		switch {
		case a.inLibrary == nil:
			return "Matched"
		case *a.inLibrary:
			return "In Library"
		default:
			return "Add to Library"
		}
	default:
		return "Unknown"
	}
}

func (a *AlbumSync) Committable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, matched := a.data.Remote.ID()
	return matched && a.inLibrary != nil && !*a.inLibrary
}

// Sync resolves the album's remote identity. An album search hit wins
// outright; otherwise each track is searched individually and the album ids
// of the hits vote, requiring a strict majority of the matched tracks. Either
// way a winner's full remote representation replaces the local one.
func (a *AlbumSync) Sync(ctx context.Context) error {
	if !a.data.Remote.IsZero() {
		return nil
	}

	id, err := a.client.FindAlbum(ctx, a.data.Name, models.ArtistNames(a.data.Artists))
	if err != nil {
		return err
	}

	if id == "" {
		id, err = a.voteByTracks(ctx)
		if err != nil {
			return err
		}
	}
	if id == "" {
		a.mu.Lock()
		a.data.Remote = models.AbsentID()
		a.mu.Unlock()
		return nil
	}

	full, err := a.client.Album(ctx, id)
	if err != nil {
		return err
	}
	a.mu.Lock()
	*a.data = *full
	a.mu.Unlock()
	return nil
}

// voteByTracks searches each track and elects the album id named by a strict
// majority of the hits. Ties on the top count break toward the id whose
// first supporting track comes earliest.
func (a *AlbumSync) voteByTracks(ctx context.Context) (string, error) {
	counts := make(map[string]int)
	var order []string
	matched := 0

	for _, t := range a.data.Tracks {
		match, err := a.client.FindTrack(ctx, t.Title, models.ArtistNames(t.Artists))
		if err != nil {
			return "", err
		}
		if match == nil || match.AlbumID == "" {
			continue
		}
		matched++
		if counts[match.AlbumID] == 0 {
			order = append(order, match.AlbumID)
		}
		counts[match.AlbumID]++
	}

	winner := ""
	best := 0
	for _, id := range order {
		if counts[id] > best {
			winner = id
			best = counts[id]
		}
	}
	if best*2 <= matched {
		return "", nil
	}
	return winner, nil
}

// Find checks whether the matched album is already in the remote library.
func (a *AlbumSync) Find(ctx context.Context) error {
	id, ok := a.data.Remote.ID()
	if !ok {
		return nil
	}
	in, err := a.client.AlbumInLibrary(ctx, id)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.inLibrary = &in
	a.mu.Unlock()
	return nil
}

// Commit saves the album to the remote library.
func (a *AlbumSync) Commit(ctx context.Context) error {
	id, ok := a.data.Remote.ID()
	if !ok || !a.Committable() {
		return fmt.Errorf("%w: album %q has nothing to push", shared.ErrNotCommittable, a.data.Name)
	}
	if err := a.client.AddAlbum(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	in := true
	a.inLibrary = &in
	a.mu.Unlock()
	return nil
}
