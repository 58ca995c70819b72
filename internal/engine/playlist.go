package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/librec/internal/align"
	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/remote"
	"github.com/desertthunder/librec/internal/shared"
)

// PlaylistSync reconciles one local playlist. Sync matches its tracks, Find
// locates the remote playlist by name and computes the insertions that bring
// it in line, Commit creates the playlist if needed and applies them.
type PlaylistSync struct {
	client *remote.Client
	data   *models.Playlist

	mu         sync.Mutex
	match      *remote.PlaylistRef
	matchState models.MatchState
	pending    []align.Insertion
}

func (p *PlaylistSync) Name() string { return p.data.Name }

func (p *PlaylistSync) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.matchState {
	case models.Absent:
		return "Create Playlist"
	case models.Matched:
		if len(p.pending) > 0 {
			return "Update Playlist"
		}
		return "Up to Date"
	default:
		matched := 0
		for _, t := range p.data.Tracks {
			if t.Remote.State() == models.Matched {
				matched++
			}
		}
		return fmt.Sprintf("Matched %d of %d Tracks", matched, len(p.data.Tracks))
	}
}

func (p *PlaylistSync) Committable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.matchState == models.Absent ||
		(p.matchState == models.Matched && len(p.pending) > 0)
}

// Sync matches each unattempted track against the catalog. A hit replaces the
// local track with the remote representation; a miss is recorded so the track
// is not retried on the next pass. Track writes happen under the item mutex so
// Status can render mid-phase.
func (p *PlaylistSync) Sync(ctx context.Context) error {
	for i := range p.data.Tracks {
		t := &p.data.Tracks[i]
		if !t.Remote.IsZero() {
			continue
		}
		match, err := p.client.FindTrack(ctx, t.Title, models.ArtistNames(t.Artists))
		if err != nil {
			return err
		}
		p.mu.Lock()
		if match == nil {
			t.Remote = models.AbsentID()
		} else {
			*t = match.Track
		}
		p.mu.Unlock()
	}
	return nil
}

// Find locates the remote playlist by name. No remote playlist means the
// whole matched track list becomes one pending insertion at the front; a
// match is aligned against its current remote contents. An ambiguous name is
// treated as no match but still reported.
func (p *PlaylistSync) Find(ctx context.Context) error {
	ref, err := p.client.FindPlaylistByName(ctx, p.data.Name)
	if err != nil {
		if errors.Is(err, shared.ErrAmbiguousMatch) {
			p.mu.Lock()
			p.match = nil
			p.matchState = models.Absent
			p.pending = p.fullInsertion()
			p.mu.Unlock()
		}
		return err
	}

	if ref == nil {
		p.mu.Lock()
		p.match = nil
		p.matchState = models.Absent
		p.pending = p.fullInsertion()
		p.mu.Unlock()
		return nil
	}

	existing, err := p.client.PlaylistTracks(ctx, ref)
	if err != nil {
		return err
	}

	p.mu.Lock()
	desired := make([]align.TrackID, len(p.data.Tracks))
	for i, t := range p.data.Tracks {
		if id, ok := t.Remote.ID(); ok {
			desired[i] = align.ID(id)
		}
	}
	p.match = ref
	p.matchState = models.Matched
	p.pending = align.Align(desired, existing)
	p.mu.Unlock()
	return nil
}

// fullInsertion is the pending work for a playlist that does not exist yet:
// every matched track, in order, inserted at the front.
func (p *PlaylistSync) fullInsertion() []align.Insertion {
	var ids []string
	for _, t := range p.data.Tracks {
		if id, ok := t.Remote.ID(); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return []align.Insertion{{Position: 0, IDs: ids}}
}

// Commit creates the playlist if it has no remote counterpart, then applies
// the pending insertions. Pending work is cleared only after every insertion
// lands.
func (p *PlaylistSync) Commit(ctx context.Context) error {
	p.mu.Lock()
	state := p.matchState
	ref := p.match
	pending := p.pending
	p.mu.Unlock()

	if state == models.Unattempted || (state == models.Matched && len(pending) == 0) {
		return fmt.Errorf("%w: playlist %q has nothing to push", shared.ErrNotCommittable, p.data.Name)
	}

	if state == models.Absent {
		created, err := p.client.CreatePlaylist(ctx, p.data.Name, p.data.Description)
		if err != nil {
			return err
		}
		ref = created
		p.mu.Lock()
		p.match = created
		p.matchState = models.Matched
		p.mu.Unlock()
	}

	if err := p.client.InsertTracks(ctx, ref, pending); err != nil {
		return err
	}

	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
	return nil
}
