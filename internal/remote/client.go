// package remote is the library-level client for the remote music catalog.
//
// Every call goes through the request gateway; the cheap per-item lookups
// (album fetch, library membership, library add) are coalesced through batch
// coordinators sized to the remote API's documented limits.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librec/internal/align"
	"github.com/desertthunder/librec/internal/batch"
	"github.com/desertthunder/librec/internal/gateway"
	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/shared"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// AuthorizeURL is the user-facing authorization endpoint.
const AuthorizeURL = "https://accounts.spotify.com/authorize"

// insertChunkSize is the API's per-request cap on playlist track inserts.
const insertChunkSize = 100

// TrackMatch is a catalog hit for a local track: the remote representation
// plus the id of the album it appears on, used for album majority voting.
type TrackMatch struct {
	Track   models.Track
	AlbumID string
}

// PlaylistRef identifies a remote playlist well enough to read and mutate it.
type PlaylistRef struct {
	ID    string
	Owner string
	Name  string
}

// Client exposes the remote catalog and the user's remote library.
type Client struct {
	gw     *gateway.Gateway
	logger *log.Logger
	base   string

	albumFetch *batch.Coordinator[string, wireAlbum]
	libCheck   *batch.Coordinator[string, bool]
	libAdd     *batch.Coordinator[string, struct{}]

	mu     sync.Mutex
	userID string
	// Playlist listing cache, loaded once per generation. A Reset bumps the
	// generation so an in-flight load cannot resurrect stale groups.
	plGroups  map[string][]wirePlaylist
	plLoading chan struct{}
	plErr     error
	plGen     int
}

// NewClient creates a Client over the given gateway. Batch sizes and idle
// windows come from cfg; a nil logger falls back to the shared default.
func NewClient(gw *gateway.Gateway, cfg shared.BatchConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	c := &Client{
		gw:     gw,
		logger: logger,
		base:   DefaultBaseURL,
	}
	c.albumFetch = batch.New(c.fetchAlbums, cfg.AlbumFetchSize, cfg.AlbumFetchWait())
	c.libCheck = batch.New(c.checkLibrary, cfg.LibrarySize, cfg.LibraryWait())
	c.libAdd = batch.New(c.addToLibrary, cfg.LibrarySize, cfg.LibraryWait())
	return c
}

// SetBaseURL overrides the API root, for tests.
func (c *Client) SetBaseURL(base string) { c.base = strings.TrimRight(base, "/") }

// Me returns the authenticated user's id, cached after the first call.
func (c *Client) Me(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.userID != "" {
		id := c.userID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	resp, err := c.gw.Do(ctx, "GET", c.base+"/me", nil)
	if err != nil {
		return "", err
	}
	var user wireUser
	if err := resp.Decode(&user); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.userID = user.ID
	c.mu.Unlock()
	return user.ID, nil
}

// FindTrack searches the catalog for a track by title and artist credits. A
// nil result means the catalog has no match, which is a normal outcome.
func (c *Client) FindTrack(ctx context.Context, title string, artists []string) (*TrackMatch, error) {
	q := fmt.Sprintf("track:%q", title)
	for _, a := range artists {
		q += fmt.Sprintf(" artist:%q", a)
	}

	var body wireSearchTracks
	if err := c.search(ctx, q, "track", &body); err != nil {
		return nil, err
	}
	if len(body.Tracks.Items) == 0 {
		return nil, nil
	}

	hit := body.Tracks.Items[0]
	return &TrackMatch{
		Track:   trackFromWire(hit),
		AlbumID: hit.Album.ID,
	}, nil
}

// FindAlbum searches the catalog for an album by name and artist credits. An
// empty id means no match.
func (c *Client) FindAlbum(ctx context.Context, name string, artists []string) (string, error) {
	q := fmt.Sprintf("album:%q", name)
	for _, a := range artists {
		q += fmt.Sprintf(" artist:%q", a)
	}

	var body wireSearchAlbums
	if err := c.search(ctx, q, "album", &body); err != nil {
		return "", err
	}
	if len(body.Albums.Items) == 0 {
		return "", nil
	}
	return body.Albums.Items[0].ID, nil
}

func (c *Client) search(ctx context.Context, query, kind string, out any) error {
	v := url.Values{}
	v.Set("q", query)
	v.Set("type", kind)
	v.Set("market", "from_token")

	resp, err := c.gw.Do(ctx, "GET", c.base+"/search?"+v.Encode(), nil)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Album fetches an album's full representation, paging its track listing to
// completion. Fetches for distinct ids coalesce into batched requests.
func (c *Client) Album(ctx context.Context, id string) (*models.Album, error) {
	wa, err := c.albumFetch.Call(ctx, id)
	if err != nil {
		return nil, err
	}

	tracks := wa.Tracks.Items
	if wa.Tracks.Next != nil {
		rest, err := gateway.FetchAll[wireAlbumTrack](ctx, c.gw, *wa.Tracks.Next)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, rest...)
	}

	album := &models.Album{
		Name:      wa.Name,
		Artists:   artistsFromWire(wa.Artists),
		Art:       smallestImage(wa.Images),
		NumTracks: wa.TotalTracks,
		Tracks:    make([]models.Track, len(tracks)),
		Remote:    models.MatchedID(wa.ID),
	}
	for i, t := range tracks {
		album.Tracks[i] = models.Track{
			Title:      t.Name,
			Artists:    artistsFromWire(t.Artists),
			DurationMS: t.DurationMS,
			Explicit:   t.Explicit,
			Remote:     models.MatchedID(t.ID),
		}
	}
	return album, nil
}

// AlbumInLibrary reports whether the album is already saved in the user's
// remote library. Checks coalesce into batched requests.
func (c *Client) AlbumInLibrary(ctx context.Context, id string) (bool, error) {
	return c.libCheck.Call(ctx, id)
}

// AddAlbum saves the album to the user's remote library. Adds coalesce into
// batched requests.
func (c *Client) AddAlbum(ctx context.Context, id string) error {
	_, err := c.libAdd.Call(ctx, id)
	return err
}

func (c *Client) fetchAlbums(ctx context.Context, ids []string) ([]wireAlbum, error) {
	v := url.Values{}
	v.Set("ids", strings.Join(ids, ","))
	resp, err := c.gw.Do(ctx, "GET", c.base+"/albums?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var body wireAlbums
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body.Albums, nil
}

func (c *Client) checkLibrary(ctx context.Context, ids []string) ([]bool, error) {
	v := url.Values{}
	v.Set("ids", strings.Join(ids, ","))
	resp, err := c.gw.Do(ctx, "GET", c.base+"/me/albums/contains?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var flags []bool
	if err := resp.Decode(&flags); err != nil {
		return nil, err
	}
	return flags, nil
}

func (c *Client) addToLibrary(ctx context.Context, ids []string) ([]struct{}, error) {
	body := map[string][]string{"ids": ids}
	if _, err := c.gw.Do(ctx, "PUT", c.base+"/me/albums", body); err != nil {
		return nil, err
	}
	return make([]struct{}, len(ids)), nil
}

// FindPlaylistByName resolves a playlist by exact name against a cached
// listing of the user's playlists. The listing loads once; concurrent callers
// share the single load. A nil result means no usable match; more than one
// playlist with the name is reported as ErrAmbiguousMatch.
func (c *Client) FindPlaylistByName(ctx context.Context, name string) (*PlaylistRef, error) {
	groups, err := c.playlistGroups(ctx)
	if err != nil {
		return nil, err
	}

	matches := groups[name]
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		pl := matches[0]
		return &PlaylistRef{ID: pl.ID, Owner: pl.Owner.ID, Name: pl.Name}, nil
	default:
		return nil, fmt.Errorf("%w: %d playlists named %q", shared.ErrAmbiguousMatch, len(matches), name)
	}
}

// ResetPlaylistCache discards the cached playlist listing so the next lookup
// reloads it.
func (c *Client) ResetPlaylistCache() {
	c.mu.Lock()
	c.plGroups = nil
	c.plGen++
	c.mu.Unlock()
}

func (c *Client) playlistGroups(ctx context.Context) (map[string][]wirePlaylist, error) {
	c.mu.Lock()
	if c.plGroups != nil {
		groups := c.plGroups
		c.mu.Unlock()
		return groups, nil
	}
	if c.plLoading != nil {
		done := c.plLoading
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		groups, err := c.plGroups, c.plErr
		c.mu.Unlock()
		if groups == nil && err == nil {
			// The load lost a generation race; try again.
			return c.playlistGroups(ctx)
		}
		return groups, err
	}

	done := make(chan struct{})
	c.plLoading = done
	gen := c.plGen
	c.mu.Unlock()

	items, err := gateway.FetchAll[wirePlaylist](ctx, c.gw, c.base+"/me/playlists?limit=50")

	var groups map[string][]wirePlaylist
	if err == nil {
		groups = make(map[string][]wirePlaylist)
		for _, pl := range items {
			groups[pl.Name] = append(groups[pl.Name], pl)
		}
	}

	c.mu.Lock()
	if gen == c.plGen && err == nil {
		c.plGroups = groups
	}
	c.plErr = err
	c.plLoading = nil
	close(done)
	c.mu.Unlock()

	return groups, err
}

// CreatePlaylist creates a new private playlist owned by the authenticated
// user and invalidates the listing cache.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (*PlaylistRef, error) {
	userID, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}
	resp, err := c.gw.Do(ctx, "POST", fmt.Sprintf("%s/users/%s/playlists", c.base, userID), body)
	if err != nil {
		return nil, err
	}
	var pl wirePlaylist
	if err := resp.Decode(&pl); err != nil {
		return nil, err
	}

	c.ResetPlaylistCache()
	owner := pl.Owner.ID
	if owner == "" {
		owner = userID
	}
	return &PlaylistRef{ID: pl.ID, Owner: owner, Name: pl.Name}, nil
}

// PlaylistTracks returns the playlist's track ids in order, paged to
// completion. Local-only entries come back nil so the aligner treats them as
// unmatchable placeholders.
func (c *Client) PlaylistTracks(ctx context.Context, pl *PlaylistRef) ([]align.TrackID, error) {
	endpoint := fmt.Sprintf("%s/users/%s/playlists/%s/tracks", c.base, pl.Owner, pl.ID)
	items, err := gateway.FetchAll[wirePlaylistTrack](ctx, c.gw, endpoint)
	if err != nil {
		return nil, err
	}

	ids := make([]align.TrackID, len(items))
	for i, item := range items {
		if item.IsLocal || item.Track.ID == "" {
			continue
		}
		ids[i] = align.ID(item.Track.ID)
	}
	return ids, nil
}

// InsertTracks applies the insertions to the playlist. Within one insertion
// the ids are split into chunks the API accepts, submitted in reverse chunk
// order at the same position so the final sequence matches the insertion.
func (c *Client) InsertTracks(ctx context.Context, pl *PlaylistRef, ops []align.Insertion) error {
	for _, op := range ops {
		var chunks [][]string
		for start := 0; start < len(op.IDs); start += insertChunkSize {
			end := min(start+insertChunkSize, len(op.IDs))
			chunks = append(chunks, op.IDs[start:end])
		}

		for i := len(chunks) - 1; i >= 0; i-- {
			uris := make([]string, len(chunks[i]))
			for j, id := range chunks[i] {
				uris[j] = "spotify:track:" + id
			}
			body := map[string]any{"uris": uris, "position": op.Position}
			endpoint := fmt.Sprintf("%s/users/%s/playlists/%s/tracks", c.base, pl.Owner, pl.ID)
			if _, err := c.gw.Do(ctx, "POST", endpoint, body); err != nil {
				return err
			}
		}
	}
	return nil
}

func trackFromWire(t wireTrack) models.Track {
	return models.Track{
		Title:      t.Name,
		Artists:    artistsFromWire(t.Artists),
		DurationMS: t.DurationMS,
		Explicit:   t.Explicit,
		Remote:     models.MatchedID(t.ID),
	}
}

func artistsFromWire(as []wireArtist) []models.Artist {
	out := make([]models.Artist, len(as))
	for i, a := range as {
		out[i] = models.Artist{Name: a.Name}
	}
	return out
}

func smallestImage(images []wireImage) string {
	if len(images) == 0 {
		return ""
	}
	best := images[0]
	for _, img := range images[1:] {
		if img.Height*img.Width < best.Height*best.Width {
			best = img
		}
	}
	return best.URL
}
