package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/librec/internal/align"
	"github.com/desertthunder/librec/internal/gateway"
	"github.com/desertthunder/librec/internal/shared"
	helpers "github.com/desertthunder/librec/internal/testing"
)

func testBatchConfig() shared.BatchConfig {
	return shared.BatchConfig{
		AlbumFetchSize:   20,
		AlbumFetchWaitMS: 10,
		LibrarySize:      50,
		LibraryWaitMS:    10,
	}
}

func newTestClient(rt http.RoundTripper) *Client {
	g := gateway.New(gateway.Config{}, &http.Client{Transport: rt}, nil)
	g.Login("tok", time.Hour)
	c := NewClient(g, testBatchConfig(), nil)
	c.SetBaseURL("https://api.example.com/v1")
	return c
}

func TestFindTrack(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusOK, map[string]any{
			"tracks": map[string]any{
				"items": []map[string]any{{
					"id":      "t1",
					"name":    "Holiday",
					"artists": []map[string]any{{"id": "a1", "name": "Green Day"}},
					"album":   map[string]any{"id": "al1"},
				}},
			},
		}),
	)
	c := newTestClient(rt)

	match, err := c.FindTrack(context.Background(), "Holiday", []string{"Green Day"})
	if err != nil {
		t.Fatalf("FindTrack failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if id, ok := match.Track.Remote.ID(); !ok || id != "t1" {
		t.Errorf("remote id = %v, want t1", match.Track.Remote)
	}
	if match.AlbumID != "al1" {
		t.Errorf("album id = %q, want al1", match.AlbumID)
	}

	q := rt.Requests[0].URL.Query()
	if q.Get("type") != "track" {
		t.Errorf("search type = %q, want track", q.Get("type"))
	}
	if got := q.Get("q"); !strings.Contains(got, `track:"Holiday"`) || !strings.Contains(got, `artist:"Green Day"`) {
		t.Errorf("unexpected query %q", got)
	}
	if q.Get("market") != "from_token" {
		t.Errorf("market = %q, want from_token", q.Get("market"))
	}
}

func TestFindTrackMissIsNotAnError(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusOK, map[string]any{
			"tracks": map[string]any{"items": []any{}},
		}),
	)
	c := newTestClient(rt)

	match, err := c.FindTrack(context.Background(), "Nonexistent", nil)
	if err != nil {
		t.Fatalf("FindTrack failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %+v", match)
	}
}

func playlistListing(playlists ...map[string]any) *http.Response {
	return helpers.JSONResponse(http.StatusOK, map[string]any{
		"items": playlists,
		"next":  nil,
	})
}

func pl(id, name string) map[string]any {
	return map[string]any{"id": id, "name": name, "owner": map[string]any{"id": "user1"}}
}

func TestFindPlaylistByName(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		playlistListing(pl("p1", "Road Trip"), pl("p2", "Dupes"), pl("p3", "Dupes")),
	)
	c := newTestClient(rt)
	ctx := context.Background()

	ref, err := c.FindPlaylistByName(ctx, "Road Trip")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ref == nil || ref.ID != "p1" || ref.Owner != "user1" {
		t.Errorf("got %+v, want p1 owned by user1", ref)
	}

	if ref, err := c.FindPlaylistByName(ctx, "Missing"); err != nil || ref != nil {
		t.Errorf("missing name should be (nil, nil), got %+v, %v", ref, err)
	}

	if _, err := c.FindPlaylistByName(ctx, "Dupes"); !errors.Is(err, shared.ErrAmbiguousMatch) {
		t.Errorf("expected ErrAmbiguousMatch, got %v", err)
	}

	if rt.Count() != 1 {
		t.Errorf("listing fetched %d times, want 1", rt.Count())
	}
}

func TestFindPlaylistByNameSingleFlight(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		playlistListing(pl("p1", "Road Trip")),
	)
	c := newTestClient(rt)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.FindPlaylistByName(context.Background(), "Road Trip"); err != nil {
				t.Errorf("lookup failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if rt.Count() != 1 {
		t.Errorf("expected one physical listing fetch, got %d", rt.Count())
	}
}

func TestResetPlaylistCacheForcesReload(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		playlistListing(pl("p1", "Road Trip")),
		playlistListing(pl("p1", "Road Trip"), pl("p9", "New")),
	)
	c := newTestClient(rt)
	ctx := context.Background()

	if _, err := c.FindPlaylistByName(ctx, "New"); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}
	c.ResetPlaylistCache()

	ref, err := c.FindPlaylistByName(ctx, "New")
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if ref == nil || ref.ID != "p9" {
		t.Errorf("got %+v, want p9 after reload", ref)
	}
	if rt.Count() != 2 {
		t.Errorf("expected 2 listing fetches, got %d", rt.Count())
	}
}

func TestCreatePlaylist(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusOK, map[string]any{"id": "user1"}),
		helpers.JSONResponse(http.StatusCreated, map[string]any{
			"id": "p1", "name": "Road Trip", "owner": map[string]any{"id": "user1"},
		}),
	)
	c := newTestClient(rt)

	ref, err := c.CreatePlaylist(context.Background(), "Road Trip", "summer drive")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if ref.ID != "p1" || ref.Owner != "user1" {
		t.Errorf("got %+v", ref)
	}

	create := rt.Requests[1]
	if create.Method != "POST" || !strings.HasSuffix(create.URL.Path, "/users/user1/playlists") {
		t.Errorf("unexpected create request %s %s", create.Method, create.URL.Path)
	}
	if body := rt.Bodies[1]; !strings.Contains(body, `"public":false`) {
		t.Errorf("playlist should be private, body %s", body)
	}
}

func TestInsertTracksChunksInReverseOrder(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = "t" + string(rune('0'+i/100)) + string(rune('0'+(i/10)%10)) + string(rune('0'+i%10))
	}

	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusCreated, map[string]any{}),
		helpers.JSONResponse(http.StatusCreated, map[string]any{}),
		helpers.JSONResponse(http.StatusCreated, map[string]any{}),
	)
	c := newTestClient(rt)

	ref := &PlaylistRef{ID: "p1", Owner: "user1", Name: "Road Trip"}
	ops := []align.Insertion{{Position: 3, IDs: ids}}
	if err := c.InsertTracks(context.Background(), ref, ops); err != nil {
		t.Fatalf("InsertTracks failed: %v", err)
	}

	if rt.Count() != 3 {
		t.Fatalf("expected 3 chunked requests, got %d", rt.Count())
	}
	// Last chunk submits first so everything lands at the same position.
	if !strings.Contains(rt.Bodies[0], "spotify:track:"+ids[200]) {
		t.Errorf("first request should carry the final chunk, body %s", rt.Bodies[0])
	}
	if !strings.Contains(rt.Bodies[2], "spotify:track:"+ids[0]) {
		t.Errorf("last request should carry the first chunk, body %s", rt.Bodies[2])
	}
	for i, body := range rt.Bodies {
		if !strings.Contains(body, `"position":3`) {
			t.Errorf("request %d lost the position, body %s", i, body)
		}
	}
}

func TestAlbumInLibraryCoalesces(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusOK, []bool{true, false}),
	)
	c := newTestClient(rt)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	for i, id := range []string{"al1", "al2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.AlbumInLibrary(context.Background(), id)
		}()
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("check %d failed: %v", i, err)
		}
	}
	if !results[0] || results[1] {
		t.Errorf("results = %v, want [true false]", results)
	}
	if rt.Count() != 1 {
		t.Fatalf("expected one coalesced request, got %d", rt.Count())
	}
	if got := rt.Requests[0].URL.Query().Get("ids"); got != "al1,al2" {
		t.Errorf("ids = %q, want al1,al2", got)
	}
}

func TestAlbumPagesTracksToCompletion(t *testing.T) {
	next := "https://api.example.com/v1/albums/al1/tracks?offset=2"
	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusOK, map[string]any{
			"albums": []map[string]any{{
				"id":      "al1",
				"name":    "American Idiot",
				"artists": []map[string]any{{"id": "a1", "name": "Green Day"}},
				"images": []map[string]any{
					{"url": "big.jpg", "height": 640, "width": 640},
					{"url": "small.jpg", "height": 64, "width": 64},
				},
				"total_tracks": 3,
				"tracks": map[string]any{
					"items": []map[string]any{
						{"id": "t1", "name": "Holiday"},
						{"id": "t2", "name": "Letterbomb"},
					},
					"next": next,
				},
			}},
		}),
		helpers.JSONResponse(http.StatusOK, map[string]any{
			"items": []map[string]any{{"id": "t3", "name": "Whatsername"}},
			"next":  nil,
		}),
	)
	c := newTestClient(rt)

	album, err := c.Album(context.Background(), "al1")
	if err != nil {
		t.Fatalf("Album failed: %v", err)
	}
	if album.Name != "American Idiot" || album.NumTracks != 3 {
		t.Errorf("album = %+v", album)
	}
	if album.Art != "small.jpg" {
		t.Errorf("art = %q, want the smallest image", album.Art)
	}
	if len(album.Tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(album.Tracks))
	}
	if id, ok := album.Tracks[2].Remote.ID(); !ok || id != "t3" {
		t.Errorf("paged track id = %v", album.Tracks[2].Remote)
	}
}

func TestSmallestImagePrefersMinimumArea(t *testing.T) {
	images := []wireImage{
		{URL: "big.jpg", Height: 640, Width: 640},
		{URL: "small.jpg", Height: 64, Width: 64},
		{URL: "nosize.jpg"},
	}
	if got := smallestImage(images); got != "nosize.jpg" {
		t.Errorf("got %q, want the zero-area image to win", got)
	}
	if got := smallestImage(nil); got != "" {
		t.Errorf("got %q for no images, want empty", got)
	}
}

func TestPlaylistTracksMarksLocalEntries(t *testing.T) {
	rt := helpers.NewScriptedRoundTripper(
		helpers.JSONResponse(http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"is_local": false, "track": map[string]any{"id": "t1"}},
				{"is_local": true, "track": map[string]any{"id": ""}},
				{"is_local": false, "track": map[string]any{"id": "t2"}},
			},
			"next": nil,
		}),
	)
	c := newTestClient(rt)

	ids, err := c.PlaylistTracks(context.Background(), &PlaylistRef{ID: "p1", Owner: "user1"})
	if err != nil {
		t.Fatalf("PlaylistTracks failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d entries, want 3", len(ids))
	}
	if ids[0] == nil || *ids[0] != "t1" || ids[1] != nil || ids[2] == nil || *ids[2] != "t2" {
		t.Errorf("ids = %v", ids)
	}
}
