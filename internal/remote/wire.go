// Remote API response types based on https://developer.spotify.com/documentation/web-api/reference/
package remote

import "github.com/desertthunder/librec/internal/gateway"

type wireImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type wireArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireAlbumRef struct {
	ID string `json:"id"`
}

type wireTrack struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Artists    []wireArtist `json:"artists"`
	Album      wireAlbumRef `json:"album"`
	DurationMS int          `json:"duration_ms"`
	Explicit   bool         `json:"explicit"`
	URI        string       `json:"uri"`
}

type wireAlbumTrack struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Artists    []wireArtist `json:"artists"`
	DurationMS int          `json:"duration_ms"`
	Explicit   bool         `json:"explicit"`
}

type wireAlbum struct {
	ID          string                       `json:"id"`
	Name        string                       `json:"name"`
	Artists     []wireArtist                 `json:"artists"`
	Images      []wireImage                  `json:"images"`
	TotalTracks int                          `json:"total_tracks"`
	Tracks      gateway.Page[wireAlbumTrack] `json:"tracks"`
}

type wireOwner struct {
	ID string `json:"id"`
}

type wirePlaylist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       wireOwner `json:"owner"`
	Public      bool      `json:"public"`
}

type wirePlaylistTrack struct {
	IsLocal bool      `json:"is_local"`
	Track   wireTrack `json:"track"`
}

type wireUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type wireSearchTracks struct {
	Tracks gateway.Page[wireTrack] `json:"tracks"`
}

type wireSearchAlbums struct {
	Albums gateway.Page[wireAlbum] `json:"albums"`
}

type wireAlbums struct {
	Albums []wireAlbum `json:"albums"`
}
