// package models defines the library data model shared across the application.
//
// The central type is [MatchID], the tri-state remote identifier that records
// whether a track or album has been matched against the remote catalog.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/librec/internal/shared"
)

// MatchState enumerates the states a remote identifier passes through.
type MatchState int

const (
	// Unattempted means no match against the remote catalog has been tried yet.
	Unattempted MatchState = iota
	// Absent means a match was attempted and the remote catalog has no entry.
	Absent
	// Matched means a remote identifier was found.
	Matched
)

// MatchID is a tri-state remote identifier: unattempted, confirmed absent, or
// matched to a concrete id.
//
// The zero value is Unattempted. In JSON the three states round-trip as an
// omitted field, an explicit null, and a string respectively, which is the
// interchange format of persisted library snapshots.
type MatchID struct {
	state MatchState
	id    string
}

// MatchedID constructs a MatchID in the Matched state.
func MatchedID(id string) MatchID {
	return MatchID{state: Matched, id: id}
}

// AbsentID constructs a MatchID in the Absent (confirmed missing) state.
func AbsentID() MatchID {
	return MatchID{state: Absent}
}

// State returns the match state.
func (m MatchID) State() MatchState { return m.state }

// ID returns the remote identifier and whether one is present.
func (m MatchID) ID() (string, bool) {
	return m.id, m.state == Matched
}

// IsZero reports whether the id is still Unattempted. It drives the omitzero
// JSON behavior: unattempted ids are omitted from snapshots entirely.
func (m MatchID) IsZero() bool { return m.state == Unattempted }

func (m MatchID) String() string {
	switch m.state {
	case Absent:
		return "absent"
	case Matched:
		return m.id
	default:
		return "unattempted"
	}
}

// MarshalJSON encodes Absent as null and Matched as the bare id string.
func (m MatchID) MarshalJSON() ([]byte, error) {
	if m.state == Matched {
		return json.Marshal(m.id)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes null as Absent and a string as Matched.
func (m *MatchID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = AbsentID()
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("%w: remote id must be a string or null", shared.ErrMalformedInput)
	}
	*m = MatchedID(id)
	return nil
}

// Artist is a credited artist on a track or album.
type Artist struct {
	Name string `json:"name"`
}

// ArtistNames flattens a credit list into plain names.
func ArtistNames(artists []Artist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}

// Track represents a music track in the local library.
type Track struct {
	Title      string   `json:"title"`
	Artists    []Artist `json:"artists"`
	DurationMS int      `json:"duration_ms,omitempty"`
	Explicit   bool     `json:"explicit,omitempty"`
	Remote     MatchID  `json:"remote_id,omitzero"`
}

// Album represents an album in the local library.
type Album struct {
	Name      string   `json:"name"`
	Artists   []Artist `json:"artists"`
	Art       string   `json:"art,omitempty"`
	NumTracks int      `json:"num_tracks,omitempty"`
	Tracks    []Track  `json:"tracks"`
	Remote    MatchID  `json:"remote_id,omitzero"`
}

// Playlist represents a playlist in the local library.
type Playlist struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Tracks      []Track `json:"tracks"`
}

// Library is the persisted library snapshot: the sole interchange format with
// imports, exports, and the local database.
type Library struct {
	Playlists []Playlist `json:"playlists"`
	Albums    []Album    `json:"albums"`
}

// ParseLibrary decodes a library snapshot. A snapshot that fails to parse
// leaves no partial state behind.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedInput, err)
	}
	return &lib, nil
}

// Session is a live authentication credential and its expiry, the sole
// persisted session snapshot.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the session is still valid at the given instant.
func (s Session) Live(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}
