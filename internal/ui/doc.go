// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI shows one row per library item (playlists, then albums) with its
// live reconciliation status. Phases run in the background: sync matches
// tracks, find locates remote counterparts, commit pushes pending work for
// the selected item or everything committable at once.
//
// Engine notifications arrive over a channel bridged into bubbletea messages,
// so item rows update as remote calls complete without blocking the engine.
//
// Keyboard navigation uses vim-style bindings (j/k, s, f, enter, a, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
