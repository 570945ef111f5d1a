/*
Package storage persists per-resource view state in BoltDB.

A view is what a user was looking at: the filter of a collection and the
page it was on. The console restores views at start and saves them on
every store change, so a restarted watch comes back to the same page.
Server data itself is never stored here; it always comes from the server.

# Layout

	┌──────────────── <state_file> (bbolt) ─────────────────┐
	│                                                        │
	│  view_state                                            │
	│    "check" → {"page": 2, "filter": {"name": "web"}}    │
	│    "log"   → {"page": 0, "filter": {}}                 │
	│    "node"  → {"page": 0, "filter": null}               │
	│                                                        │
	│  meta                                                  │
	│    "server" → "https://zero.example.com"               │
	└────────────────────────────────────────────────────────┘

Filters keep their three states through JSON: null (hidden), {} (shown,
empty) and populated. Switching the configured server clears view_state,
since page and filter values of one console mean nothing on another.

# Usage

	st, err := storage.NewBoltStore(cfg.StateFile)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.BindServer(cfg.Server); err != nil {
		return err
	}
	view, err := st.LoadView("check")
	if errors.Is(err, storage.ErrNotFound) {
		// first run
	}

Writes go through db.Update and are fsynced. Only one process can hold the
file; a second one fails to open it after a one second wait.
*/
package storage
