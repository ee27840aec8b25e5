package renderer

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	_ "modernc.org/sqlite"
)

// rasterStateSchema is the layout of a saved raster backend state file.
var rasterStateSchema = []string{
	`CREATE TABLE nodes (
		handle    INTEGER PRIMARY KEY,
		entity_id TEXT NOT NULL UNIQUE,
		kind      TEXT NOT NULL,
		label     INTEGER NOT NULL,
		asset_id  TEXT NOT NULL DEFAULT '',
		bounds    TEXT
	)`,
	`CREATE TABLE properties (
		handle INTEGER NOT NULL REFERENCES nodes(handle),
		name   TEXT NOT NULL,
		value  TEXT NOT NULL,
		PRIMARY KEY (handle, name)
	)`,
	`CREATE TABLE keyframes (
		handle   INTEGER NOT NULL REFERENCES nodes(handle),
		property TEXT NOT NULL,
		frame    INTEGER NOT NULL,
		value    TEXT NOT NULL,
		PRIMARY KEY (handle, property, frame)
	)`,
}

// openStateDB creates a fresh SQLite state file at path, replacing any previous one.
func openStateDB(path string) (*sql.DB, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to replace state file: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	for _, stmt := range rasterStateSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create state schema: %w", err)
		}
	}
	return db, nil
}

func (b *rasterBackend) SaveState(path string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := openStateDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := b.writeState(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	b.logger.Info("renderer state saved", slog.String("path", path), slog.Int("nodes", len(b.nodes)))
	return nil
}

// writeState inserts every node with its properties and keyframes. Caller holds the read lock.
func (b *rasterBackend) writeState(tx *sql.Tx) error {
	for _, h := range slices.Sorted(maps.Keys(b.nodes)) {
		n := b.nodes[h]

		var bounds any
		if n.kind == entity.KindObject {
			raw, err := json.Marshal(n.bounds)
			if err != nil {
				return err
			}
			bounds = string(raw)
		}
		if _, err := tx.Exec(
			`INSERT INTO nodes (handle, entity_id, kind, label, asset_id, bounds) VALUES (?, ?, ?, ?, ?, ?)`,
			int64(h), n.id, n.kind.String(), int64(n.label), n.assetID, bounds,
		); err != nil {
			return fmt.Errorf("save node %q: %w", n.id, err)
		}

		for _, name := range slices.Sorted(maps.Keys(n.properties)) {
			raw, err := json.Marshal(n.properties[name])
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				`INSERT INTO properties (handle, name, value) VALUES (?, ?, ?)`,
				int64(h), name, string(raw),
			); err != nil {
				return fmt.Errorf("save property %q of %q: %w", name, n.id, err)
			}
		}

		for _, prop := range slices.Sorted(maps.Keys(n.keyframes)) {
			for _, k := range n.keyframes[prop] {
				raw, err := json.Marshal(k.Value)
				if err != nil {
					return err
				}
				if _, err := tx.Exec(
					`INSERT INTO keyframes (handle, property, frame, value) VALUES (?, ?, ?, ?)`,
					int64(h), prop, k.Frame, string(raw),
				); err != nil {
					return fmt.Errorf("save keyframe %q@%d of %q: %w", prop, k.Frame, n.id, err)
				}
			}
		}
	}
	return nil
}
