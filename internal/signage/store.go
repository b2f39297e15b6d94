// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package signage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/vitrine-hq/vitrine/internal/logging"
	"github.com/vitrine-hq/vitrine/internal/metrics"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("signage entity not found")

// Key prefixes for BadgerDB storage.
const (
	contentKeyPrefix  = "content:"
	playlistKeyPrefix = "playlist:"
	scheduleKeyPrefix = "schedule:"
	deviceKeyPrefix   = "device:"
)

// Store is the Badger-backed persistence layer for the signage domain.
// Entities are stored as JSON values under typed key prefixes.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the Badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open signage store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store for tests.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory signage store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs one Badger value-log garbage collection cycle. Safe to call
// periodically; returns without error when there is nothing to collect.
func (s *Store) RunGC() {
	if err := s.db.RunValueLogGC(0.5); err != nil &&
		!errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
		logging.Warn().Err(err).Msg("Badger value log GC failed")
	}
}

// put marshals v and stores it under prefix+id.
func (s *Store) put(prefix, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s%s: %w", prefix, id, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+id), data)
	})
}

// get loads prefix+id into out.
func (s *Store) get(prefix, id string, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s%s: %w", prefix, id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// del removes prefix+id, failing with ErrNotFound if absent.
func (s *Store) del(prefix, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// list iterates every value under prefix and passes the raw JSON to fn.
func (s *Store) list(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// Content CRUD

func (s *Store) PutContent(item *ContentItem) error {
	err := s.put(contentKeyPrefix, item.ID, item)
	metrics.RecordStoreOperation("put", "content", err)
	return err
}

func (s *Store) GetContent(id string) (*ContentItem, error) {
	var item ContentItem
	if err := s.get(contentKeyPrefix, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListContent() ([]ContentItem, error) {
	var items []ContentItem
	err := s.list(contentKeyPrefix, func(val []byte) error {
		var item ContentItem
		if err := json.Unmarshal(val, &item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func (s *Store) DeleteContent(id string) error {
	err := s.del(contentKeyPrefix, id)
	metrics.RecordStoreOperation("delete", "content", err)
	return err
}

// Playlist CRUD

func (s *Store) PutPlaylist(pl *Playlist) error {
	err := s.put(playlistKeyPrefix, pl.ID, pl)
	metrics.RecordStoreOperation("put", "playlist", err)
	return err
}

func (s *Store) GetPlaylist(id string) (*Playlist, error) {
	var pl Playlist
	if err := s.get(playlistKeyPrefix, id, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (s *Store) ListPlaylists() ([]Playlist, error) {
	var pls []Playlist
	err := s.list(playlistKeyPrefix, func(val []byte) error {
		var pl Playlist
		if err := json.Unmarshal(val, &pl); err != nil {
			return err
		}
		pls = append(pls, pl)
		return nil
	})
	return pls, err
}

func (s *Store) DeletePlaylist(id string) error {
	err := s.del(playlistKeyPrefix, id)
	metrics.RecordStoreOperation("delete", "playlist", err)
	return err
}

// Schedule CRUD

func (s *Store) PutSchedule(sc *Schedule) error {
	if err := sc.ValidateWindow(); err != nil {
		return err
	}
	err := s.put(scheduleKeyPrefix, sc.ID, sc)
	metrics.RecordStoreOperation("put", "schedule", err)
	return err
}

func (s *Store) GetSchedule(id string) (*Schedule, error) {
	var sc Schedule
	if err := s.get(scheduleKeyPrefix, id, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Store) ListSchedules() ([]Schedule, error) {
	var scs []Schedule
	err := s.list(scheduleKeyPrefix, func(val []byte) error {
		var sc Schedule
		if err := json.Unmarshal(val, &sc); err != nil {
			return err
		}
		scs = append(scs, sc)
		return nil
	})
	return scs, err
}

func (s *Store) DeleteSchedule(id string) error {
	err := s.del(scheduleKeyPrefix, id)
	metrics.RecordStoreOperation("delete", "schedule", err)
	return err
}

// Device CRUD

func (s *Store) PutDevice(d *Device) error {
	err := s.put(deviceKeyPrefix, d.ID, d)
	metrics.RecordStoreOperation("put", "device", err)
	return err
}

func (s *Store) GetDevice(id string) (*Device, error) {
	var d Device
	if err := s.get(deviceKeyPrefix, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDevices() ([]Device, error) {
	var ds []Device
	err := s.list(deviceKeyPrefix, func(val []byte) error {
		var d Device
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		ds = append(ds, d)
		return nil
	})
	return ds, err
}

func (s *Store) DeleteDevice(id string) error {
	err := s.del(deviceKeyPrefix, id)
	metrics.RecordStoreOperation("delete", "device", err)
	return err
}

// TouchDevice records a device check-in time.
func (s *Store) TouchDevice(id string, at time.Time) error {
	d, err := s.GetDevice(id)
	if err != nil {
		return err
	}
	d.LastSeenAt = &at
	return s.PutDevice(d)
}
