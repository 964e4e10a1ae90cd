// Package artifact records render outputs with owner and lifecycle
// semantics and manages their on-disk layout, per spec.md §4.10.
package artifact

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const recordsBucket = "artifacts"

// Status is an artifact's lifecycle state, per spec.md §3.
type Status string

const (
	StatusLocked Status = "locked"
	StatusSaved  Status = "saved"
)

// Type distinguishes the two renderable output kinds.
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// Orientation classifies the canvas aspect ratio for listing/thumbnailing.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Record is a persisted artifact, per spec.md §3's Artifact type.
type Record struct {
	ID              string      `json:"id"`
	Owner           string      `json:"owner"`
	Name            string      `json:"name"`
	Type            Type        `json:"type"`
	DurationSeconds float64     `json:"duration_seconds"`
	Status          Status      `json:"status"`
	File            string      `json:"file"` // relative to the store's media root
	Orientation     Orientation `json:"orientation"`
	CreatedAt       int64       `json:"created_at"` // unix nanoseconds
	UpdatedAt       int64       `json:"updated_at"`
}

// NotFoundError reports that no record exists for the given id.
type NotFoundError struct{ ID string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("artifact %q not found", e.ID) }

// PermissionError reports that the record exists but is not owned by the
// requesting caller.
type PermissionError struct{ ID, Owner string }

func (e *PermissionError) Error() string {
	return fmt.Sprintf("artifact %q is not owned by %q", e.ID, e.Owner)
}

// StorageError wraps a disk or database failure during a record
// transition, per spec.md §7.
type StorageError struct{ Err error }

func (e *StorageError) Error() string { return fmt.Sprintf("artifact storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Store persists Records in bbolt and lays out their backing files under
// mediaRoot, matching the teacher's pkg/log.DB embedded-store idiom
// generalized from log events to artifact records.
type Store struct {
	mediaRoot string
	db        *bolt.DB

	mu   sync.Mutex
	now  func() int64
	rand func([]byte) (int, error)
}

// Open opens (creating if necessary) the bbolt database at dbPath and
// ensures the media subtree layout exists.
func Open(dbPath, mediaRoot string) (*Store, error) {
	for _, dir := range []string{"locked", "previews", "backgrounds", "processed"} {
		if err := os.MkdirAll(filepath.Join(mediaRoot, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create media subtree %v: %w", dir, err)
		}
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open artifact database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create artifact bucket: %w", err)
	}

	return &Store{
		mediaRoot: mediaRoot,
		db:        db,
		now:       func() int64 { return time.Now().UnixNano() },
		rand:      rand.Read,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// MediaRoot returns the filesystem root artifacts are stored under.
func (s *Store) MediaRoot() string { return s.mediaRoot }

// LockedPath returns the deterministic path for a locked artifact's file,
// per spec.md §4.10: locked/{id}.{ext}.
func (s *Store) LockedPath(id, ext string) string {
	return filepath.Join(s.mediaRoot, "locked", id+"."+ext)
}

// PreviewPath returns a path for a one-off preview render, not tracked as
// a Record: media/previews/{uuid}.{ext}.
func (s *Store) PreviewPath(ext string) (string, error) {
	id, err := s.genID()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.mediaRoot, "previews", id+"."+ext), nil
}

func (s *Store) genID() (string, error) {
	b := make([]byte, 16)
	if _, err := s.rand(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateLocked inserts a new Record in StatusLocked, before the engine has
// produced any output, per spec.md §4.10.
func (s *Store) CreateLocked(owner, name string, typ Type, orientation Orientation) (Record, error) {
	id, err := s.genID()
	if err != nil {
		return Record{}, err
	}
	now := s.now()
	rec := Record{
		ID: id, Owner: owner, Name: name, Type: typ,
		Status: StatusLocked, Orientation: orientation,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.put(rec); err != nil {
		return Record{}, &StorageError{Err: err}
	}
	return rec, nil
}

// MarkSaved transitions a locked record to saved, recording the relative
// file path and duration. Called only after the output file exists.
func (s *Store) MarkSaved(id, relativeFile string, durationSeconds float64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		return Record{}, err
	}
	rec.Status = StatusSaved
	rec.File = relativeFile
	rec.DurationSeconds = durationSeconds
	rec.UpdatedAt = s.now()
	if err := s.put(rec); err != nil {
		return Record{}, &StorageError{Err: err}
	}
	return rec, nil
}

// Rollback deletes a record and its partial file, enforcing the "no file,
// no record" invariant on render failure or client disconnect, per
// spec.md §4.10/§6.
func (s *Store) Rollback(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return nil
		}
		return err
	}
	if err := s.delete(id); err != nil {
		return &StorageError{Err: err}
	}
	if rec.File != "" {
		os.Remove(filepath.Join(s.mediaRoot, rec.File)) //nolint:errcheck
	}
	return nil
}

// Get returns the record with id, enforcing ownership.
func (s *Store) Get(id, owner string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		return Record{}, err
	}
	if rec.Owner != owner {
		return Record{}, &PermissionError{ID: id, Owner: owner}
	}
	return rec, nil
}

// Delete removes a saved artifact's record and backing file, enforcing
// ownership first.
func (s *Store) Delete(ctx context.Context, id, owner string) error {
	rec, err := s.Get(id, owner)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.delete(id); err != nil {
		return &StorageError{Err: err}
	}
	if rec.File != "" {
		if err := os.Remove(filepath.Join(s.mediaRoot, rec.File)); err != nil && !os.IsNotExist(err) {
			return &StorageError{Err: err}
		}
	}
	return nil
}

// List returns all of owner's artifacts, locked and saved, newest first,
// per spec.md §4.10.
func (s *Store) List(owner string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(recordsBucket))
		return b.ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Owner == owner {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *Store) get(id string) (Record, error) {
	var rec Record
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(recordsBucket))
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return Record{}, &StorageError{Err: err}
	}
	if !found {
		return Record{}, &NotFoundError{ID: id}
	}
	return rec, nil
}

func (s *Store) put(rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Put([]byte(rec.ID), value)
	})
}

func (s *Store) delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Delete([]byte(id))
	})
}
