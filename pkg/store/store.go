package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/openmol/molscript/pkg/model"
)

// ErrNotFound is returned when no item is saved under a name.
var ErrNotFound = errors.New("store: not found")

// Store persists named model states, atom selections and variable sets in
// a bbolt database so that save and restore survive the session.
type Store struct {
	bolt *bbolt.DB
	now  func() time.Time
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketStates, bucketSelections, bucketVars} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyVersion); v != nil {
			if n, _ := strconv.Atoi(string(v)); n > schemaVersion {
				return fmt.Errorf("schema version %d is newer than %d", n, schemaVersion)
			}
			return nil
		}
		return meta.Put(keyVersion, []byte(strconv.Itoa(schemaVersion)))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}
	return &Store{bolt: db, now: time.Now}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

func (s *Store) put(kind Kind, r *record) error {
	r.Saved = s.now()
	data, err := encodeRecord(r)
	if err != nil {
		return fmt.Errorf("store: encode %s %q: %w", kind, r.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(kind.bucket()).Put(nameKey(r.Name), data)
	})
}

func (s *Store) get(kind Kind, name string) (*record, error) {
	var r *record
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(kind.bucket()).Get(nameKey(name))
		if data == nil {
			return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
		}
		var err error
		r, err = decodeRecord(data)
		return err
	})
	return r, err
}

// PutState saves a model snapshot under name, replacing any earlier one.
func (s *Store) PutState(name string, snap model.Snapshot) error {
	return s.put(KindState, &record{Name: name, Snapshot: snap})
}

// State loads the snapshot saved under name.
func (s *Store) State(name string) (model.Snapshot, error) {
	r, err := s.get(KindState, name)
	if err != nil {
		return model.Snapshot{}, err
	}
	return r.Snapshot, nil
}

// PutSelection saves a list of atom indices under name.
func (s *Store) PutSelection(name string, indices []int) error {
	return s.put(KindSelection, &record{Name: name, Indices: indices})
}

// Selection loads the atom indices saved under name.
func (s *Store) Selection(name string) ([]int, error) {
	r, err := s.get(KindSelection, name)
	if err != nil {
		return nil, err
	}
	return r.Indices, nil
}

// PutVars saves variables, each as the script text of its value.
func (s *Store) PutVars(name string, vars map[string]string) error {
	return s.put(KindVars, &record{Name: name, Vars: vars})
}

// Vars loads a variable set.
func (s *Store) Vars(name string) (map[string]string, error) {
	r, err := s.get(KindVars, name)
	if err != nil {
		return nil, err
	}
	return r.Vars, nil
}

// Entry describes one saved item.
type Entry struct {
	Kind  Kind
	Name  string
	Saved time.Time
}

// List returns the items of one kind sorted by name.
func (s *Store) List(kind Kind) ([]Entry, error) {
	var out []Entry
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(kind.bucket()).ForEach(func(k, v []byte) error {
			r, err := decodeRecord(v)
			if err != nil {
				log.Printf("store: skipping unreadable %s %q: %v", kind, k, err)
				return nil
			}
			out = append(out, Entry{Kind: kind, Name: r.Name, Saved: r.Saved})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the item of kind saved under name.
func (s *Store) Delete(kind Kind, name string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(kind.bucket())
		if b.Get(nameKey(name)) == nil {
			return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
		}
		return b.Delete(nameKey(name))
	})
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("store: create backup %s: %w", path, err)
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return fmt.Errorf("store: write backup: %w", err)
		}
		log.Printf("store: backup written to %s", path)
		return nil
	})
}
