package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/vmihailenco/msgpack/v5"
)

// Store durably persists Snapshots keyed by sequence number, one
// msgpack-encoded blob per key: snapshots are write-once and read back
// whole by sequence, never queried by field.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) a Pebble database at path for snapshot
// storage.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: open store at %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (st *Store) Close() error {
	return st.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Save persists snap under its Sequence, overwriting any snapshot
// previously stored at that sequence.
func (st *Store) Save(snap *Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: encode sequence %d: %w", snap.Sequence, err)
	}
	if err := st.db.Set(seqKey(snap.Sequence), data, pebble.Sync); err != nil {
		return fmt.Errorf("snapshot: persist sequence %d: %w", snap.Sequence, err)
	}
	return nil
}

// Load returns the snapshot stored at seq, or ok=false if none exists.
func (st *Store) Load(seq uint64) (snap *Snapshot, ok bool, err error) {
	val, closer, err := st.db.Get(seqKey(seq))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: load sequence %d: %w", seq, err)
	}
	defer closer.Close()

	var out Snapshot
	if err := msgpack.Unmarshal(val, &out); err != nil {
		return nil, false, fmt.Errorf("snapshot: decode sequence %d: %w", seq, err)
	}
	return &out, true, nil
}

// Latest returns the highest-sequence snapshot in the store, or
// ok=false if the store is empty.
func (st *Store) Latest() (snap *Snapshot, ok bool, err error) {
	iter, err := st.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: iterate store: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return nil, false, nil
	}
	var out Snapshot
	if err := msgpack.Unmarshal(iter.Value(), &out); err != nil {
		return nil, false, fmt.Errorf("snapshot: decode latest: %w", err)
	}
	return &out, true, nil
}
