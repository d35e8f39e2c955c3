package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Entries live under tbl:<generation>:<record_id>. The generation key names the
// live one and is flipped only after a full write.
const (
	badgerKeyPrefix = "tbl:"
	badgerGenKey    = "meta:table_generation"
)

func generationPrefix(gen uint64) []byte {
	return []byte(badgerKeyPrefix + strconv.FormatUint(gen, 10) + ":")
}

// BadgerSource keeps the table in a badger database, one key per record.
type BadgerSource struct {
	db  *badger.DB
	dir string
}

// OpenBadger opens (or creates) the badger directory. An empty dir opens an in-memory store.
func OpenBadger(dir string) (*BadgerSource, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	return &BadgerSource{db: db, dir: dir}, nil
}

// Name returns the badger directory.
func (s *BadgerSource) Name() string {
	if s.dir == "" {
		return "badger:memory"
	}
	return s.dir
}

// Close releases the database.
func (s *BadgerSource) Close() error {
	return s.db.Close()
}

// Load reads the live generation. An empty database gives ErrNotReady.
func (s *BadgerSource) Load(_ context.Context) (*Table, error) {
	var entries []Entry
	err := s.db.View(func(tx *badger.Txn) error {
		gen, ok, err := generation(tx)
		if err != nil || !ok {
			return err
		}
		prefix := generationPrefix(gen)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var fe fileEntry
				if err := json.Unmarshal(val, &fe); err != nil {
					return fmt.Errorf("decode %s: %w", id, err)
				}
				entries = append(entries, fe.entry(id))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load badger table: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: badger table is empty", domain.ErrNotReady)
	}
	return New(entries, s.Name()), nil
}

// Save writes entries as a new generation and then makes it live. A failed
// write leaves the previous table in place.
func (s *BadgerSource) Save(_ context.Context, entries []Entry) (int64, error) {
	var (
		cur    uint64
		hasCur bool
	)
	err := s.db.View(func(tx *badger.Txn) error {
		var err error
		cur, hasCur, err = generation(tx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read table generation: %w", err)
	}
	next := cur + 1
	prefix := generationPrefix(next)

	// leftovers of an earlier failed save
	if err := s.db.DropPrefix(prefix); err != nil {
		return 0, fmt.Errorf("drop staged keys: %w", err)
	}

	size, err := s.writeGeneration(prefix, entries)
	if err != nil {
		_ = s.db.DropPrefix(prefix)
		return 0, err
	}

	err = s.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(badgerGenKey), []byte(strconv.FormatUint(next, 10)))
	})
	if err != nil {
		_ = s.db.DropPrefix(prefix)
		return 0, fmt.Errorf("publish table generation: %w", err)
	}

	if hasCur {
		if err := s.db.DropPrefix(generationPrefix(cur)); err != nil {
			return size, fmt.Errorf("drop previous table: %w", err)
		}
	}
	return size, nil
}

func (s *BadgerSource) writeGeneration(prefix []byte, entries []Entry) (int64, error) {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	var size int64
	for _, e := range entries {
		val, err := json.Marshal(toFileEntry(e))
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", e.Record.ID, err)
		}
		key := append(append([]byte{}, prefix...), e.Record.ID...)
		if err := wb.Set(key, val); err != nil {
			return 0, fmt.Errorf("set %s: %w", e.Record.ID, err)
		}
		size += int64(len(val))
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush table: %w", err)
	}
	return size, nil
}

func generation(tx *badger.Txn) (uint64, bool, error) {
	item, err := tx.Get([]byte(badgerGenKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var gen uint64
	err = item.Value(func(val []byte) error {
		gen, err = strconv.ParseUint(string(val), 10, 64)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("parse table generation: %w", err)
	}
	return gen, true, nil
}
