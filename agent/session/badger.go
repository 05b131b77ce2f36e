package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

type BadgerConfig struct {
	Path     string `envconfig:"PATH" split_words:"true" default:"./data/sessions"`
	InMemory bool   `envconfig:"IN_MEMORY" split_words:"true" default:"false"`
}

// BadgerStore persists session logs in BadgerDB.
//
// Item keys are "sess:{id}:item:{seq}" with a 19-digit zero-padded sequence so
// a forward prefix scan yields items in insertion order. The sequence counter
// lives under "sess:{id}:seq" and is bumped in the same transaction as the
// append, which keeps ordering correct under the single-writer assumption.
// The active-specialist pointer lives under "sess:{id}:agent".
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger session store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Append(ctx context.Context, sessionID string, item contractx.Item) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(item.Content) == "" && item.Role != contractx.RoleTool {
		return ErrNilItem
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal session item: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, sessionID)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("sess:%s:item:%019d", sessionID, seq)
		return txn.Set([]byte(key), payload)
	})
}

func (s *BadgerStore) Items(ctx context.Context, sessionID string) ([]contractx.Item, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	var items []contractx.Item
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("sess:%s:item:", sessionID))
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var item contractx.Item
				if err := json.Unmarshal(v, &item); err != nil {
					return fmt.Errorf("unmarshal session item: %w", err)
				}
				items = append(items, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *BadgerStore) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	return s.db.Update(func(txn *badger.Txn) error {
		prefix := []byte("sess:" + sessionID + ":")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) ActiveSpecialist(ctx context.Context, sessionID string) (contractx.SpecialistName, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}

	name := contractx.SpecialistTriage
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(agentKey(sessionID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			name = contractx.SpecialistName(v)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (s *BadgerStore) SetActiveSpecialist(ctx context.Context, sessionID string, name contractx.SpecialistName) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(agentKey(sessionID)), []byte(name))
	})
}

func agentKey(sessionID string) string {
	return "sess:" + sessionID + ":agent"
}

func nextSeq(txn *badger.Txn, sessionID string) (uint64, error) {
	key := []byte("sess:" + sessionID + ":seq")

	var seq uint64
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("corrupt sequence key for session=%s", sessionID)
			}
			seq = binary.BigEndian.Uint64(v)
			return nil
		}); err != nil {
			return 0, err
		}
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return seq, nil
}
