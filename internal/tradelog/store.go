package tradelog

import (
	"encoding/json"
	"fmt"

	"garm/internal/common"

	"github.com/cockroachdb/pebble"
)

// Store persists executed trades in a pebble keyspace ordered by sequence
// number. Records are only ever added; nothing rewrites or deletes a past
// trade.
type Store struct {
	db *pebble.DB
}

func OpenStore(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("unable to open trade store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes one trade under its sequence key.
func (s *Store) Put(trade common.Trade) error {
	val, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("unable to encode trade %d: %w", trade.Seq, err)
	}
	return s.db.Set(keyFor(trade.Seq), val, pebble.Sync)
}

// Replay streams every stored trade to fn in sequence order.
func (s *Store) Replay(fn func(common.Trade) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("trade/"),
		UpperBound: []byte("trade/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var trade common.Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			return fmt.Errorf("corrupt trade record %q: %w", iter.Key(), err)
		}
		if err := fn(trade); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Zero-padding keeps lexicographic key order equal to numeric seq order.
func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%020d", seq))
}
