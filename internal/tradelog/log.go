package tradelog

import (
	"sync"

	"garm/internal/common"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const writeQueueSize = 1024

// Log is the append-only execution history. Sequence numbers are assigned
// here, start at 1 and stay contiguous, so trades[i] always holds seq i+1.
//
// Persistence is write-behind: Append never waits on disk, a tomb-managed
// writer drains appended trades into the Store. Readers only ever see
// fully appended records.
type Log struct {
	mu     sync.RWMutex
	trades []common.Trade

	store *Store
	queue chan common.Trade
	t     *tomb.Tomb
}

// New builds a log, replaying the store (when given) so sequence numbers
// continue across restarts.
func New(store *Store) (*Log, error) {
	l := &Log{store: store}
	if store == nil {
		return l, nil
	}

	err := store.Replay(func(trade common.Trade) error {
		l.trades = append(l.trades, trade)
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.queue = make(chan common.Trade, writeQueueSize)
	l.t = &tomb.Tomb{}
	l.t.Go(l.writer)
	return l, nil
}

// Append stamps the next sequence number onto the trade, records it and
// hands it to the persistence writer. The stamped trade is returned.
func (l *Log) Append(trade common.Trade) common.Trade {
	l.mu.Lock()
	trade.Seq = uint64(len(l.trades)) + 1
	l.trades = append(l.trades, trade)
	l.mu.Unlock()

	if l.queue != nil {
		select {
		case l.queue <- trade:
		default:
			// Matching must not stall on a slow disk. The in-memory log
			// stays authoritative; the dropped write is recoverable only
			// by operator action, so shout about it.
			log.Error().Uint64("seq", trade.Seq).Msg("trade store queue full, record not persisted")
		}
	}
	return trade
}

// Get looks a trade up by sequence number.
func (l *Log) Get(seq uint64) (common.Trade, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq == 0 || seq > uint64(len(l.trades)) {
		return common.Trade{}, false
	}
	return l.trades[seq-1], true
}

// Trades returns a copy of the full history in execution order.
func (l *Log) Trades() []common.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]common.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len returns the number of executed trades, which is also the sequence
// number of the most recent one.
func (l *Log) Len() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.trades))
}

// Close flushes pending writes and stops the persistence writer. The
// underlying store is left open for the caller to close.
func (l *Log) Close() error {
	if l.t == nil {
		return nil
	}
	l.t.Kill(nil)
	return l.t.Wait()
}

func (l *Log) writer() error {
	for {
		select {
		case trade := <-l.queue:
			if err := l.store.Put(trade); err != nil {
				log.Error().Err(err).Uint64("seq", trade.Seq).Msg("unable to persist trade")
			}
		case <-l.t.Dying():
			// Flush whatever is still queued before exiting.
			for {
				select {
				case trade := <-l.queue:
					if err := l.store.Put(trade); err != nil {
						log.Error().Err(err).Uint64("seq", trade.Seq).Msg("unable to persist trade")
					}
				default:
					return nil
				}
			}
		}
	}
}
