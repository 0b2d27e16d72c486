package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/mememonize/backend/internal/logger"
)

// Subscription is an explicit, cancellable handle on a stream of contract
// events. Close tears the polling loop down and closes the channel.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Subscription) Events() <-chan Event { return s.events }

func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Watcher polls the contract's event log and feeds new entries to
// subscribers. It starts at the chain head: historical events are the
// resolver's job, not the watcher's.
type Watcher struct {
	log      *logger.Logger
	source   EventSource
	event    string
	interval time.Duration
}

func NewWatcher(baseLog *logger.Logger, source EventSource, eventName string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		log:      baseLog.With("component", "LedgerWatcher", "event", eventName),
		source:   source,
		event:    eventName,
		interval: interval,
	}
}

// Subscribe spawns the polling loop and returns its handle. The loop also
// stops when ctx is cancelled.
func (w *Watcher) Subscribe(ctx context.Context) (*Subscription, error) {
	latest, err := w.source.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go w.poll(ctx, sub, latest+1)
	return sub, nil
}

func (w *Watcher) poll(ctx context.Context, sub *Subscription, fromBlock uint64) {
	defer close(sub.done)
	defer close(sub.events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Watching for contract events", "from_block", fromBlock)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Event watcher stopped")
			return
		case <-ticker.C:
		}

		latest, err := w.source.LatestBlock(ctx)
		if err != nil {
			w.log.Warn("Failed to read latest block", "error", err)
			continue
		}
		if latest < fromBlock {
			continue
		}

		events, err := w.source.QueryPastEvents(ctx, w.event, new(big.Int).SetUint64(fromBlock), new(big.Int).SetUint64(latest))
		if err != nil {
			w.log.Warn("Failed to query events", "error", err)
			continue
		}
		for _, ev := range events {
			select {
			case sub.events <- ev:
			case <-ctx.Done():
				w.log.Info("Event watcher stopped")
				return
			}
		}
		fromBlock = latest + 1
	}
}
