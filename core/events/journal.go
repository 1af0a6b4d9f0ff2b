package events

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"rcavault/core/types"
	"rcavault/storage"
)

var journalPrefix = []byte("evt/")

type storedEvent struct {
	Seq    uint64
	Type   string
	Keys   []string
	Values []string
}

// JournalEntry is an event together with its position in the journal.
type JournalEntry struct {
	Seq   uint64       `json:"seq"`
	Event *types.Event `json:"event"`
}

// Journal is an Emitter that appends every event to a key-value store so
// indexers can replay the stream after a restart.
type Journal struct {
	mu     sync.Mutex
	db     storage.Database
	next   uint64
	logger *slog.Logger
}

// NewJournal opens a journal over db, resuming the sequence after the last
// stored entry.
func NewJournal(db storage.Database) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: database required")
	}
	j := &Journal{db: db, logger: slog.Default()}
	err := db.Iterate(journalPrefix, func(key, _ []byte) bool {
		if len(key) == len(journalPrefix)+8 {
			j.next = binary.BigEndian.Uint64(key[len(journalPrefix):]) + 1
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	return j, nil
}

// SetLogger overrides the logger used to report write failures.
func (j *Journal) SetLogger(logger *slog.Logger) {
	if logger != nil {
		j.logger = logger
	}
}

func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalPrefix)+8)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[len(journalPrefix):], seq)
	return key
}

// Emit implements the Emitter interface.
func (j *Journal) Emit(evt Event) {
	if j == nil || evt == nil {
		return
	}
	if _, err := j.Append(evt.Event()); err != nil {
		j.logger.Error("journal append failed", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}

// Append stores the event and returns its sequence number.
func (j *Journal) Append(evt *types.Event) (uint64, error) {
	if evt == nil {
		return 0, fmt.Errorf("journal: nil event")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	stored := storedEvent{Seq: j.next, Type: evt.Type}
	for _, key := range evt.SortedKeys() {
		stored.Keys = append(stored.Keys, key)
		stored.Values = append(stored.Values, evt.Attributes[key])
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return 0, err
	}
	if err := j.db.Put(journalKey(stored.Seq), encoded); err != nil {
		return 0, err
	}
	j.next++
	return stored.Seq, nil
}

// Len returns the number of events appended so far.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.next
}

// List returns up to limit entries starting at sequence from.
func (j *Journal) List(from uint64, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		entries []JournalEntry
		decErr  error
	)
	err := j.db.Iterate(journalPrefix, func(key, value []byte) bool {
		if len(key) != len(journalPrefix)+8 {
			return true
		}
		if binary.BigEndian.Uint64(key[len(journalPrefix):]) < from {
			return true
		}
		var stored storedEvent
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			decErr = fmt.Errorf("journal: decode %d: %w", stored.Seq, err)
			return false
		}
		if len(stored.Keys) != len(stored.Values) {
			decErr = fmt.Errorf("journal: corrupt entry %d", stored.Seq)
			return false
		}
		attrs := make(map[string]string, len(stored.Keys))
		for i, k := range stored.Keys {
			attrs[k] = stored.Values[i]
		}
		entries = append(entries, JournalEntry{Seq: stored.Seq, Event: &types.Event{Type: stored.Type, Attributes: attrs}})
		return len(entries) < limit
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, decErr
	}
	return entries, nil
}
