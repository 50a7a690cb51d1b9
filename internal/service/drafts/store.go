package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/domain/models"
)

// StorageKey is the buffer key the staged sales are persisted under.
const StorageKey = "sales.drafts"

var (
	// ErrDraftNotFound is returned when a position does not address a staged item.
	ErrDraftNotFound = errors.New("draft not found")
	// ErrDraftInFlight is returned when the addressed item is already being committed.
	ErrDraftInFlight = errors.New("draft is being committed")
)

// Buffer is the durable key/value storage backing the staging store.
type Buffer interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Store stages sale line items the user has composed but not committed yet.
// Every mutation is written through to the buffer. Buffer failures are logged and
// the store keeps working from memory for the rest of the session.
//
// Items are addressed by position, but a commit claims the item through a token
// that stays valid while other requests shift positions.
type Store struct {
	mu        sync.Mutex
	buffer    Buffer
	items     []models.SaleLineItem
	slots     []slot // parallel to items, never persisted
	nextToken uint64
	degraded  bool
	logger    *zap.Logger
}

type slot struct {
	token    uint64
	inFlight bool
}

// NewStore builds a staging store and loads whatever the buffer holds.
func NewStore(buffer Buffer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{buffer: buffer, logger: logger}
	s.Load()
	return s
}

// Load replaces the in-memory items with the persisted ones. Missing or malformed
// data yields an empty buffer.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.slots = nil
	if s.buffer == nil {
		s.degraded = true
		return
	}

	raw, found, err := s.buffer.Get(StorageKey)
	if err != nil {
		s.fail(&models.StorageError{Op: "load", Err: err})
		return
	}
	if !found || raw == "" {
		return
	}

	var items []models.SaleLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("discarding malformed draft buffer", zap.Error(err))
		return
	}
	s.items = items
	s.slots = make([]slot, len(items))
	for i := range s.slots {
		s.slots[i] = s.newSlot()
	}
}

// Add appends an item to the staging buffer.
func (s *Store) Add(item models.SaleLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	s.slots = append(s.slots, s.newSlot())
	s.persist()
}

// RemoveAt drops the item at index. An item claimed by a commit cannot be removed.
func (s *Store) RemoveAt(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("remove draft %d: %w", index, ErrDraftNotFound)
	}
	if s.slots[index].inFlight {
		return fmt.Errorf("remove draft %d: %w", index, ErrDraftInFlight)
	}
	s.removeLocked(index)
	return nil
}

// Claim marks the item at index as being committed and returns it with its token.
// Until Settle is called, a second Claim or RemoveAt of the same item fails with
// ErrDraftInFlight.
func (s *Store) Claim(index int) (uint64, models.SaleLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return 0, models.SaleLineItem{}, fmt.Errorf("draft %d: %w", index, ErrDraftNotFound)
	}
	if s.slots[index].inFlight {
		return 0, models.SaleLineItem{}, fmt.Errorf("draft %d: %w", index, ErrDraftInFlight)
	}
	s.slots[index].inFlight = true
	return s.slots[index].token, s.items[index], nil
}

// Settle ends a claim. A committed item is removed wherever it sits now; otherwise it is
// released in place. It reports false when the item is gone, e.g. after Clear.
func (s *Store) Settle(token uint64, committed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.slots {
		if s.slots[i].token != token {
			continue
		}
		if committed {
			s.removeLocked(i)
		} else {
			s.slots[i].inFlight = false
		}
		return true
	}
	return false
}

// Clear empties the buffer, claimed items included.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.slots = nil
	s.persist()
}

// At returns a copy of the item at index.
func (s *Store) At(index int) (models.SaleLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return models.SaleLineItem{}, fmt.Errorf("draft %d: %w", index, ErrDraftNotFound)
	}
	return s.items[index], nil
}

// Items returns a copy of the staged items in order.
func (s *Store) Items() []models.SaleLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SaleLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of staged items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Degraded reports whether the store stopped writing to its buffer.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) newSlot() slot {
	s.nextToken++
	return slot{token: s.nextToken}
}

// removeLocked must be called with s.mu held.
func (s *Store) removeLocked(index int) {
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	s.slots = append(s.slots[:index:index], s.slots[index+1:]...)
	s.persist()
}

// persist must be called with s.mu held.
func (s *Store) persist() {
	if s.degraded {
		return
	}

	items := s.items
	if items == nil {
		items = []models.SaleLineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		s.fail(&models.StorageError{Op: "encode", Err: err})
		return
	}
	if err := s.buffer.Set(StorageKey, string(payload)); err != nil {
		s.fail(&models.StorageError{Op: "write", Err: err})
	}
}

func (s *Store) fail(err error) {
	s.degraded = true
	s.logger.Warn("draft staging is memory-only for this session", zap.Error(err))
}
