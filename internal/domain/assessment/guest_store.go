package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/localstore"
)

// StorageKey is the key guest results live under.
const StorageKey = "healthAssessments"

// GuestStore keeps a guest's results as one JSON array in local storage.
// Saving replaces the entry of the same category. Unreadable stored data
// reads as empty.
type GuestStore struct {
	storage localstore.LocalStorage
	logger  zerolog.Logger
	check   *LevelCheck

	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

func NewGuestStore(storage localstore.LocalStorage, logger zerolog.Logger) *GuestStore {
	return &GuestStore{
		storage: storage,
		logger:  logger.With().Str("component", "guest_store").Logger(),
	}
}

// SetLevelCheck makes reads verify each stored result's risk level.
func (s *GuestStore) SetLevelCheck(c *LevelCheck) { s.check = c }

// lock serializes read-modify-write cycles of one namespace. Namespaces
// share a fixed set of striped locks.
func (s *GuestStore) lock(namespace string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(namespace))
	l := &s.locks[h.Sum32()%lockStripes]
	l.Lock()
	return l.Unlock
}

func (s *GuestStore) read(ctx context.Context, namespace string) ([]*AssessmentResult, error) {
	raw, ok, err := s.storage.GetItem(ctx, namespace, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read guest storage: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var items []*AssessmentResult
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn().Err(err).Str("guest_id", namespace).Msg("corrupt guest storage treated as empty")
		return nil, nil
	}
	out := items[:0]
	for _, it := range items {
		if it != nil {
			s.check.Check(it)
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *GuestStore) Save(ctx context.Context, who auth.Identity, r *AssessmentResult) error {
	if !who.IsGuest() {
		return fmt.Errorf("%w: %s is not a guest", ErrForbidden, who)
	}
	unlock := s.lock(who.ID)
	defer unlock()

	items, err := s.read(ctx, who.ID)
	if err != nil {
		return err
	}
	kept := make([]*AssessmentResult, 0, len(items)+1)
	for _, it := range items {
		if it.Category != r.Category {
			kept = append(kept, it)
		}
	}
	kept = append(kept, r)

	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("encode guest results: %w", err)
	}
	if err := s.storage.SetItem(ctx, who.ID, StorageKey, string(data)); err != nil {
		return fmt.Errorf("write guest storage: %w", err)
	}
	return nil
}

func (s *GuestStore) GetAll(ctx context.Context, who auth.Identity) ([]*AssessmentResult, error) {
	items, err := s.read(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	return items, nil
}

func (s *GuestStore) GetLatestByCategory(ctx context.Context, who auth.Identity) (map[string]*AssessmentResult, error) {
	items, err := s.read(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	return LatestPerCategory(items), nil
}

func (s *GuestStore) DeleteAll(ctx context.Context, who auth.Identity) error {
	if err := authorizeDelete(ctx, who); err != nil {
		return err
	}
	unlock := s.lock(who.ID)
	defer unlock()
	if err := s.storage.RemoveItem(ctx, who.ID, StorageKey); err != nil {
		return fmt.Errorf("clear guest storage: %w", err)
	}
	return nil
}
