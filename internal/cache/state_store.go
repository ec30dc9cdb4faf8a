package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coindrift/internal/domain"
)

const snapshotTTL = 24 * time.Hour

// StateStore keeps the decision state and the latest indicator snapshot
// per market and granularity so a restarted bot resumes where it left off.
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

func stateKey(market string, granularity int) string {
	return fmt.Sprintf("coindrift:state:%s:%d", market, granularity)
}

func snapshotKey(market string, granularity int) string {
	return fmt.Sprintf("coindrift:snapshot:%s:%d", market, granularity)
}

func (s *StateStore) SaveState(ctx context.Context, market string, granularity int, st domain.DecisionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal decision state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(market, granularity), data, 0).Err(); err != nil {
		return fmt.Errorf("save decision state: %w", err)
	}
	return nil
}

// LoadState returns the persisted state for the market, or a zero state
// and false when none has been saved yet.
func (s *StateStore) LoadState(ctx context.Context, market string, granularity int) (domain.DecisionState, bool, error) {
	data, err := s.rdb.Get(ctx, stateKey(market, granularity)).Bytes()
	if err == redis.Nil {
		return domain.DecisionState{}, false, nil
	}
	if err != nil {
		return domain.DecisionState{}, false, fmt.Errorf("load decision state: %w", err)
	}
	var st domain.DecisionState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.DecisionState{}, false, fmt.Errorf("unmarshal decision state: %w", err)
	}
	return st, true, nil
}

func (s *StateStore) SaveSnapshot(ctx context.Context, market string, granularity int, snap domain.IndicatorSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(market, granularity), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *StateStore) LoadSnapshot(ctx context.Context, market string, granularity int) (domain.IndicatorSnapshot, bool, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(market, granularity)).Bytes()
	if err == redis.Nil {
		return domain.IndicatorSnapshot{}, false, nil
	}
	if err != nil {
		return domain.IndicatorSnapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.IndicatorSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.IndicatorSnapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}
