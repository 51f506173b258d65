package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/ivanoskov/fintracker/internal/model"
)

// SupabaseStore keeps snapshots in a Supabase table so that several bot
// processes can share conversations.
type SupabaseStore struct {
	client *supabase.Client
	table  string
	ttl    time.Duration
	now    func() time.Time
}

func NewSupabaseStore(url, key, table string, ttl time.Duration) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseStore{
		client: client,
		table:  table,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *SupabaseStore) Get(_ context.Context, userID int64) (Snapshot, error) {
	row, found, err := s.load(userID)
	if err != nil {
		return Snapshot{}, err
	}
	if !found || expired(row.UpdatedAt, s.ttl, s.now()) {
		return IdleSnapshot(), nil
	}
	return fromRow(row), nil
}

func (s *SupabaseStore) Set(ctx context.Context, userID int64, st State) error {
	if st == Idle {
		return s.Clear(ctx, userID)
	}
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	return s.save(userID, st, snap.Context)
}

func (s *SupabaseStore) UpdateContext(ctx context.Context, userID int64, partial map[string]string) error {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	for k, v := range partial {
		snap.Context[k] = v
	}
	return s.save(userID, snap.State, snap.Context)
}

func (s *SupabaseStore) Clear(_ context.Context, userID int64) error {
	_, _, err := s.client.From(s.table).
		Delete("", "").
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to clear user state: %w", err)
	}
	return nil
}

func (s *SupabaseStore) load(userID int64) (model.UserState, bool, error) {
	data, _, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Execute()
	if err != nil {
		return model.UserState{}, false, fmt.Errorf("failed to get user state: %w", err)
	}

	var rows []model.UserState
	if err := json.Unmarshal(data, &rows); err != nil {
		return model.UserState{}, false, fmt.Errorf("failed to parse user state: %w", err)
	}
	if len(rows) == 0 {
		return model.UserState{}, false, nil
	}
	return rows[0], true, nil
}

func (s *SupabaseStore) save(userID int64, st State, data map[string]string) error {
	row := model.UserState{
		UserID:    userID,
		State:     string(st),
		Context:   data,
		UpdatedAt: s.now().UTC(),
	}
	_, _, err := s.client.From(s.table).
		Insert(row, true, "user_id", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to save user state: %w", err)
	}
	return nil
}
