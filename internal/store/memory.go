package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
)

// MemoryStore is the default TransferStore: a mutex-guarded map with a
// secondary index from interactive-token value to transfer id. Suitable for
// development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	transfers map[string]*anchor.Transfer
	tokenToID map[string]string
}

var _ anchor.TransferStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transfers: make(map[string]*anchor.Transfer),
		tokenToID: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, t *anchor.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transfers[t.ID]; ok {
		return anchor.ErrDuplicateID
	}
	stored := t.Clone()
	m.transfers[stored.ID] = stored
	if stored.InteractiveToken != nil {
		m.tokenToID[stored.InteractiveToken.Value] = stored.ID
	}
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*anchor.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *MemoryStore) GetByInteractiveToken(_ context.Context, token string) (*anchor.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.tokenToID[token]
	if !ok {
		return nil, anchor.ErrNotFound
	}
	return m.getLocked(id)
}

func (m *MemoryStore) GetByStellarTxID(_ context.Context, stellarTxID string) (*anchor.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.transfers {
		if t.StellarTxID != "" && t.StellarTxID == stellarTxID {
			return t.Clone(), nil
		}
	}
	return nil, anchor.ErrNotFound
}

func (m *MemoryStore) GetByExternalTxID(_ context.Context, externalTxID string) (*anchor.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.transfers {
		if t.ExternalTxID != "" && t.ExternalTxID == externalTxID {
			return t.Clone(), nil
		}
	}
	return nil, anchor.ErrNotFound
}

func (m *MemoryStore) ListByAccount(_ context.Context, account string, filters anchor.ListFilters) ([]*anchor.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*anchor.Transfer
	for _, t := range m.transfers {
		if t.Account != account {
			continue
		}
		if filters.AssetCode != "" && !strings.EqualFold(t.AssetCode, filters.AssetCode) {
			continue
		}
		if filters.Kind != "" && t.Kind != filters.Kind {
			continue
		}
		if !filters.NotOlderThan.IsZero() && t.CreatedAt.Before(filters.NotOlderThan) {
			continue
		}
		results = append(results, t.Clone())
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if filters.Limit > 0 && len(results) > filters.Limit {
		results = results[:filters.Limit]
	}
	return results, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, update anchor.TransferUpdate) (*anchor.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, anchor.ErrNotFound
	}

	// A chain or external transaction id identifies exactly one transfer.
	if update.StellarTxID != nil && *update.StellarTxID != "" {
		for otherID, other := range m.transfers {
			if otherID != id && other.StellarTxID == *update.StellarTxID {
				return nil, anchor.ErrDuplicateTxID
			}
		}
	}
	if update.ExternalTxID != nil && *update.ExternalTxID != "" {
		for otherID, other := range m.transfers {
			if otherID != id && other.ExternalTxID == *update.ExternalTxID {
				return nil, anchor.ErrDuplicateTxID
			}
		}
	}

	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Amount != nil {
		t.Amount = *update.Amount
	}
	if update.Dest != nil {
		t.Dest = *update.Dest
	}
	if update.DestExtra != nil {
		t.DestExtra = *update.DestExtra
	}
	if update.StellarTxID != nil {
		t.StellarTxID = *update.StellarTxID
	}
	if update.ExternalTxID != nil {
		t.ExternalTxID = *update.ExternalTxID
	}
	if update.Message != nil {
		t.Message = *update.Message
	}
	if update.InteractiveToken != nil {
		if t.InteractiveToken != nil {
			delete(m.tokenToID, t.InteractiveToken.Value)
		}
		token := *update.InteractiveToken
		t.InteractiveToken = &token
		m.tokenToID[token.Value] = t.ID
	}
	if update.CompletedAt != nil {
		completedAt := *update.CompletedAt
		t.CompletedAt = &completedAt
	} else if update.ClearCompletedAt {
		t.CompletedAt = nil
	}
	if update.Metadata != nil {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any, len(update.Metadata))
		}
		for k, v := range update.Metadata {
			t.Metadata[k] = v
		}
	}

	t.UpdatedAt = time.Now().UTC()
	return t.Clone(), nil
}

func (m *MemoryStore) CompleteInteractive(_ context.Context, id, token string, advance func(*anchor.Transfer)) (*anchor.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, anchor.ErrNotFound
	}
	if t.InteractiveToken == nil || t.InteractiveToken.Value != token {
		return nil, anchor.ErrTokenMismatch
	}
	if t.InteractiveToken.Consumed {
		return nil, anchor.ErrTokenConsumed
	}
	if t.InteractiveToken.Expired(time.Now()) {
		return nil, anchor.ErrTokenExpired
	}

	t.InteractiveToken.Consumed = true
	if advance != nil {
		advance(t)
	}
	t.UpdatedAt = time.Now().UTC()
	return t.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[id]
	if !ok {
		return anchor.ErrNotFound
	}
	if t.InteractiveToken != nil {
		delete(m.tokenToID, t.InteractiveToken.Value)
	}
	delete(m.transfers, id)
	return nil
}

func (m *MemoryStore) getLocked(id string) (*anchor.Transfer, error) {
	t, ok := m.transfers[id]
	if !ok {
		return nil, anchor.ErrNotFound
	}
	return t.Clone(), nil
}
