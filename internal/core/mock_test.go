package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/shelfcheck/internal/catalog"
	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/store"
)

// MockObjectStore is a flat key space with modification times.
type MockObjectStore struct {
	Objects map[string]catalog.Object
	Data    map[string][]byte
	Lists   int
	GetErr  error
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: map[string]catalog.Object{}, Data: map[string][]byte{}}
}

func (m *MockObjectStore) Put(key string, data []byte, modified time.Time) {
	m.Objects[key] = catalog.Object{Key: key, LastModified: modified, Size: int64(len(data))}
	m.Data[key] = data
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.Data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, catalog.ErrObjectNotFound)
	}
	return data, nil
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]catalog.Object, error) {
	m.Lists++
	var out []catalog.Object
	for k, o := range m.Objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MockObjectStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	return nil, errors.New("not used")
}

type MockJudge struct {
	mu       sync.Mutex
	Response model.JudgeResponse
	Err      error
	Payloads []model.InvocationPayload
}

func (m *MockJudge) Invoke(ctx context.Context, payload model.InvocationPayload) (model.JudgeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payloads = append(m.Payloads, payload)
	if m.Err != nil {
		return model.JudgeResponse{}, m.Err
	}
	return m.Response, nil
}

func (m *MockJudge) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads)
}

// MockRecords wraps the memory store to count inserts and inject failures.
type MockRecords struct {
	*store.MemoryStore
	Inserts   int
	InsertErr error
}

func NewMockRecords() *MockRecords {
	return &MockRecords{MemoryStore: store.NewMemoryStore()}
}

func (m *MockRecords) Insert(ctx context.Context, rec model.VerificationRecord) error {
	m.Inserts++
	if m.InsertErr != nil {
		return m.InsertErr
	}
	return m.MemoryStore.Insert(ctx, rec)
}
