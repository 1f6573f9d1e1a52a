package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type fakeStore struct {
	objects map[string]Object
	data    map[string][]byte
	listErr error
	gets    []string
	presign bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]Object{}, data: map[string][]byte{}}
}

func (f *fakeStore) put(key string, modified time.Time) {
	f.objects[key] = Object{Key: key, LastModified: modified, Size: int64(len(key))}
	f.data[key] = []byte("bytes:" + key)
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.gets = append(f.gets, key)
	data, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return data, nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Object
	for k, o := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	seen := map[string]bool{}
	var out []string
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		child, _, ok := strings.Cut(strings.TrimPrefix(k, prefix), "/")
		if !ok || seen[child] {
			continue
		}
		seen[child] = true
		out = append(out, prefix+child+"/")
	}
	sort.Strings(out)
	return out, nil
}

type presigningStore struct {
	*fakeStore
}

func (p presigningStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example/%s?ttl=%d", key, int(ttl.Seconds())), nil
}
