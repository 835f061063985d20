package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	created     time.Time
}

// MemStore is an in-memory ObjectStore used by tests and local runs.
// Writes are atomic at object granularity, matching the publish-after-complete
// contract of the real store.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]memObject

	// Now supplies object creation times; tests override it.
	Now func() time.Time
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]map[string]memObject),
		Now:     time.Now,
	}
}

func (s *MemStore) Exists(ctx context.Context, area, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[area][path]
	return ok, nil
}

func (s *MemStore) Get(ctx context.Context, area, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[area][path]
	if !ok {
		return nil, ErrObjectNotExist
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (s *MemStore) Put(ctx context.Context, area, path string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects[area] == nil {
		s.objects[area] = make(map[string]memObject)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[area][path] = memObject{data: stored, contentType: contentType, created: s.Now()}
	return nil
}

func (s *MemStore) Copy(ctx context.Context, srcArea, srcPath, dstArea, dstPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.objects[srcArea][srcPath]
	if !ok {
		return ErrObjectNotExist
	}
	if s.objects[dstArea] == nil {
		s.objects[dstArea] = make(map[string]memObject)
	}
	data := make([]byte, len(src.data))
	copy(data, src.data)
	s.objects[dstArea][dstPath] = memObject{data: data, contentType: src.contentType, created: s.Now()}
	return nil
}

func (s *MemStore) List(ctx context.Context, area, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var infos []ObjectInfo
	for path, obj := range s.objects[area] {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		infos = append(infos, ObjectInfo{
			Path:        path,
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			Created:     obj.created,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

func (s *MemStore) Delete(ctx context.Context, area, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[area][path]; !ok {
		return ErrObjectNotExist
	}
	delete(s.objects[area], path)
	return nil
}
