package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// MemoryStore is an IStore keeping JSON documents in process. Field names in
// filters are the documents' JSON names.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string, out interface{}) error {
	s.mu.RLock()
	data, ok := s.collections[collection][key]
	s.mu.RUnlock()
	if !ok {
		return model.ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (s *MemoryStore) Set(_ context.Context, collection, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string][]byte)
	}
	s.collections[collection][key] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], key)
	return nil
}

type memoryDoc struct {
	raw    []byte
	fields map[string]interface{}
}

func (s *MemoryStore) Query(_ context.Context, collection string, f repository.Filter, out interface{}) error {
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("query %s: out must be a pointer to a slice", collection)
	}
	s.mu.RLock()
	docs := make([]memoryDoc, 0, len(s.collections[collection]))
	for _, raw := range s.collections[collection] {
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			s.mu.RUnlock()
			return err
		}
		docs = append(docs, memoryDoc{raw: raw, fields: fields})
	}
	s.mu.RUnlock()

	matched := docs[:0]
	for _, d := range docs {
		if matches(d.fields, f) {
			matched = append(matched, d)
		}
	}
	if f.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := lessValue(matched[i].fields[f.SortField], matched[j].fields[f.SortField])
			if f.Descending {
				return lessValue(matched[j].fields[f.SortField], matched[i].fields[f.SortField])
			}
			return less
		})
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range matched {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(d.raw)
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}

func matches(fields map[string]interface{}, f repository.Filter) bool {
	for k, want := range f.Equals {
		if !sameJSON(fields[k], want) {
			return false
		}
	}
	for _, k := range f.Missing {
		if v, ok := fields[k]; ok && v != nil {
			return false
		}
	}
	if f.SinceField != "" && f.Since != nil {
		t, ok := asTime(fields[f.SinceField])
		if !ok || t.Before(*f.Since) {
			return false
		}
	}
	return true
}

func sameJSON(a, b interface{}) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func asTime(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

func lessValue(a, b interface{}) bool {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Before(tb)
		}
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	}
	return false
}
