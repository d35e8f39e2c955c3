package redis

import (
	"context"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/aisearch/internal/db"
)

// HSetMulti pipelines one HSET per item. The first failing key is reported.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items))
	for _, it := range items {
		cmds = append(cmds, s.hset(it))
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return opError(db.OpHSet, items[i].Key, err)
		}
	}
	return nil
}

// hset emits fields in sorted order so the command is deterministic.
func (s *Store) hset(it db.HashSetItem) rueidis.Completed {
	names := make([]string, 0, len(it.Fields))
	for k := range it.Fields {
		names = append(names, k)
	}
	sort.Strings(names)

	fv := s.client.B().Hset().Key(it.Key).FieldValue()
	for _, k := range names {
		fv = fv.FieldValue(k, it.Fields[k])
	}
	return fv.Build()
}

// HGetAll returns the hash at key. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, opError(db.OpHGetAll, key, err)
	}
	return m, nil
}
