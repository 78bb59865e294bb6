package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/rura-ai/rura/internal/db"
)

// vectorField is the hash field holding the embedding blob; payload fields
// live beside it in the same hash.
const vectorField = "vector"

// EnsureCollection creates an HNSW cosine index for the collection if it does
// not exist. Point hashes are keyed {name}:{id}.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	args := []string{
		name,
		"ON", "HASH",
		"PREFIX", "1", pointKey(name, ""),
		"SCHEMA",
		vectorField, "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
	}
	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpEnsure, Err: err}
	}
	return nil
}

// CollectionExists probes via FT.INFO; "unknown index name" means absent.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return true, nil
}

// DropCollection removes the index together with its point hashes.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil
		}
		return &db.Error{Op: db.OpDrop, Err: err}
	}
	return nil
}

// Upsert writes points as hashes in a single DoMulti round-trip. HSET on an
// existing key replaces fields, which gives the replace-on-id semantics.
func (s *Store) Upsert(ctx context.Context, name string, points []db.Point) error {
	if len(points) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(points))
	for i, p := range points {
		cmd := s.b().Hset().Key(pointKey(name, p.ID)).FieldValue()
		cmd = cmd.FieldValue(vectorField, vectorToBytes(p.Vector))
		for k, v := range p.Payload {
			cmd = cmd.FieldValue(k, v)
		}
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpUpsert, Err: fmt.Errorf("point %s: %w", points[i].ID, err)}
		}
	}
	return nil
}

// Search runs a KNN query via FT.SEARCH and returns scored payloads.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]db.ScoredPoint, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(vector) == 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("vector is required")}
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @%s $BLOB]", limit, vectorField)
	args := []string{
		name, queryStr,
		"LIMIT", "0", strconv.Itoa(limit),
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(name, raw), nil
}

// parseKNNResult walks the RESP2 reply: [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(name string, raw []rueidis.RedisMessage) []db.ScoredPoint {
	if len(raw) == 0 {
		return nil
	}
	total, err := raw[0].AsInt64()
	if err != nil || total == 0 {
		return nil
	}

	points := make([]db.ScoredPoint, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		p := db.ScoredPoint{
			ID:      pointID(name, key),
			Payload: parseFieldPairs(fields),
		}
		if scoreStr, ok := p.Payload["__vector_score"]; ok {
			if dist, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				// cosine distance → similarity, clamped to [0,1]
				p.Score = float32(max(0, 1.0-dist))
			}
			delete(p.Payload, "__vector_score")
		}
		delete(p.Payload, vectorField)
		points = append(points, p)
	}
	return points
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	out := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, err := fields[i].ToString()
		if err != nil {
			continue
		}
		v, err := fields[i+1].ToString()
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out
}

func pointKey(collection, id string) string {
	return collection + ":" + id
}

func pointID(collection, key string) string {
	prefix := pointKey(collection, "")
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

// vectorToBytes encodes float32s as the little-endian blob FT.SEARCH expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
