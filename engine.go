// engine.go -- the extendible-hash engine: insert/lookup/delete, local and
// global bucket splits, directory growth.
//
// All mutating and reading operations are serialized through Engine.mu.
// This is the mutex-based substitute for a single cooperative actor owning
// the store exclusively -- an equivalent model for a single-writer store.

// Package xhashdb implements a persistent key-value store built on
// extendible hashing, plus an in-memory write-ahead log for interactive
// transactions. Keys hash to a directory of bucket indices; buckets are
// fixed 4096-byte pages that split -- locally, or globally when the
// directory itself must grow -- as they fill.
package xhashdb

import (
	"os"
	"sync"

	lru "github.com/opencoff/golang-lru"
	"go.uber.org/zap"
)

// maxSplitDepth bounds the split loop: each iteration strictly increases a
// bucket's local level, and an insertion that has split more than
// maxSplitDepth times gives up and reports OversizedRecord.
const maxSplitDepth = 32

// Engine is the persistent extendible-hash key/value store. It owns the
// directory file and buckets file exclusively; all access must go through
// its exported methods.
type Engine struct {
	mu sync.Mutex

	dirFile     *os.File
	bucketsFile *os.File

	dirPath     string
	bucketsPath string

	directory   []uint32
	globalLevel uint8
	bucketCount uint32

	cache *lru.ARCCache

	log *zap.SugaredLogger
}

// EngineOption configures optional Engine behavior at construction time.
type EngineOption func(*Engine)

// WithLogger overrides the engine's structured logger (default: a no-op
// logger, so the zero value of Open's error path never panics on a nil
// logger).
func WithLogger(l *zap.SugaredLogger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithCacheSize overrides the number of decoded bucket pages kept in the
// read cache (default: 128).
func WithCacheSize(n int) EngineOption {
	return func(e *Engine) {
		c, err := lru.NewARC(n)
		if err == nil {
			e.cache = c
		}
	}
}

// Open loads (or initializes) the hash engine from the given directory and
// buckets file paths.
func Open(dirPath, bucketsPath string, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		dirPath:     dirPath,
		bucketsPath: bucketsPath,
		log:         zap.NewNop().Sugar(),
	}
	cache, err := lru.NewARC(128)
	if err != nil {
		return nil, NewError(ErrCodeIO, "create bucket cache", err)
	}
	e.cache = cache

	for _, o := range opts {
		o(e)
	}

	dirFile, dir, level, err := openDirectoryFile(dirPath)
	if err != nil {
		return nil, err
	}
	bucketsFile, count, err := openBucketsFile(bucketsPath)
	if err != nil {
		dirFile.Close()
		return nil, err
	}

	e.dirFile = dirFile
	e.bucketsFile = bucketsFile
	e.directory = dir
	e.globalLevel = level
	e.bucketCount = count

	e.log.Infow("engine opened",
		"dirFile", dirPath, "bucketsFile", bucketsPath,
		"globalLevel", level, "bucketCount", count)

	return e, nil
}

// Get returns the value for key, or (nil, false) if the key does not
// exist.
func (e *Engine) Get(key string) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := hashKey(key)
	b, err := e.loadBucketForHash(h)
	if err != nil {
		return nil, false, err
	}
	for _, r := range b.records {
		if r.hash == h && r.key == key {
			v := make([]byte, len(r.value))
			copy(v, r.value)
			return v, true, nil
		}
	}
	return nil, false, nil
}

// Put inserts or overwrites the value for key.
func (e *Engine) Put(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(key)+len(value) > maxCombinedKeyValueBytes {
		return NewError(ErrCodeOversizedRecord, "key+value too large for any bucket", nil).
			WithDetail("key", key).WithDetail("size", len(key)+len(value))
	}

	h := hashKey(key)
	return e.putRecord(record{hash: h, key: key, value: value}, h)
}

// putRecord inserts rec, whose hash is h, splitting buckets as needed. It is
// the engine-internal core of Put, factored out so that split-loop tests can
// drive it with literal hash bits instead of going through the key hash
// function.
func (e *Engine) putRecord(rec record, h uint64) error {
	idx := e.directory[remainder(h, e.globalLevel)]
	b, err := e.loadBucket(idx)
	if err != nil {
		return err
	}

	for depth := 0; ; depth++ {
		if depth > maxSplitDepth {
			return NewError(ErrCodeOversizedRecord, "exceeded maximum split depth", nil).
				WithDetail("key", rec.key)
		}

		if _, i, ok := b.find(h, rec.key); ok {
			existing := b.records[i]
			grown := rec.byteLen() - existing.byteLen()
			if len(rec.value) <= len(existing.value) || grown <= b.remainingBytes() {
				b.records[i] = rec
				return e.saveBucket(b)
			}
		} else if b.remainingBytes() >= rec.byteLen() {
			b.records = append(b.records, rec)
			return e.saveBucket(b)
		}

		// Neither an in-place overwrite nor an append fits: split, then
		// continue with whichever of the two resulting buckets now
		// owns h.
		var err error
		b, err = e.splitAndFollow(b, h)
		if err != nil {
			return err
		}
	}
}

// Delete removes key, if present. Deleting an absent key is a no-op.
func (e *Engine) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := hashKey(key)
	b, err := e.loadBucketForHash(h)
	if err != nil {
		return err
	}

	out := b.records[:0]
	for _, r := range b.records {
		if r.hash == h && r.key == key {
			continue
		}
		out = append(out, r)
	}
	b.records = out
	return e.saveBucket(b)
}

// Flush writes the directory and bucket-count headers and fsyncs both
// files, without closing them. This is the only durability point: the WAL
// has no crash-recovery log, and individual commits are not fsynced. Safe
// to call repeatedly against a still-open engine, e.g. in response to a
// client-issued flush request that must not disturb other concurrent
// users of the same engine.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	if err := saveDirectory(e.dirFile, e.directory, e.globalLevel); err != nil {
		return err
	}
	if err := writeBucketCount(e.bucketsFile, e.bucketCount); err != nil {
		return err
	}
	if err := e.dirFile.Sync(); err != nil {
		return NewError(ErrCodeIO, "fsync directory file", err)
	}
	if err := e.bucketsFile.Sync(); err != nil {
		return NewError(ErrCodeIO, "fsync buckets file", err)
	}
	e.log.Infow("engine flushed",
		"globalLevel", e.globalLevel, "bucketCount", e.bucketCount)
	return nil
}

// Close flushes the engine and closes its underlying files. This is the
// real process-shutdown path, driven by the owning process (e.g. on
// SIGINT/SIGTERM), never by a single client's request against a shared
// engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.flushLocked(); err != nil {
		return err
	}

	if err := e.dirFile.Close(); err != nil {
		return NewError(ErrCodeIO, "close directory file", err)
	}
	if err := e.bucketsFile.Close(); err != nil {
		return NewError(ErrCodeIO, "close buckets file", err)
	}
	e.log.Infow("engine closed")
	return nil
}

// loadBucketForHash locates and loads the bucket currently responsible for
// hash h.
func (e *Engine) loadBucketForHash(h uint64) (*bucket, error) {
	idx := e.directory[remainder(h, e.globalLevel)]
	return e.loadBucket(idx)
}

// loadBucket reads bucket idx, consulting (and populating) the ARC cache.
func (e *Engine) loadBucket(idx uint32) (*bucket, error) {
	if v, ok := e.cache.Get(idx); ok {
		cached := v.(*bucket)
		// Return a defensive copy: callers mutate in place before
		// saveBucket re-caches the authoritative version.
		cp := &bucket{index: cached.index, level: cached.level, records: append([]record(nil), cached.records...)}
		return cp, nil
	}

	b, err := readBucket(e.bucketsFile, idx)
	if err != nil {
		if ce, ok := err.(*Error); ok && ce.IsFatal() {
			e.log.Errorw("fatal error reading bucket", "bucket", idx, "error", err)
		}
		return nil, err
	}
	e.cache.Add(idx, b)
	return b, nil
}

// saveBucket writes b to disk and refreshes the cache entry.
func (e *Engine) saveBucket(b *bucket) error {
	if err := writeBucket(e.bucketsFile, b); err != nil {
		e.log.Errorw("fatal error writing bucket", "bucket", b.index, "error", err)
		return err
	}
	e.cache.Add(b.index, b)
	return nil
}

// splitAndFollow performs one iteration of the split loop: allocate a
// sibling bucket, bump both buckets' local levels, redistribute records,
// save both pages, fix up the directory (local or global split depending
// on whether the new level still fits under the current global level),
// and return whichever of the two resulting buckets now owns h.
//
// h is always the hash of the record that triggered this split, and
// ogRemainder is recomputed from h and the bucket's current level on every
// call -- never taken from a stale directory index.
func (e *Engine) splitAndFollow(og *bucket, h uint64) (*bucket, error) {
	ogRemainder := remainder(h, og.level)
	oldIndex := og.index

	newBucket := &bucket{index: e.bucketCount, level: og.level + 1}
	og.level++

	var kept []record
	var moved []record
	for _, r := range og.records {
		if remainder(r.hash, og.level) > ogRemainder {
			moved = append(moved, r)
		} else {
			kept = append(kept, r)
		}
	}
	og.records = kept
	newBucket.records = moved

	if err := e.saveBucket(og); err != nil {
		return nil, err
	}
	if err := e.saveBucket(newBucket); err != nil {
		return nil, err
	}
	e.bucketCount++

	if og.level <= e.globalLevel {
		// Local split: the directory doesn't grow. Every existing
		// entry that pointed at the old bucket either keeps pointing
		// at it or is retargeted to the new bucket, depending on
		// which side of ogRemainder its own low bits fall.
		for i := range e.directory {
			if e.directory[i] != oldIndex {
				continue
			}
			if uint64(i)&((uint64(1)<<og.level)-1) > ogRemainder {
				e.directory[i] = newBucket.index
			}
		}
	} else {
		// Global split: double the directory, then place the new
		// entry at the position the original remainder maps to in
		// the upper half, using the global level as it stood before
		// incrementing, so that consecutive global splits within one
		// insertion see a consistent directory at each step.
		oldLen := len(e.directory)
		e.directory = append(e.directory, e.directory...)
		e.directory[uint64(oldLen)+ogRemainder] = newBucket.index
		e.globalLevel++
	}

	e.log.Debugw("bucket split",
		"bucket", oldIndex, "newBucket", newBucket.index,
		"level", og.level, "globalLevel", e.globalLevel)

	if remainder(h, og.level) > ogRemainder {
		return newBucket, nil
	}
	return og, nil
}
