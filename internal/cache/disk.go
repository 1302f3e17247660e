package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "clips.index"

// DiskCache is the L2 level: clips stored as files under one directory,
// zstd-compressed when that saves space, with a gob index.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	Key        string
	File       string // name relative to dir
	Size       int64  // bytes on disk
	Stored     time.Time
	LastAccess time.Time
	Compressed bool
}

// NewDiskCache opens (or creates) a disk cache in dir. A compressionLevel of
// 0 stores clips uncompressed.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so a cache written compressed can be
	// read back with compression turned off.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = decoder

	if err := dc.loadIndex(); err != nil {
		// An unreadable index only costs us the cached clips.
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}

	return dc, nil
}

// Get reads a clip from disk. Missing or corrupt files are dropped.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		dc.removeEntry(entry)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put writes a clip to disk, evicting least recently used clips as needed.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data := value
	compressed := false
	if dc.encoder != nil && len(value) > 1024 {
		if packed := dc.encoder.EncodeAll(value, nil); len(packed) < len(value) {
			data = packed
			compressed = true
		}
	}

	diskSize := int64(len(data))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		dc.removeEntry(existing)
	}
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	name := key + ".clip"
	if err := writeFileAtomic(filepath.Join(dc.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		File:       name,
		Size:       diskSize,
		Stored:     now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += diskSize
	return nil
}

// Delete removes a clip.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.removeEntry(entry)
	}
	return nil
}

// Clear removes every clip and writes an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		dc.removeEntry(entry)
	}
	return dc.saveIndex()
}

// Contains checks for a key without reading the file.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Size returns the bytes used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns cache statistics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.Items = int64(len(dc.index))
	return stats.withHitRate()
}

// RemoveOlderThan drops clips stored before cutoff and returns how many.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for _, entry := range dc.index {
		if entry.Stored.Before(cutoff) {
			dc.removeEntry(entry)
			removed++
		}
	}
	return removed
}

// EvictLRU frees space down to 90% of capacity and returns the number of
// evicted clips.
func (dc *DiskCache) EvictLRU() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	target := dc.capacity * 90 / 100
	if dc.size <= target {
		return 0
	}

	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})

	evicted := 0
	for _, e := range entries {
		if dc.size <= target {
			break
		}
		dc.removeEntry(e)
		dc.stats.Evictions++
		evicted++
	}
	if evicted > 0 {
		dc.stats.LastEvict = time.Now()
	}
	return evicted
}

// Close saves the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	dc.decoder.Close()
	return dc.saveIndex()
}

func (dc *DiskCache) evictOldest() {
	var oldest *diskEntry
	for _, e := range dc.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		dc.removeEntry(oldest)
		dc.stats.Evictions++
		dc.stats.LastEvict = time.Now()
	}
}

func (dc *DiskCache) removeEntry(e *diskEntry) {
	_ = os.Remove(filepath.Join(dc.dir, e.File))
	delete(dc.index, e.Key)
	dc.size -= e.Size
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if err := gob.NewDecoder(f).Decode(&dc.index); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheCorrupted, err)
	}
	return nil
}

func (dc *DiskCache) saveIndex() error {
	f, err := os.CreateTemp(dc.dir, indexFile+".*")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(dc.index); err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dc.dir, indexFile))
}

// writeFileAtomic writes through a temp file so readers never see a partial clip.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	return os.Rename(tmp, path)
}
