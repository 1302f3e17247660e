package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-process LRU (fastest)
	LevelMemory Level = iota

	// LevelDisk is the persistent disk cache
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	Items     int64 // Number of items in cache
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)
	LastEvict time.Time
}

func (s Stats) withHitRate() Stats {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Config holds configuration for the cache levels
type Config struct {
	MemoryCapacity   int64         // L1 bytes
	DiskCapacity     int64         // L2 bytes
	DiskPath         string        // Directory for L2 files
	CompressionLevel int           // zstd level, 0 disables compression
	TTL              time.Duration // Age after which entries are dropped, 0 keeps them
	CleanupInterval  time.Duration // How often to run cleanup, 0 disables it
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   32 * 1024 * 1024,  // 32MB
		DiskCapacity:     256 * 1024 * 1024, // 256MB
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Key derives the cache key of a clip from everything that changes the audio.
func Key(engine, voice, text string, rate float64) string {
	data := fmt.Sprintf("%s|%s|%s|%.2f", engine, voice, text, rate)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
