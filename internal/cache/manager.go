package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk levels: reads fall through L1 to
// L2 and promote hits, writes go to both levels.
type Manager struct {
	l1     *MemoryCache
	l2     *DiskCache
	config Config
	logger *log.Logger

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates hit counters across levels.
type ManagerStats struct {
	Hits        int64
	Misses      int64
	L1Hits      int64
	L2Hits      int64
	Promotions  int64
	CleanupRuns int64
	LastCleanup time.Time
	L1          Stats
	L2          Stats
}

// NewManager opens both cache levels. config.DiskPath is required.
func NewManager(config Config, logger *log.Logger) (*Manager, error) {
	if config.DiskPath == "" {
		return nil, errors.New("cache: disk path is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	l2, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		l1:          NewMemoryCache(config.MemoryCapacity),
		l2:          l2,
		config:      config,
		logger:      logger,
		cleanupStop: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		m.startCleanupRoutine()
	}
	return m, nil
}

// Get looks a clip up in L1, then L2.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.l1.Get(key); ok {
		m.mu.Lock()
		m.stats.L1Hits++
		m.stats.Hits++
		m.mu.Unlock()
		return data, true
	}

	if data, ok := m.l2.Get(key); ok {
		m.mu.Lock()
		m.stats.L2Hits++
		m.stats.Hits++
		m.stats.Promotions++
		m.mu.Unlock()

		// Promotion is best effort; a clip larger than L1 stays on disk.
		_ = m.l1.Put(key, data)
		return data, true
	}

	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
	return nil, false
}

// Put stores a clip in both levels. A clip too large for one level is
// still kept by the other.
func (m *Manager) Put(key string, value []byte) error {
	l1Err := m.l1.Put(key, value)
	l2Err := m.l2.Put(key, value)

	if l2Err != nil && !errors.Is(l2Err, ErrItemTooLarge) {
		m.logger.Warn("audio cache write failed", "key", key, "error", l2Err)
		return fmt.Errorf("L2 cache error: %w", l2Err)
	}
	if errors.Is(l1Err, ErrItemTooLarge) && errors.Is(l2Err, ErrItemTooLarge) {
		return ErrItemTooLarge
	}
	return nil
}

// Delete removes a clip from both levels.
func (m *Manager) Delete(key string) error {
	return errors.Join(m.l1.Delete(key), m.l2.Delete(key))
}

// Clear empties both levels.
func (m *Manager) Clear() error {
	var errs []error
	if err := m.l1.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("L1 clear: %w", err))
	}
	if err := m.l2.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("L2 clear: %w", err))
	}
	return errors.Join(errs...)
}

// Stats returns aggregated statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	stats.L1 = m.l1.Stats()
	stats.L2 = m.l2.Stats()
	return stats
}

// Close stops the cleanup routine and saves the disk index.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		if cerr := m.l2.Close(); cerr != nil {
			err = fmt.Errorf("failed to close disk cache: %w", cerr)
		}
	})
	return err
}

func (m *Manager) startCleanupRoutine() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

// Cleanup drops expired clips and enforces the disk budget.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	m.stats.CleanupRuns++
	m.stats.LastCleanup = time.Now()
	m.mu.Unlock()

	if m.config.TTL > 0 {
		removed := m.l2.RemoveOlderThan(time.Now().Add(-m.config.TTL))
		pruned := m.l1.Prune(m.config.TTL)
		if removed+pruned > 0 {
			m.logger.Debug("audio cache cleanup", "disk_removed", removed, "memory_pruned", pruned)
		}
	}
	if evicted := m.l2.EvictLRU(); evicted > 0 {
		m.logger.Debug("audio cache eviction", "evicted", evicted)
	}
}
