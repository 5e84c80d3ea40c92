package executor

import (
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
	lru "github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/minio/sha256-simd"
)

// DefaultCacheCapacity is the number of compiled scripts each environment keeps.
const DefaultCacheCapacity = 1

// FingerprintSize is the length of a Fingerprint in bytes.
const FingerprintSize = sha256.Size

// Fingerprint identifies script source by the SHA-256 of its exact bytes.
type Fingerprint [FingerprintSize]byte

// FingerprintOf hashes src.
func FingerprintOf(src []byte) Fingerprint {
	return sha256.Sum256(src)
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex digits, used to name compiled programs.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:6])
}

// CacheStats reports hot-script cache activity for one environment.
type CacheStats struct {
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	Compiles        uint64 `json:"compiles"`
	CompileFailures uint64 `json:"compile_failures"`
	Evictions       uint64 `json:"evictions"`
	Entries         int    `json:"entries"`
	Capacity        int    `json:"capacity"`
}

// Add accumulates o into s. Capacity and Entries are summed as well.
func (s *CacheStats) Add(o CacheStats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Compiles += o.Compiles
	s.CompileFailures += o.CompileFailures
	s.Evictions += o.Evictions
	s.Entries += o.Entries
	s.Capacity += o.Capacity
}

// scriptCache maps fingerprints to compiled programs. It is owned by a single
// environment and is not safe for concurrent use.
type scriptCache struct {
	lru    *lru.LRU[Fingerprint, *goja.Program]
	stats  CacheStats
	logger *log.Logger
}

func newScriptCache(capacity int, logger *log.Logger) (*scriptCache, error) {
	c := &scriptCache{logger: logger}
	l, err := lru.NewLRU[Fingerprint, *goja.Program](capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create script cache: %w", err)
	}
	c.lru = l
	c.stats.Capacity = capacity
	return c, nil
}

func (c *scriptCache) onEvict(fp Fingerprint, _ *goja.Program) {
	c.stats.Evictions++
	c.logger.Debug("evicted script", "fingerprint", fp.Short())
}

// program returns the compiled form of src, compiling and inserting it on a
// miss. A failed compile leaves the cache untouched.
func (c *scriptCache) program(src []byte) (*goja.Program, error) {
	fp := FingerprintOf(src)
	if prog, ok := c.lru.Get(fp); ok {
		c.stats.Hits++
		return prog, nil
	}
	c.stats.Misses++
	c.stats.Compiles++

	prog, err := goja.Compile(scriptName(fp), string(src), false)
	if err != nil {
		c.stats.CompileFailures++
		return nil, err
	}
	c.lru.Add(fp, prog)
	c.logger.Debug("compiled script", "fingerprint", fp.Short(), "entries", c.lru.Len())
	return prog, nil
}

func (c *scriptCache) contains(src []byte) bool {
	return c.lru.Contains(FingerprintOf(src))
}

func (c *scriptCache) snapshot() CacheStats {
	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

func scriptName(fp Fingerprint) string {
	return "script-" + fp.Short()
}
