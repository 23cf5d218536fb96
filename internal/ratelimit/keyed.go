package ratelimit

import (
	"sync"
	"time"

	"github.com/duskbyte/courier-go/internal/metrics"
)

// defaults for KeyedConfig zero values.
const (
	defaultCleanupPeriod = 5 * time.Minute
	defaultIdleTTL       = 30 * time.Minute
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name identifies the limiter in metrics, e.g. "sender".
	Name string

	Burst      float64 // bucket capacity per key
	RefillRate float64 // tokens per second per key

	// IdleTTL is how long an unused bucket survives before cleanup.
	IdleTTL time.Duration

	// CleanupPeriod is how often idle buckets are released.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics // optional
}

// KeyedLimiter maintains one token bucket per key and drops buckets
// that have been idle longer than IdleTTL. The empty key is never
// limited; stateless events pass through.
type KeyedLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*Limiter
	cfg     KeyedConfig
	stop    chan struct{}
	done    chan struct{}
}

// NewKeyedLimiter creates a per-key limiter and starts its cleanup
// loop. Call Stop when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = defaultCleanupPeriod
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}

	kl := &KeyedLimiter{
		buckets: make(map[string]*Limiter),
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow consumes one token for key and reports whether the event may
// proceed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	allowed := kl.bucket(key).Allow()
	if !allowed && kl.cfg.Metrics != nil {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	}
	return allowed
}

// Available returns the token count for key, or the full burst when the
// key has no bucket yet.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	bucket, ok := kl.buckets[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.Burst
	}
	return bucket.Available()
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.buckets)
}

// Stop terminates the cleanup loop.
func (kl *KeyedLimiter) Stop() {
	close(kl.stop)
	<-kl.done
}

func (kl *KeyedLimiter) bucket(key string) *Limiter {
	kl.mu.RLock()
	bucket, ok := kl.buckets[key]
	kl.mu.RUnlock()
	if ok {
		return bucket
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if bucket, ok = kl.buckets[key]; ok {
		return bucket
	}
	bucket = NewLimiter(kl.cfg.Burst, kl.cfg.RefillRate)
	kl.buckets[key] = bucket
	return bucket
}

func (kl *KeyedLimiter) cleanupLoop() {
	defer close(kl.done)

	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

func (kl *KeyedLimiter) cleanup() {
	now := time.Now()

	kl.mu.Lock()
	for key, bucket := range kl.buckets {
		if bucket.idleSince(now) > kl.cfg.IdleTTL {
			delete(kl.buckets, key)
		}
	}
	remaining := len(kl.buckets)
	kl.mu.Unlock()

	if kl.cfg.Metrics != nil {
		kl.cfg.Metrics.SetRateLimiterKeys(kl.cfg.Name, remaining)
	}
}
