package polygon

import (
	"context"
	"errors"
	"time"
)

// KeyPool hands out API keys over a channel. A returned key only becomes
// available again after its cooldown, which keeps each key under the
// free-tier request rate.
type KeyPool struct {
	keys     chan string
	cooldown time.Duration
}

// NewKeyPool fills the pool with keys.
func NewKeyPool(apiKeys []string, cooldown time.Duration) (*KeyPool, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("need at least one API key")
	}
	p := &KeyPool{keys: make(chan string, len(apiKeys)), cooldown: cooldown}
	for _, k := range apiKeys {
		p.keys <- k
	}
	return p, nil
}

// Size returns the number of keys.
func (p *KeyPool) Size() int { return cap(p.keys) }

// Take blocks until a key is free or ctx is done.
func (p *KeyPool) Take(ctx context.Context) (string, error) {
	select {
	case k := <-p.keys:
		return k, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Return gives key back after the cooldown without blocking the caller.
func (p *KeyPool) Return(key string) {
	if p.cooldown <= 0 {
		p.keys <- key
		return
	}
	time.AfterFunc(p.cooldown, func() { p.keys <- key })
}

// keyPrefix shortens a key for logs.
func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
