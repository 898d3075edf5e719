package llm

import (
	"strings"
	"sync"
)

// ToolNameCodec maps user-facing tool names to backend-safe identifiers and
// back. Backends restrict tool names to [A-Za-z0-9_-]; anything else is
// replaced with underscores on encode, and the original name is recovered on
// decode from the mapping built during encoding.
type ToolNameCodec struct {
	mu      sync.RWMutex
	decoded map[string]string // safe name -> original name
}

// NewToolNameCodec creates an empty codec.
func NewToolNameCodec() *ToolNameCodec {
	return &ToolNameCodec{decoded: make(map[string]string)}
}

// Encode returns the backend-safe form of name and records the mapping.
func (c *ToolNameCodec) Encode(name string) string {
	safe := sanitizeToolName(name)
	c.mu.Lock()
	c.decoded[safe] = name
	c.mu.Unlock()
	return safe
}

// Decode returns the user-facing name for a backend-safe identifier. Unknown
// identifiers are returned unchanged, so a backend inventing a name does not
// break the round trip.
func (c *ToolNameCodec) Decode(safe string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if original, ok := c.decoded[safe]; ok {
		return original
	}
	return safe
}

func sanitizeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
