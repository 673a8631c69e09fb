package rule

import (
	"math/rand/v2"
	"sync"
)

const nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NameGenerator produces names for combined rules: a fixed prefix followed by
// a fixed-length random alphanumeric suffix.
type NameGenerator struct {
	prefix string
	length int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewNameGenerator returns a generator drawing from src. A nil src uses a
// randomly seeded PCG source.
func NewNameGenerator(prefix string, length int, src rand.Source) *NameGenerator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if length <= 0 {
		length = 8
	}
	return &NameGenerator{
		prefix: prefix,
		length: length,
		rnd:    rand.New(src),
	}
}

// Next returns a new name.
func (g *NameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, len(g.prefix)+g.length)
	copy(buf, g.prefix)
	for i := len(g.prefix); i < len(buf); i++ {
		buf[i] = nameAlphabet[g.rnd.IntN(len(nameAlphabet))]
	}
	return string(buf)
}
