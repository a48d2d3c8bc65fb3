package obfuscate

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// nameGenerator hands out unique hexadecimal identifiers (_0x1a2b3c) that do not
// occur anywhere in the source.
type nameGenerator struct {
	rng  *rand.Rand
	src  string
	used map[string]struct{}
}

func newNameGenerator(rng *rand.Rand, src string) *nameGenerator {
	return &nameGenerator{rng: rng, src: src, used: make(map[string]struct{})}
}

func (g *nameGenerator) next() string {
	for {
		name := fmt.Sprintf("_0x%x", 0x1000+g.rng.IntN(0xfff000))
		if _, ok := g.used[name]; ok {
			continue
		}
		if strings.Contains(g.src, name) {
			continue
		}
		g.used[name] = struct{}{}
		return name
	}
}

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomKey returns an ASCII key of length n.
func randomKey(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = keyAlphabet[rng.IntN(len(keyAlphabet))]
	}
	return string(b)
}
