// Package mutation derives evasion variants of attack payloads. The number
// of variants grows with the evasion level:
//
//	Level 0  the payload itself
//	Level 1  + percent-encoding, case mixing, upper/lower case, /**/ for spaces
//	Level 2  + double encoding, whitespace-token substitutions, trailing %00
package mutation

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Level controls mutation aggressiveness.
type Level int

const (
	LevelNone       Level = 0
	LevelBasic      Level = 1
	LevelAggressive Level = 2
)

// ParseLevel converts a configured integer into a Level, clamping values
// outside [0,2].
func ParseLevel(n int) Level {
	switch {
	case n <= 0:
		return LevelNone
	case n >= int(LevelAggressive):
		return LevelAggressive
	default:
		return Level(n)
	}
}

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelBasic:
		return "basic"
	case LevelAggressive:
		return "aggressive"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// CommentToken replaces spaces in SQL-style payloads.
const CommentToken = "/**/"

// NullByte is appended at level 2.
const NullByte = "%00"

// WhitespaceTokens substitute for spaces at level 2.
var WhitespaceTokens = []string{CommentToken, "%09", "%0A", "%0C", "%0D", "+"}

// Mutation is one derived payload bound to its source vector.
type Mutation struct {
	VectorID string `json:"vector_id"`
	Index    int    `json:"mutation_index"`
	Payload  string `json:"payload"`
}

// Generator produces mutation sets. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand injects the randomness source used for case mixing.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithSeed seeds case mixing for reproducible output.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewGenerator creates a generator seeded from the clock unless a source
// is injected.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		now := uint64(time.Now().UnixNano())
		g.rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return g
}

// Mutate returns the deduplicated variant set for payload. The set always
// contains payload. The slice is sorted, but the case-mixed member differs
// between calls, so callers must not rely on positions across calls.
func (g *Generator) Mutate(payload string, level Level) []string {
	set := map[string]struct{}{payload: {}}
	add := func(s string) { set[s] = struct{}{} }

	if level >= LevelBasic {
		add(PercentEncode(payload))
		add(g.mixCase(payload))
		add(strings.ToUpper(payload))
		add(strings.ToLower(payload))
		if strings.Contains(payload, " ") {
			add(strings.ReplaceAll(payload, " ", CommentToken))
		}
	}

	if level >= LevelAggressive {
		add(PercentEncode(PercentEncode(payload)))
		if strings.Contains(payload, " ") {
			for _, tok := range WhitespaceTokens {
				add(strings.ReplaceAll(payload, " ", tok))
			}
		}
		add(payload + NullByte)
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ForVector mutates payload and tags each variant with the vector id and
// a per-vector sequence index.
func (g *Generator) ForVector(vectorID, payload string, level Level) []Mutation {
	variants := g.Mutate(payload, level)
	out := make([]Mutation, len(variants))
	for i, v := range variants {
		out[i] = Mutation{VectorID: vectorID, Index: i, Payload: v}
	}
	return out
}

// mixCase flips each letter to a random case. When the dice reproduce the
// input exactly, the first letter is inverted so the variant still differs.
func (g *Generator) mixCase(payload string) string {
	runes := []rune(payload)

	g.mu.Lock()
	for i, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		if g.rng.IntN(2) == 0 {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
	}
	g.mu.Unlock()

	mixed := string(runes)
	if mixed != payload {
		return mixed
	}
	for i, r := range runes {
		if unicode.IsUpper(r) {
			runes[i] = unicode.ToLower(r)
			return string(runes)
		}
		if unicode.IsLower(r) {
			runes[i] = unicode.ToUpper(r)
			return string(runes)
		}
	}
	return mixed
}

// PercentEncode escapes every byte outside the unreserved set
// (A-Z a-z 0-9 - _ . ~) and '/'. Spaces become %20, not '+'.
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}
