// Package generate produces field values for fixture instances.
package generate

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

const (
	digits  = "0123456789"
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Source is the random source of a single run. Lorem text is drawn from the
// same stream, so a fixed seed reproduces a run exactly. A Source is not
// safe for concurrent use.
type Source struct {
	seed  uint64
	rng   *rand.Rand
	faker *gofakeit.Faker
}

// NewSource returns a Source seeded with seed, or with the clock when seed is 0.
func NewSource(seed uint64) *Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Source{
		seed:  seed,
		rng:   rand.New(pcg),
		faker: gofakeit.NewFaker(pcg, false),
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 { return s.seed }

// IntN returns a uniform int in [0,n). It returns 0 when n <= 0.
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.IntN(n)
}

// Between returns a uniform int in [lo,hi], both inclusive. The span is
// computed in uint64 so ranges as wide as the int type do not overflow.
func (s *Source) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := uint64(hi) - uint64(lo)
	if span == math.MaxUint64 {
		return int(s.rng.Uint64())
	}
	return int(uint64(lo) + s.rng.Uint64N(span+1))
}

func (s *Source) Float64() float64 { return s.rng.Float64() }

func (s *Source) Uint64() uint64 { return s.rng.Uint64() }

// Coin is a fair coin flip.
func (s *Source) Coin() bool { return s.rng.IntN(2) == 1 }

// Perm returns a random permutation of [0,n).
func (s *Source) Perm(n int) []int { return s.rng.Perm(n) }

// Word returns one lorem ipsum word.
func (s *Source) Word() string { return s.faker.LoremIpsumWord() }

// Words returns n lorem ipsum words separated by single spaces.
func (s *Source) Words(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = s.Word()
	}
	return strings.Join(words, " ")
}

// Paragraph returns one lorem ipsum paragraph.
func (s *Source) Paragraph() string {
	return s.faker.LoremIpsumParagraph(1, s.Between(3, 6), s.Between(6, 12), "")
}

// Digits returns n random decimal digits.
func (s *Source) Digits(n int) string { return s.pick(digits, n) }

// Letters returns n random ASCII letters.
func (s *Source) Letters(n int) string { return s.pick(letters, n) }

func (s *Source) pick(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[s.rng.IntN(len(alphabet))]
	}
	return string(b)
}
