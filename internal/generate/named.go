package generate

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/dilla-go/dilla/internal/schema"
)

type namedGenerator func(g *Generators) string

var namedGenerators = map[schema.GeneratorID]namedGenerator{
	schema.GeneratorHashKey:     (*Generators).HashKey,
	schema.GeneratorUUID:        (*Generators).UUID,
	schema.GeneratorZip:         (*Generators).Zip,
	schema.GeneratorZipExtended: (*Generators).ZipExtended,
}

// Named runs the named generator id. ok is false for unknown ids, which
// catalog loading already rejects.
func (g *Generators) Named(id schema.GeneratorID) (string, bool) {
	gen, ok := namedGenerators[id]
	if !ok {
		return "", false
	}
	return gen(g), true
}

// HashKey returns 32 hex characters mixing the clock, two random draws and
// the configured secret key.
func (g *Generators) HashKey() string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err) // size 16 without key cannot fail
	}
	fmt.Fprintf(h, "%d:%d:%d:%s", time.Now().UnixNano(), g.src.Uint64(), g.src.Uint64(), g.secret)
	return hex.EncodeToString(h.Sum(nil))
}

// UUID returns a time based (version 1) UUID.
func (g *Generators) UUID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Zip returns five digits.
func (g *Generators) Zip() string { return g.src.Digits(5) }

// ZipExtended returns ZIP+4, DDDDD-DDDD.
func (g *Generators) ZipExtended() string { return g.src.Digits(5) + "-" + g.src.Digits(4) }
