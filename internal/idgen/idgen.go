// Package idgen generates the short ids that tag channel instances and
// dashboard sessions in log output, backed by nanoid.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	ChannelPrefix = "ch-"
	SessionPrefix = "fv-"
)

// Alphabet is the character set used for the random portion of an id.
var Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length is the number of random characters generated (excluding the prefix).
var Length = 8

var fallback atomic.Uint64

// New returns a random id with the given prefix.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Channel returns an id for a push channel instance. Ids only label log
// lines, so a failing random source degrades to a process-local sequence.
func Channel() string {
	return mustNew(ChannelPrefix)
}

// Session returns an id for one dashboard run.
func Session() string {
	return mustNew(SessionPrefix)
}

func mustNew(prefix string) string {
	id, err := New(prefix)
	if err != nil {
		return prefix + "seq" + strconv.FormatUint(fallback.Add(1), 10)
	}
	return id
}
