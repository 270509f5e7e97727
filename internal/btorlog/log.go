// Package btorlog holds the package-level structured logger for the core.
//
// Grounded on the pack's convention for a library-boundary logger: a
// package-level zerolog.Logger (optakt-flow-dps's ledger/forest/trie.go
// sets one up in an init()) rather than a struct-held *zap.Logger
// (edirooss-zmux-server's objectstore.go) — the core has no per-request
// handle to thread a logger through, just a single Context, so a package
// singleton matches the shape of the problem.
package btorlog

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is silent by default (Warn level); a CLI or test can lower it with
// SetLevel for diagnosis.
var Log zerolog.Logger

func init() {
	Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger().
		Level(zerolog.WarnLevel)
}

// SetLevel adjusts global verbosity, e.g. from a CLI's --verbose flag.
func SetLevel(lvl zerolog.Level) {
	Log = Log.Level(lvl)
}
