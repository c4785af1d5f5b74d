// Package kinds ships reference composable state kinds: small,
// self-contained domain types that exercise the full capability
// surface, from the trivial Counter up to the dependency-checking
// Mirror. Each kind uses JSON payload types and is registered under a
// stable name.
package kinds

import (
	scaffold "github.com/nemonical/freenet-scaffold"
)

const (
	KindCounter  = "counter"
	KindTally    = "tally"
	KindRegister = "register"
	KindFeed     = "feed"
	KindGate     = "gate"
	KindMirror   = "mirror"
)

// Builtin returns the full reference kind set, keyed by kind name.
func Builtin(opts ...scaffold.Option) map[string]scaffold.Ops {
	return map[string]scaffold.Ops{
		KindCounter:  CounterOps(opts...),
		KindTally:    TallyOps(opts...),
		KindRegister: RegisterOps(opts...),
		KindFeed:     FeedOps(opts...),
		KindGate:     GateOps(opts...),
		KindMirror:   MirrorOps(opts...),
	}
}
