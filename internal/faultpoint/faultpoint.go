// Package faultpoint provides a minimal named-hook mechanism for exercising
// the IoError paths of the TLOG writer and Multiplex server in tests,
// condensed from the kill-point idea in the reference storage engine this
// module is built from: named checkpoints in production code that tests can
// arm to force a specific failure, rather than a whitebox-crash harness.
//
// Unlike the reference implementation's kill points, a fault point here
// never terminates the process — it returns an error at the named
// checkpoint so the caller's own error-handling path runs exactly as it
// would for a real I/O failure.
package faultpoint

import "sync"

var (
	mu    sync.Mutex
	armed = map[string]error{}
	hits  = map[string]int{}
)

// Arm makes the named fault point return err the next time (and every time,
// until Disarm) MaybeFail is called with that name.
func Arm(name string, err error) {
	mu.Lock()
	defer mu.Unlock()
	armed[name] = err
}

// Disarm clears a previously armed fault point.
func Disarm(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(armed, name)
}

// DisarmAll clears every armed fault point and hit counter. Tests should
// call this in a defer or cleanup to avoid leaking state across cases.
func DisarmAll() {
	mu.Lock()
	defer mu.Unlock()
	armed = map[string]error{}
	hits = map[string]int{}
}

// MaybeFail returns the error armed for name, if any, and records a hit.
// Production code calls this at a well-known checkpoint (e.g. just before
// an index trailer flush); in normal operation, with nothing armed, it only
// records the hit and returns nil.
func MaybeFail(name string) error {
	mu.Lock()
	defer mu.Unlock()
	hits[name]++
	return armed[name]
}

// Hits reports how many times MaybeFail was called for name, armed or not.
func Hits(name string) int {
	mu.Lock()
	defer mu.Unlock()
	return hits[name]
}

// Named checkpoints production code calls into. New checkpoints should
// follow "Component.Operation" naming.
const (
	// TlogFlush fires inside Writer.Flush, before the sink flush/sync call.
	TlogFlush = "Tlog.Flush"
	// TlogIndexWrite fires inside Writer.Close, before the index trailer
	// and footer are written.
	TlogIndexWrite = "Tlog.IndexWrite"
	// MuxResponseWrite fires inside the Multiplex server, before a
	// response frame is written back to the underlying stream.
	MuxResponseWrite = "Mux.ResponseWrite"
)
