// Package frp provides Stream, a typed broadcast primitive with combinators.
//
// A Stream delivers every sent signal to all registered subscribers,
// synchronously and in unspecified order. Combinators (Map, Filter, Fold,
// Merge, Zip, Unzip, Entangled) build new streams wired to existing ones, and
// Recv sinks a stream into a pull-based Receiver.
//
// Ownership: a stream either owns its subscriber registry or borrows another
// stream's registry through a weak pointer. Combinator outputs share the
// ownership of the stream they return. Entangled pairs borrow each other so
// that the pair never keeps itself alive. A borrowed stream whose registry
// has been collected drops sends and observes silently.
//
// Propagation budget: nested sends on one goroutine are counted. A send that
// would exceed MaxDepth is dropped and logged. This bounds feedback loops
// between streams that forward into each other; it does not detect cycles.
//
// Thread-safety: every operation is safe for concurrent use. The registry
// lock is never held while subscribers run, so subscribers may call Send,
// Observe or Remove on any stream, including their own.
package frp
