// Package loader resolves logical image references to one confirmed-loadable
// URL.
//
// Each reference expands into an ordered candidate queue. Candidates are
// probed one at a time under a per-candidate timeout, so a resolution ends
// within len(candidates) times the timeout. When every candidate fails the
// default image is returned; Resolve never fails. Identical concurrent
// references share a single probe chain.
package loader
