// Package literature defines the domain records that move through the
// acquisition pipeline.
//
// A RawRecord is one untouched search result. An Item wraps a RawRecord and
// accumulates per-stage state (quality score, downloaded artifact path,
// extracted content, structured payload, persisted identifier, item errors)
// as the orchestrator advances. Stats holds the monotonic counters owned by
// a single run.
//
// Items are owned by exactly one run and are never shared across runs; the
// paper identifier is the deduplication key.
package literature
