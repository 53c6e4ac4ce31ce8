// Package quality scores artifact batches against weighted metric sets and
// derives quality levels, issues, and recommendations.
//
// One engine serves three callers: raw literature batches, structuring
// output, and experience-enhancement iterations. Each caller supplies its own
// metric set; the scoring, leveling, and issue derivation are shared. Metric
// functions are pure and computed concurrently, so the engine is stateless
// and safe for use across parallel runs.
//
// The bundled metric functions are heuristic keyword and shape checks. They
// are the default scorers, not the contract: callers may substitute stronger
// scorers without touching the engine.
package quality
