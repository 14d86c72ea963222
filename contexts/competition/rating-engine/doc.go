// Package ratingengine computes per-region driver ratings inside the
// competition context.
//
// A batch replays every battle of a region's finished tournaments in creation
// order under a region lease and rewrites the driver totals at the end. Batches
// run on operator request or, when enabled, from tournament completion events.
package ratingengine
