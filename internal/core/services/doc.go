// Package services holds the ingestion pipeline itself: record building,
// identity assignment, batched upload and the Ingester that drives a run
// from enumeration to the final report. It also resolves settings and
// serves run history to the CLI.
//
// Services only talk to infrastructure through the driven ports, so every
// stage can be tested with in-memory fakes.
package services
