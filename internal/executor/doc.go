// Package executor is the pipeline execution engine. It walks the
// validated, leveled stage graph, dispatches stages through a bounded
// worker pool, runs each job's command sequence with timeout, retry and
// allow-failure handling, and aggregates status from job to stage to
// pipeline.
//
// Each run is represented by a cancellable Handle tracked in a
// per-engine active-run registry, enforcing at most one concurrent run per
// pipeline name. Cancellation is cooperative: the signal is observed before
// every stage and job dispatch; in-flight commands are not required to stop
// instantly.
package executor
