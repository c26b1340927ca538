// Package stats summarises a recording per spy: call and throw counts and
// latency percentiles for the calls that carry a duration.
package stats
