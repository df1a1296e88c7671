// Package selector defines the instance selection interface and
// implements the available policies:
//
//   - Round Robin: Sequential distribution across instances
//   - Random: Random instance selection
//
// Both policies only ever select instances marked healthy, and report NONE
// (false) when the healthy set is empty instead of failing. Instances are
// ordered by ID before rotation so load distribution is reproducible.
package selector
