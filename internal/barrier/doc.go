// Package barrier provides the round barrier shared by every device of a
// simulation.
//
// A Reusable barrier is created once with a fixed number of parties and then
// waited on by exactly that many goroutines, round after round, with no
// reconfiguration in between:
//
//	b, err := barrier.New(len(devices))
//	if err != nil {
//	    return err
//	}
//	// in each of the N device goroutines, once per round:
//	b.Wait()
//
// # Two phases
//
// Each Wait runs two identical phases with independent counters. A single
// counter is not safe to reuse: a fast goroutine released from round k could
// re-enter Wait for round k+1 and consume a release token meant for a slow
// goroutine still leaving round k. The second phase makes the counter reset
// itself safe under re-entry.
//
// # Thread Safety
//
// Wait is safe for concurrent use by exactly Parties() goroutines per round.
// Calling it with more or fewer goroutines in a round is undefined and will
// usually hang the round; there is no cancellation.
package barrier
