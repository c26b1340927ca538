// Package recorder provides concrete call histories that satisfy the spy
// contract: a Spy records invocations handed to it by a fake or a test double,
// and a Recording groups spies captured together so they can be saved,
// loaded and checked later.
//
// Call order is global: every recorded call takes the next value of a
// process-wide sequence, which is what calledBefore and calledAfter compare.
package recorder
