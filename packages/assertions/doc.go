// Package assertions extends testify-style tests with predicates over spy
// call histories.
//
// An Assumption wraps a subject and the *testing.T it reports to:
//
//	assertions.Assume(t, save).CalledWith("A", "B")
//	assertions.Assume(t, save).Always().CalledWith("A")
//	assertions.Require(t, save).Called(2)
//
// Predicates are also registered by name on a Registry so that they can be
// driven from text, as the check runner does:
//
//	ok, err := assertions.Default().Apply(a, "to have always been calledWith", "A")
//
// Supported predicates: spylike, called, calledWithNew, calledBefore,
// calledAfter, calledOn, calledWith, calledWithMatch, calledWithExactly,
// returned and thrown. The "always" (or "consistently") flag turns each of
// them from "some call matches" into "every call matches"; "not" negates.
package assertions
