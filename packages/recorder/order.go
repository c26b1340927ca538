package recorder

// The ordering helpers take call ids in ascending order.

// calledBefore: the first of mine precedes the last of theirs, or they were
// never called.
func calledBefore(mine, theirs []uint64) bool {
	if len(mine) == 0 {
		return false
	}
	if len(theirs) == 0 {
		return true
	}
	return mine[0] < theirs[len(theirs)-1]
}

// alwaysCalledBefore: every call of mine precedes every call of theirs.
func alwaysCalledBefore(mine, theirs []uint64) bool {
	if len(mine) == 0 {
		return false
	}
	if len(theirs) == 0 {
		return true
	}
	return mine[len(mine)-1] < theirs[0]
}

// calledAfter: the last of mine follows the first of theirs.
func calledAfter(mine, theirs []uint64) bool {
	if len(mine) == 0 || len(theirs) == 0 {
		return false
	}
	return mine[len(mine)-1] > theirs[0]
}

// alwaysCalledAfter: every call of mine follows every call of theirs.
func alwaysCalledAfter(mine, theirs []uint64) bool {
	if len(mine) == 0 || len(theirs) == 0 {
		return false
	}
	return mine[0] > theirs[len(theirs)-1]
}
