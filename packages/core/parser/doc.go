// Package parser reads spyspec check files.
//
// A check file is YAML (.spy.yaml or .spy.yml) naming a recording and a list
// of checks against the spies in it:
//
//	name: repository
//	recording: ./recordings/save.json
//	checks:
//	  - spy: save
//	    expect: to have always been calledWith
//	    args: ["A", {match: any}]
//
// Values in args, receiver and value may be matcher literals, written as a
// mapping with a "match" key: any, type, regexp, contains, path or not.
package parser
