// Package output renders runner results for people and for CI.
//
// Console output is colored with fatih/color. JSON, JUnit XML, TAP and HTML
// reports are buffered and written once, by Flush, after every check file
// has run.
package output
