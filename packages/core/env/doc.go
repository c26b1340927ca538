// Package env resolves {{variable}} references in check files.
//
// Variables come from the check file's variables block, from .env files
// next to it and from the process environment ({{$NAME}}). Unknown
// references are left as written and reported through a warning callback.
package env
