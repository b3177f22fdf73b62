// Package httputil provides the JSON response helpers and query parsing
// shared by the results API handlers.
package httputil
