// Package model defines the value domain shared by all index implementations:
// typed comparable keys, key/value pairs, and normalized lookup requests.
package model
