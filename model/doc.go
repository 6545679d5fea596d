// Package model contains the in-memory representation of flowsheet
// definitions: chemicals, component groups, process streams, unit operations
// and recycle solver options.
//
// A flowsheet is typically loaded from a YAML document into these structures
// and validated before being materialised into a simulable system.
package model
