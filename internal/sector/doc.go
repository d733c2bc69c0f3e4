// Package sector builds the three-level sector hierarchy (category, sector,
// subsector) from a flat taxonomy, filters it by free-text query, and tracks
// which subsector codes a host has selected.
//
// The tree returned by BuildHierarchy is immutable and may be shared. A
// Selection or Picker belongs to a single owner and is not safe for
// concurrent use.
package sector
