package record

import "strings"

// SDBM is the sdbm string hash over the runes of s, with wrapping arithmetic.
func SDBM(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = uint32(c) + (h << 6) + (h << 16) - h
	}
	return h
}

// PrefixOf returns the default key prefix for a type named name.
func PrefixOf(name string) uint32 {
	return SDBM(name)
}

// VersionOf returns the default fields version for the given ordered field
// type names.
func VersionOf(fieldTypes ...string) uint32 {
	return SDBM(strings.Join(fieldTypes, ","))
}
