// pkg/core/refs.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Reference ids an entity can be anchored on.
const (
	RefSpotter = "spotter"
	RefMap     = "map"

	refPointPrefix = "ref-point-"
)

// RefPoint returns the reference id for reference point k.
func RefPoint(k int) string {
	return fmt.Sprintf("%s%d", refPointPrefix, k)
}

// ParseRefPoint extracts k from "ref-point-k". ok is false for any other id.
func ParseRefPoint(ref string) (k int, ok bool) {
	if !strings.HasPrefix(ref, refPointPrefix) {
		return 0, false
	}
	k, err := strconv.Atoi(strings.TrimPrefix(ref, refPointPrefix))
	if err != nil || k < 1 {
		return 0, false
	}
	return k, true
}

// shiftRef rewrites a reference after reference point k was deleted.
func shiftRef(ref string, deleted int) string {
	j, ok := ParseRefPoint(ref)
	switch {
	case !ok:
		return ref
	case j == deleted:
		return RefSpotter
	case j > deleted:
		return RefPoint(j - 1)
	default:
		return ref
	}
}
