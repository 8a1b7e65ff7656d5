package codec

import "encoding/json"

// IsTypePreserved reports whether data contains any tagged envelope node —
// the root object or a descendant whose keys intersect the reserved tag
// vocabulary. It is a cheap pre-check callers can use to skip the full
// decode path for plain JSON payloads; it respects opts.MaxDepth so a
// pathologically nested document cannot make the check run unbounded.
func IsTypePreserved(data json.RawMessage, opts Options) bool {
	root, err := scanJSON(data)
	if err != nil {
		return false
	}
	return nodeIsTagged(root, opts.MaxDepth, 0)
}

func nodeIsTagged(node any, maxDepth, depth int) bool {
	if depth > maxDepth {
		return false
	}
	switch v := node.(type) {
	case *rawObj:
		if len(v.reservedKeys()) > 0 {
			return true
		}
		for _, val := range v.vals {
			if nodeIsTagged(val, maxDepth, depth+1) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if nodeIsTagged(item, maxDepth, depth+1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
