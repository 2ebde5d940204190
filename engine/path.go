package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// pathOp is one step of a parsed path: either a map-key lookup or a list
// index, applied in sequence against the current Value.
type pathOp struct {
	isIndex bool
	key     string
	index   int
}

var segmentRe = regexp.MustCompile(`^([^\[\]]*)((?:\[\d+\])*)$`)
var indexRe = regexp.MustCompile(`\[(\d+)\]`)

// parsePath compiles a dot/bracket path like "a.b[0].c" into a sequence of
// ops. An empty path is invalid.
func parsePath(path string) ([]pathOp, error) {
	if path == "" {
		return nil, fmt.Errorf("engine: empty path")
	}

	var ops []pathOp
	for _, segment := range strings.Split(path, ".") {
		m := segmentRe.FindStringSubmatch(segment)
		if m == nil {
			return nil, fmt.Errorf("engine: malformed path segment %q in %q", segment, path)
		}
		name, brackets := m[1], m[2]

		if name == "" && brackets == "" {
			return nil, fmt.Errorf("engine: empty path segment in %q", path)
		}
		if name != "" {
			ops = append(ops, pathOp{key: name})
		}
		for _, im := range indexRe.FindAllStringSubmatch(brackets, -1) {
			idx, err := strconv.Atoi(im[1])
			if err != nil {
				return nil, fmt.Errorf("engine: invalid index in %q: %w", path, err)
			}
			ops = append(ops, pathOp{isIndex: true, index: idx})
		}
	}
	return ops, nil
}

// ResolvePath walks root along path, returning Missing whenever a map key is
// absent, a list index is out of range, or an op is applied to the wrong
// kind of value. A present-but-null value resolves to Null, never Missing —
// the distinction the rest of the engine (extraction, substitution,
// conditions) depends on.
func ResolvePath(root Value, path string) Value {
	ops, err := parsePath(path)
	if err != nil {
		return Missing
	}
	cur := root
	for _, op := range ops {
		if op.isIndex {
			if cur.Kind != KindList || op.index < 0 || op.index >= len(cur.List) {
				return Missing
			}
			cur = cur.List[op.index]
			continue
		}
		if cur.Kind != KindMap {
			return Missing
		}
		child, ok := cur.Map.Get(op.key)
		if !ok {
			return Missing
		}
		cur = *child
	}
	return cur
}

// SetPath writes val at path within root, creating intermediate maps for
// missing/null map keys but never growing lists — indexing past a list's
// current length is an error.
func SetPath(root *Value, path string, val Value) error {
	ops, err := parsePath(path)
	if err != nil {
		return err
	}
	return setOps(root, ops, val)
}

func setOps(cur *Value, ops []pathOp, val Value) error {
	if len(ops) == 0 {
		*cur = val
		return nil
	}

	op := ops[0]
	if op.isIndex {
		if cur.Kind != KindList {
			return fmt.Errorf("engine: cannot index a %s value", cur.Kind)
		}
		if op.index < 0 || op.index >= len(cur.List) {
			return fmt.Errorf("engine: index %d out of range (length %d)", op.index, len(cur.List))
		}
		return setOps(&cur.List[op.index], ops[1:], val)
	}

	if cur.Kind != KindMap {
		if cur.Kind == KindMissing || cur.Kind == KindNull {
			*cur = Map()
		} else {
			return fmt.Errorf("engine: cannot set key %q on a %s value", op.key, cur.Kind)
		}
	}
	child, ok := cur.Map.Get(op.key)
	if !ok {
		cur.Map.Set(op.key, Missing)
		child, _ = cur.Map.Get(op.key)
	}
	return setOps(child, ops[1:], val)
}
