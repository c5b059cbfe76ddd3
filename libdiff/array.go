package libdiff

import (
	"strconv"
	"strings"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// we map each element to a rune standing for its summary:
//
//  1. scalars summarize as <type>-<value>, containers by type only and
//     models by type and id
//  2. diff the rune sequences
//  3. equal runs recurse, adjacent delete/insert runs are paired and
//     recurse, and the remainder become removes and adds
//
// ci tracks the index in the array as patched so far, so the resulting
// patches apply in order.
func (d *differ) diffArray(path ir.Path, from, to *ir.Node) {
	m := map[string]rune{}
	fromRunes := d.mapValues(m, from)
	toRunes := d.mapValues(m, to)
	diffs := diffpatch.New().DiffMainRunes(fromRunes, toRunes, false)

	fi, ti, ci := 0, 0, 0
	for i := 0; i < len(diffs); i++ {
		diff := &diffs[i]
		n := len([]rune(diff.Text))
		switch diff.Type {
		case diffpatch.DiffEqual:
			for range n {
				d.diff(path.Append(ir.Index(ci)), from.Values[fi], to.Values[ti])
				ci++
				fi++
				ti++
			}
			continue
		}
		dels, ins := 0, 0
		if diff.Type == diffpatch.DiffDelete {
			dels = n
		} else {
			ins = n
		}
		if i+1 < len(diffs) && diffs[i+1].Type != diffpatch.DiffEqual && diffs[i+1].Type != diff.Type {
			i++
			if diffs[i].Type == diffpatch.DiffDelete {
				dels = len([]rune(diffs[i].Text))
			} else {
				ins = len([]rune(diffs[i].Text))
			}
		}
		for range min(dels, ins) {
			d.diff(path.Append(ir.Index(ci)), from.Values[fi], to.Values[ti])
			ci++
			fi++
			ti++
		}
		for range dels - min(dels, ins) {
			d.patches = append(d.patches, patch.Patch{
				Op:       patch.Remove,
				Path:     path.Append(ir.Index(ci)),
				OldValue: from.Values[fi],
			})
			fi++
		}
		for range ins - min(dels, ins) {
			d.patches = append(d.patches, patch.Patch{
				Op:    patch.Add,
				Path:  path.Append(ir.Index(ci)),
				Value: to.Values[ti],
			})
			ci++
			ti++
		}
	}
}

func (d *differ) mapValues(m map[string]rune, node *ir.Node) []rune {
	rs := make([]rune, len(node.Values))
	for i, v := range node.Values {
		sum := d.summaryStr(v)
		r, ok := m[sum]
		if !ok {
			r = rune(len(m))
			m[sum] = r
		}
		rs[i] = r
	}
	return rs
}

func (d *differ) summaryStr(node *ir.Node) string {
	switch node.Type {
	case ir.ObjectType:
		if id := d.identity(node); id != "" {
			return "model-" + id
		}
		return node.Type.String()
	case ir.ArrayType, ir.NullType:
		return node.Type.String()
	case ir.BoolType:
		return node.Type.String() + "-" + strconv.FormatBool(node.Bool)
	case ir.StringType:
		if strings.Contains(node.String, "\n") {
			return node.Type.String() + "/m"
		}
		return node.Type.String() + "-" + node.String
	case ir.NumberType:
		if node.Int64 != nil {
			return node.Type.String() + "-i-" + strconv.FormatInt(*node.Int64, 10)
		}
		if node.Float64 != nil {
			return node.Type.String() + "-f-" + strconv.FormatFloat(*node.Float64, 'f', -1, 64)
		}
		return node.Type.String() + "-" + node.Number
	default:
		panic("type")
	}
}
