package patch

import (
	"encoding/json"
	"fmt"

	"github.com/signadot/treestate/ir"

	jsonpatch "github.com/evanphx/json-patch"
)

type rfcOp struct {
	Op    Op              `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ToJSONPatch renders ps as an RFC 6902 JSON Patch document.
func ToJSONPatch(ps []Patch) ([]byte, error) {
	ops := make([]rfcOp, len(ps))
	for i, p := range ps {
		ops[i] = rfcOp{Op: p.Op, Path: p.Path.Pointer()}
		if p.Op == Remove {
			continue
		}
		d, err := ir.ToJSON(orNull(p.Value))
		if err != nil {
			return nil, err
		}
		ops[i].Value = d
	}
	return json.Marshal(ops)
}

// ApplyJSON applies ps to a JSON document using an RFC 6902 implementation.
func ApplyJSON(doc []byte, ps []Patch) ([]byte, error) {
	d, err := ToJSONPatch(ps)
	if err != nil {
		return nil, err
	}
	jp, err := jsonpatch.DecodePatch(d)
	if err != nil {
		return nil, fmt.Errorf("decode json patch: %w", err)
	}
	out, err := jp.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return out, nil
}
