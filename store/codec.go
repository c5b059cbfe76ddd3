package store

import (
	"encoding/json"
	"fmt"

	"github.com/signadot/treestate/patch"
)

// EncodePatches is the entry encoding shared by the backends: the patches
// as a JSON array.
func EncodePatches(ps []patch.Patch) ([]byte, error) {
	if ps == nil {
		ps = []patch.Patch{}
	}
	d, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("encode patches: %w", err)
	}
	return d, nil
}

func DecodePatches(d []byte) ([]patch.Patch, error) {
	var ps []patch.Patch
	if err := json.Unmarshal(d, &ps); err != nil {
		return nil, fmt.Errorf("decode patches: %w", err)
	}
	return ps, nil
}
