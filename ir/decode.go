package ir

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies the snapshot y into the Go value pointed to by dst, matching
// object fields to struct fields by their json tag.
func Decode(y *Node, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(ToAny(y)); err != nil {
		return fmt.Errorf("decode %s: %w", y.Type, err)
	}
	return nil
}
