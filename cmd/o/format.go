package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

type Format int

const (
	JSONFormat Format = iota
	YAMLFormat
)

func (f Format) String() string {
	if f == YAMLFormat {
		return "yaml"
	}
	return "json"
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "j", "json":
		return JSONFormat, nil
	case "y", "yaml":
		return YAMLFormat, nil
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

func decode(f Format, d []byte) (*ir.Node, error) {
	if f == JSONFormat {
		return ir.FromJSON(d)
	}
	return ir.FromYAML(d)
}

func encode(w io.Writer, f Format, y *ir.Node, c *Colors) error {
	var (
		d   []byte
		err error
	)
	switch {
	case f == YAMLFormat:
		d, err = ir.ToYAML(y)
	case c != nil:
		buf := bytes.NewBuffer(nil)
		err = c.writeJSON(buf, y, "")
		buf.WriteByte('\n')
		d = buf.Bytes()
	default:
		d, err = ir.ToJSONIndent(y)
		d = append(d, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(d)
	return err
}

// encodePatches writes ps one per line, as a JSON array or as YAML.
func encodePatches(w io.Writer, f Format, ps []patch.Patch, c *Colors) error {
	if f == YAMLFormat {
		d, err := json.Marshal(ps)
		if err != nil {
			return err
		}
		y, err := ir.FromJSON(d)
		if err != nil {
			return err
		}
		return encode(w, f, y, nil)
	}
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}
	for i := range ps {
		d, err := json.Marshal(ps[i])
		if err != nil {
			return err
		}
		line := string(d)
		if c != nil {
			line = c.Op(ps[i].Op, line)
		}
		if i < len(ps)-1 {
			line += ","
		}
		if _, err := io.WriteString(w, "  "+line+"\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}

func decodePatches(f Format, d []byte) ([]patch.Patch, error) {
	y, err := decode(f, d)
	if err != nil {
		return nil, err
	}
	if y.Type != ir.ArrayType {
		return nil, fmt.Errorf("expected a list of patches, got %s", y.Type)
	}
	jd, err := ir.ToJSON(y)
	if err != nil {
		return nil, err
	}
	var ps []patch.Patch
	if err := json.Unmarshal(jd, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}
