package main

import (
	"fmt"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/reconcile"
	"github.com/signadot/treestate/tree"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/scott-cotton/cli"
)

func patchCmd(cfg *PatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Patch.Parse(cc, args)
	if err != nil {
		cfg.Patch.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: patch requires 2 arguments, a list of patches, and a file to which to apply it", cli.ErrUsage)
	}
	if cfg.JSONPatch && cfg.Reverse {
		return fmt.Errorf("%w: -r can not be used with -jsonpatch", cli.ErrUsage)
	}
	pd, err := cfg.patchArg(cc, args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	target, err := getObjFile(cc, args[1], cfg.inFormat())
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[1], err)
	}
	var res *ir.Node
	if cfg.JSONPatch {
		res, err = applyRFC(pd, target)
	} else {
		res, err = cfg.apply(cc, pd, target)
	}
	if err != nil {
		return fmt.Errorf("error patching %s: %w", args[1], err)
	}
	if err := encode(cc.Out, cfg.outFormat(), res, cfg.colors(cc.Out)); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func (cfg *PatchConfig) patchArg(cc *cli.Context, arg string) ([]byte, error) {
	if cfg.String {
		return []byte(arg), nil
	}
	return readArg(cc, arg)
}

func (cfg *PatchConfig) apply(cc *cli.Context, pd []byte, target *ir.Node) (*ir.Node, error) {
	ps, err := decodePatches(cfg.inFormat(), pd)
	if err != nil {
		return nil, fmt.Errorf("error decoding patches: %w", err)
	}
	if cfg.Reverse {
		ps = patch.Invert(ps)
	}
	if !cfg.Live {
		return patch.Apply(target, ps...)
	}
	a, err := cfg.newArena(cc)
	if err != nil {
		return nil, err
	}
	v, err := a.FromSnapshot(target)
	if err != nil {
		return nil, err
	}
	root, ok := v.(*tree.Node)
	if !ok {
		return nil, fmt.Errorf("-live requires an object or array document")
	}
	if err := reconcile.New(a).ApplyPatches(root, ps...); err != nil {
		return nil, err
	}
	return tree.GetSnapshot(root), nil
}

// applyRFC applies an RFC 6902 document, which has no old values and so can
// not be reversed.
func applyRFC(pd []byte, target *ir.Node) (*ir.Node, error) {
	pj, err := decode(YAMLFormat, pd)
	if err != nil {
		return nil, err
	}
	jd, err := ir.ToJSON(pj)
	if err != nil {
		return nil, err
	}
	jp, err := jsonpatch.DecodePatch(jd)
	if err != nil {
		return nil, err
	}
	doc, err := ir.ToJSON(target)
	if err != nil {
		return nil, err
	}
	out, err := jp.Apply(doc)
	if err != nil {
		return nil, err
	}
	return ir.FromJSON(out)
}
