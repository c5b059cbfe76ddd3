package main

import (
	"fmt"

	"github.com/signadot/treestate/modelpool"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/reconcile"
	"github.com/signadot/treestate/tree"

	"github.com/scott-cotton/cli"
)

func reconcileCmd(cfg *ReconcileConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Reconcile.Parse(cc, args)
	if err != nil {
		cfg.Reconcile.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: reconcile requires 2 args, got %v", cli.ErrUsage, args)
	}
	from, err := getObjFile(cc, args[0], cfg.inFormat())
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[0], err)
	}
	to, err := getObjFile(cc, args[1], cfg.inFormat())
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[1], err)
	}
	a, err := cfg.newArena(cc)
	if err != nil {
		return err
	}
	cur, err := a.FromSnapshot(from)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", args[0], err)
	}
	var (
		rec  *tree.PatchRecorder
		pool *modelpool.Pool
	)
	root, isNode := cur.(*tree.Node)
	if isNode {
		rec = tree.NewPatchRecorder(root)
		defer rec.Stop()
		if !cfg.NoPool {
			pool = modelpool.New(root)
		}
	}
	res, err := reconcile.New(a).Reconcile(cur, to, pool, nil)
	if err != nil {
		return fmt.Errorf("error reconciling: %w", err)
	}
	if cfg.Result {
		return encode(cc.Out, cfg.outFormat(), tree.GetSnapshot(res), cfg.colors(cc.Out))
	}
	var ps []patch.Patch
	switch {
	case isNode && res == any(root):
		ps = rec.Patches()
	default:
		// the root itself was replaced
		ps = []patch.Patch{{
			Op:       patch.Replace,
			Value:    tree.GetSnapshot(res),
			OldValue: from,
		}}
	}
	return encodePatches(cc.Out, cfg.outFormat(), ps, cfg.colors(cc.Out))
}
