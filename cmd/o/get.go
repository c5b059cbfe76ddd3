package main

import (
	"fmt"

	"github.com/signadot/treestate/ir"

	"github.com/scott-cotton/cli"
)

func get(cfg *GetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Get.Parse(cc, args)
	if err != nil {
		cfg.Get.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: get requires one argument, a path", cli.ErrUsage)
	}
	path, err := ir.ParsePath(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	args = args[1:]
	if len(args) == 0 {
		args = []string{"-"}
	}
	colors := cfg.colors(cc.Out)
	for i, arg := range args {
		y, err := getObjFile(cc, arg, cfg.inFormat())
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", arg, err)
		}
		res, err := ir.GetPath(y, path)
		if err != nil {
			return fmt.Errorf("error getting %s from %s: %w", path, arg, err)
		}
		if i > 0 {
			if _, err := cc.Out.Write([]byte("---\n")); err != nil {
				return err
			}
		}
		if err := encode(cc.Out, cfg.outFormat(), res, colors); err != nil {
			return fmt.Errorf("error encoding result: %w", err)
		}
	}
	return nil
}
