package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"

	"github.com/scott-cotton/cli"
)

func view(cfg *ViewConfig, cc *cli.Context, args []string) error {
	args, err := cfg.View.Parse(cc, args)
	if err != nil {
		return err
	}
	var a *tree.Arena
	if cfg.Models != "" {
		a, err = cfg.newArena(cc)
		if err != nil {
			return err
		}
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	for i, file := range args {
		d, err := readArg(cc, file)
		if err != nil {
			return err
		}
		if err := viewDocs(cfg, a, cc.Out, d); err != nil {
			return fmt.Errorf("error processing %s: %w", file, err)
		}
		if i < len(args)-1 {
			if _, err := cc.Out.Write([]byte("---\n")); err != nil {
				return err
			}
		}
	}
	return nil
}

func viewDocs(cfg *ViewConfig, a *tree.Arena, w io.Writer, in []byte) error {
	docs := bytes.Split(in, []byte("\n---\n"))
	n := len(docs)
	colors := cfg.colors(w)
	for i, doc := range docs {
		y, err := decode(cfg.inFormat(), doc)
		if err != nil {
			return fmt.Errorf("error decoding document %d: %w", i, err)
		}
		if a != nil {
			if err := checkDoc(a, y); err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
		}
		if err := encode(w, cfg.outFormat(), y, colors); err != nil {
			return fmt.Errorf("error encoding result %d: %w", i, err)
		}
		if i < n-1 {
			if _, err := w.Write([]byte("---\n")); err != nil {
				return fmt.Errorf("error writing document %d: %w", i, err)
			}
		}
	}
	return nil
}

// checkDoc loads y into a, checking the models it contains.
func checkDoc(a *tree.Arena, y *ir.Node) error {
	_, err := a.FromSnapshot(y)
	return err
}
