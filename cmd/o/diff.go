package main

import (
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/libdiff"
	"github.com/signadot/treestate/patch"

	"github.com/scott-cotton/cli"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	opts, err := cfg.diffOpts(cc)
	if err != nil {
		return err
	}
	if cfg.Loop == "" {
		if len(args) != 2 {
			return fmt.Errorf("%w: diff (without -loop) requires 2 args, got %v", cli.ErrUsage, args)
		}
		y1, err := getObjFile(cc, args[0], cfg.inFormat())
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", args[0], err)
		}
		y2, err := getObjFile(cc, args[1], cfg.inFormat())
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", args[1], err)
		}
		diff, err := diffInputs(cfg, cc, y1, y2, false, opts)
		if err != nil {
			return err
		}
		if diff {
			return cli.ExitCodeErr(1)
		}
		return nil
	}

	return diffLoop(cfg, cc, opts)
}

// diffOpts aligns models by type and id when -models names a single id
// property for all of them.
func (cfg *DiffConfig) diffOpts(cc *cli.Context) ([]libdiff.Option, error) {
	if cfg.Models == "" {
		return nil, nil
	}
	a, err := cfg.newArena(cc)
	if err != nil {
		return nil, err
	}
	idKey := ""
	for _, mt := range a.Registry().Types() {
		switch idKey {
		case "":
			idKey = mt.IDProp
		case mt.IDProp:
		default:
			return nil, fmt.Errorf("models use different id properties %q and %q", idKey, mt.IDProp)
		}
	}
	if idKey == "" {
		return nil, nil
	}
	return []libdiff.Option{libdiff.WithModelKeys(a.TypeKey(), idKey)}, nil
}

func diffLoop(cfg *DiffConfig, cc *cli.Context, opts []libdiff.Option) error {
	i := 0
	last := ir.Null()
	ticker := time.NewTicker(cfg.LoopEvery)
	defer ticker.Stop()
	diffCount := 0
	for {
		if i == cfg.LoopLim {
			break
		}
		cmd := exec.Command("sh", "-c", cfg.Loop)
		r, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("unable to create pipe for command %q: %w", cfg.Loop, err)
		}
		cmd.WaitDelay = cfg.LoopEvery
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("unable to start %q: %w", cfg.Loop, err)
		}
		d, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		next, err := decode(cfg.inFormat(), d)
		if err != nil {
			return fmt.Errorf("error decoding command output: %w", err)
		}
		differs, err := diffInputs(cfg, cc, last, next, diffCount > 0, opts)
		if err != nil {
			return err
		}
		if differs {
			diffCount++
		}
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("command %q exited with an error: %w", cfg.Loop, err)
		}
		last = next
		<-ticker.C
		i++
	}
	return nil
}

func diffInputs(do *DiffConfig, cc *cli.Context, a, b *ir.Node, sep bool, opts []libdiff.Option) (bool, error) {
	d := libdiff.Diff(a, b, opts...)
	w := cc.Out
	if len(d) == 0 {
		return false, nil
	}
	when := time.Now().Format(time.RFC3339Nano)
	if do.Reverse {
		d = patch.Invert(d)
	}
	if sep {
		_, err := w.Write([]byte("---\n"))
		if err != nil {
			return false, fmt.Errorf("unable to write separator: %w", err)
		}
	}
	if do.Loop != "" {
		_, err := w.Write([]byte("# difference found at " + when + "\n"))
		if err != nil {
			return false, err
		}
	}
	if err := writePatches(do.MainConfig, w, d, do.JSONPatch); err != nil {
		return false, err
	}
	return true, nil
}

func writePatches(cfg *MainConfig, w io.Writer, ps []patch.Patch, rfc bool) error {
	if !rfc {
		return encodePatches(w, cfg.outFormat(), ps, cfg.colors(w))
	}
	d, err := patch.ToJSONPatch(ps)
	if err != nil {
		return err
	}
	_, err = w.Write(append(d, '\n'))
	return err
}
