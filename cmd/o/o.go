package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"
)

// oMain dispatches to the subcommand named by args[0]. The -o file, if any,
// is closed when the subcommand returns.
func oMain(cfg *MainConfig, cc *cli.Context, args []string) (err error) {
	defer func() {
		if cerr := cfg.closeOut(); err == nil {
			err = cerr
		}
	}()
	if args, err = cfg.Main.Parse(cc, args); err != nil {
		return err
	}
	if err = cfg.checkShorthands(); err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	name, rest := args[0], args[1:]
	sub := cfg.Main.FindSub(cc, name)
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, name)
	}
	if err = sub.Run(cc, rest); errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func (cfg *MainConfig) checkShorthands() error {
	if cfg.J && cfg.Y {
		return fmt.Errorf("%w: -j[son] and -y[aml] are exclusive", cli.ErrUsage)
	}
	return nil
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	w, err := cfg.setOut(a)
	if err != nil {
		return nil, err
	}
	if w != nil {
		cc.Out = w
	}
	return a, nil
}

// setOut records path as the output file and opens it, truncating. A
// previously opened output is closed; "-" keeps stdout and returns nil.
func (cfg *MainConfig) setOut(path string) (io.WriteCloser, error) {
	if err := cfg.closeOut(); err != nil {
		return nil, err
	}
	cfg.Out = path
	if path == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	cfg.out = f
	return f, nil
}

func (cfg *MainConfig) closeOut() error {
	if cfg.out == nil {
		return nil
	}
	err := cfg.out.Close()
	cfg.out = nil
	return err
}
