package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/scott-cotton/cli"

	"github.com/mattn/go-isatty"
)

type MainConfig struct {
	Color  bool   `cli:"name=color desc='encode with color'"`
	Models string `cli:"name=models desc='model spec file (json or yaml)'"`

	J bool `cli:"name=j aliases=json desc='do i/o in json'"`
	Y bool `cli:"name=y aliases=yaml desc='do i/o in yaml'"`

	InFormat, OutFormat *Format

	Out string
	out io.Closer

	Main *cli.Command
}

func (cfg *MainConfig) fmtFunc(fps ...**Format) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		f, err := ParseFormat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
		for _, fp := range fps {
			*fp = &f
		}
		return f, nil
	})
}

// inFormat is the input format; YAMLFormat, which also reads JSON, unless
// -j or -I say otherwise.
func (cfg *MainConfig) inFormat() Format {
	fmat := YAMLFormat
	if cfg.J {
		fmat = JSONFormat
	}
	if cfg.InFormat != nil {
		fmat = *cfg.InFormat
	}
	return fmat
}

func (cfg *MainConfig) outFormat() Format {
	fmat := JSONFormat
	if cfg.Y {
		fmat = YAMLFormat
	}
	if cfg.OutFormat != nil {
		fmat = *cfg.OutFormat
	}
	return fmat
}

// colors returns the palette to encode to w with, or nil. Without -color,
// colors are used when w is a terminal.
func (cfg *MainConfig) colors(w io.Writer) *Colors {
	if cfg.Color {
		return NewColors()
	}
	colorsSet := false
	for _, opt := range cfg.Main.Opts {
		if opt.Name != "color" {
			continue
		}
		colorsSet = opt.Value != nil
		break
	}
	if colorsSet {
		return nil
	}
	f, ok := w.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) {
		return NewColors()
	}
	return nil
}

type ViewConfig struct {
	*MainConfig

	View *cli.Command
}

type GetConfig struct {
	*MainConfig

	Get *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Reverse   bool   `cli:"name=r desc='reverse the diff'"`
	JSONPatch bool   `cli:"name=jsonpatch desc='output RFC 6902 JSON patch'"`
	Loop      string `cli:"name=loop desc='command to produce documents to diff in a loop'"`
	LoopEvery time.Duration
	LoopLim   int `cli:"name=loopLim desc='max number of times to loop'"`

	Diff *cli.Command
}

func (cfg *DiffConfig) mkLoopEvery() func(cc *cli.Context, a string) (any, error) {
	return func(_ *cli.Context, a string) (any, error) {
		d, err := time.ParseDuration(a)
		if err != nil {
			return nil, err
		}
		cfg.LoopEvery = d
		return d, nil
	}
}

type PatchConfig struct {
	*MainConfig
	Reverse   bool `cli:"name=r desc='apply patches reversed'"`
	String    bool `cli:"name=s desc='patch arg as string'"`
	JSONPatch bool `cli:"name=jsonpatch desc='patches are RFC 6902 JSON patch'"`
	Live      bool `cli:"name=live desc='apply to a live tree, keeping model identities'"`

	Patch *cli.Command
}

type ReconcileConfig struct {
	*MainConfig
	Result bool `cli:"name=result desc='print the reconciled document instead of the patches'"`
	NoPool bool `cli:"name=nopool desc='do not reuse models found elsewhere in the tree'"`

	Reconcile *cli.Command
}

type ReplayConfig struct {
	*MainConfig
	DB     string `cli:"name=db desc='sqlite journal database'"`
	Redis  string `cli:"name=redis desc='redis address'"`
	Prefix string `cli:"name=prefix desc='redis key prefix'"`

	Replay *cli.Command
}
