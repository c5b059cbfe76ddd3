package main

import (
	"context"
	"fmt"

	"github.com/signadot/treestate/store"
	"github.com/signadot/treestate/store/redis"
	"github.com/signadot/treestate/store/sqlite"

	"github.com/scott-cotton/cli"
)

func replay(cfg *ReplayConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Replay.Parse(cc, args)
	if err != nil {
		cfg.Replay.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: replay requires a journal name, got %v", cli.ErrUsage, args)
	}
	s, err := cfg.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	sn, seq, err := store.Replay(context.Background(), s, args[0])
	if err != nil {
		return fmt.Errorf("error replaying %s: %w", args[0], err)
	}
	if cfg.outFormat() == YAMLFormat {
		if _, err := fmt.Fprintf(cc.Out, "# %s at %d\n", args[0], seq); err != nil {
			return err
		}
	}
	return encode(cc.Out, cfg.outFormat(), sn, cfg.colors(cc.Out))
}

func (cfg *ReplayConfig) openStore() (store.Store, error) {
	switch {
	case cfg.DB != "" && cfg.Redis != "":
		return nil, fmt.Errorf("%w: at most one of -db and -redis", cli.ErrUsage)
	case cfg.DB != "":
		return sqlite.NewStore(cfg.DB)
	case cfg.Redis != "":
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		return redis.New(cfg.Redis, "", 0, opts...), nil
	}
	return nil, fmt.Errorf("%w: one of -db or -redis is required", cli.ErrUsage)
}
