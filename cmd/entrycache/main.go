package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/entrycache"
	"github.com/unkn0wn-root/entrycache/config"
	"github.com/unkn0wn-root/entrycache/key"
)

var errMiss = errors.New("not found")

type globals struct {
	configPath string
	backend    string
	dir        string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "entrycache",
		Short:         "Inspect and edit cache entries",
		Long:          "Read, write and delete entrycache items in any configured backend.\nKeys are given as field=value pairs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&g.backend, "backend", "", "backend override (file, redis, ristretto, bigcache, postgres)")
	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", "", "file backend directory override")

	rootCmd.AddCommand(
		getCmd(g),
		setCmd(g),
		deleteCmd(g),
	)
	return rootCmd
}

// open loads the config and returns an entry for the key in args. The
// entry owns the backend and closes it on Release.
func (g *globals) open(ctx context.Context, args []string) (*entrycache.Entry[any], func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.dir != "" {
		cfg.File.Dir = g.dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	fields, err := parseFields(args)
	if err != nil {
		return nil, nil, err
	}
	vc, err := cfg.ValueCodec()
	if err != nil {
		return nil, nil, err
	}
	logger, sync, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	be, err := cfg.OpenBackend(ctx)
	if err != nil {
		sync()
		return nil, nil, err
	}
	e, err := entrycache.New[any](entrycache.Options[any]{
		Backend:       be,
		Codec:         vc,
		Logger:        logger,
		DefaultExpiry: cfg.DefaultExpiry,
		CloseBackend:  true,
	}, fields...)
	if err != nil {
		_ = be.Close(ctx)
		sync()
		return nil, nil, err
	}
	return e, sync, nil
}

func getCmd(g *globals) *cobra.Command {
	var showMeta bool

	cmd := &cobra.Command{
		Use:   "get <field=value>...",
		Short: "Print a cached value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			e, sync, err := g.open(ctx, args)
			if err != nil {
				return err
			}
			defer sync()
			defer e.Release(ctx, &err)

			v, ok, err := e.Get(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", e.Key(), errMiss)
			}
			out := cmd.OutOrStdout()
			if showMeta {
				fmt.Fprintf(out, "key:     %s\nexpires: %s\ndecoded: %s\n", e.Key(), e.Expiration().UTC().Format("2006-01-02 15:04:05"), e.Decoded())
			}
			if s, isText := v.(string); isText {
				fmt.Fprintln(out, s)
				return nil
			}
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMeta, "meta", false, "also print key, expiry and decode outcome")
	return cmd
}

func setCmd(g *globals) *cobra.Command {
	var (
		value    string
		expires  string
		asJSON   bool
		deferred bool
	)

	cmd := &cobra.Command{
		Use:   "set <field=value>... --value <value>",
		Short: "Store a value",
		Long:  "Store a value. --expires accepts a unix timestamp, a duration-like phrase (\"+1 day\", \"3 hours\") or a date.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var v any = value
			if asJSON {
				if err := json.Unmarshal([]byte(value), &v); err != nil {
					return fmt.Errorf("--value is not valid JSON: %w", err)
				}
			}

			ctx := cmd.Context()
			e, sync, err := g.open(ctx, args)
			if err != nil {
				return err
			}
			defer sync()
			defer e.Release(ctx, &err)

			var exp entrycache.Expiry
			if expires != "" {
				exp = entrycache.Relative(expires)
			}
			if deferred {
				err = e.Set(ctx, v, exp)
			} else {
				err = e.SetNow(ctx, v, exp)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s until %s\n", e.Key(), e.Expiration().UTC().Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "value to store")
	cmd.Flags().StringVar(&expires, "expires", "", "expiration (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "parse --value as JSON")
	cmd.Flags().BoolVar(&deferred, "defer", false, "write on exit instead of immediately")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func deleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <field=value>...",
		Short: "Delete a cached value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			e, sync, err := g.open(ctx, args)
			if err != nil {
				return err
			}
			defer sync()
			defer e.Release(ctx, &err)

			if err := e.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", e.Key())
			return nil
		},
	}
}

// parseFields turns field=value arguments into key fields. Values that parse
// as integers or floats are stored as numbers.
func parseFields(args []string) ([]key.Field, error) {
	fields := make([]key.Field, 0, len(args))
	for _, a := range args {
		name, raw, ok := splitField(a)
		if !ok {
			return nil, fmt.Errorf("invalid key field %q: want field=value", a)
		}
		fields = append(fields, key.F(name, fieldValue(raw)))
	}
	return fields, nil
}
