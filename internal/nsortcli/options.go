package nsortcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"notesort/internal/config"
)

type Options struct {
	ConfigPath string
	Addr       string
	JSON       bool
	NoColor    bool
}

func (o *Options) Prepare() error {
	o.normalize()
	if o.ConfigPath != "" {
		p, err := config.ExpandPath(o.ConfigPath)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		o.ConfigPath = p
	}
	return nil
}

func (o *Options) normalize() {
	o.ConfigPath = strings.TrimSpace(o.ConfigPath)
	o.Addr = strings.TrimSpace(o.Addr)
}

// LoadConfig reads the configured file. A missing file yields the defaults
// and exists=false.
func (o *Options) LoadConfig() (cfg *config.Config, path string, exists bool, err error) {
	cfg, path, err = config.Load(o.ConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			def := config.Default()
			return &def, path, false, nil
		}
		return nil, path, false, err
	}
	return cfg, path, true, nil
}

// DaemonAddr is --addr when given, otherwise the configured listen address.
func (o *Options) DaemonAddr() (string, error) {
	if o.Addr != "" {
		return o.Addr, nil
	}
	cfg, _, _, err := o.LoadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Daemon.Listen, nil
}

type optionsKey struct{}

func optionsFrom(cmd *cobra.Command) *Options {
	if cmd == nil {
		return nil
	}
	root := cmd.Root()
	if root == nil {
		root = cmd
	}
	v := root.Context().Value(optionsKey{})
	opts, _ := v.(*Options)
	return opts
}

func bindFlags(cmd *cobra.Command, opts *Options) {
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "config file (default ~/.config/notesort/config.toml)")
	cmd.PersistentFlags().StringVarP(&opts.Addr, "addr", "a", opts.Addr, "nsortd address (default: daemon.listen from the config)")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", opts.JSON, "output as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.NoColor, "no-color", "z", opts.NoColor, "suppress colors")
}

func ExecuteForTest(cmd *cobra.Command) (string, Options, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()

	opts := optionsFrom(cmd)
	if opts == nil {
		return out.String(), Options{}, err
	}
	opts.normalize()

	return out.String(), *opts, err
}

func newDefaultOptions() *Options {
	return &Options{}
}

func withOptionsContext(cmd *cobra.Command, opts *Options) {
	cmd.SetContext(context.WithValue(context.Background(), optionsKey{}, opts))
}
