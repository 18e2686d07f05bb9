package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix = "PINCHVOL"
	FileName  = "pinchvol.yaml"
)

// Load reads the configuration file and PINCHVOL_ environment variables.
// An explicit path must exist. Without one, the file is looked up in the
// working directory, ./configs and ~/.pinchvol, and a missing file falls
// back to defaults plus environment.
func Load(path string) (Config, error) {
	conf := Default()

	opts := []fig.Option{fig.UseEnv(EnvPrefix)}
	if path != "" {
		opts = append(opts, fig.File(filepath.Base(path)), fig.Dirs(filepath.Dir(path)))
	} else {
		dirs := []string{".", "configs"}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".pinchvol"))
		}
		opts = append(opts, fig.File(FileName), fig.Dirs(dirs...))
	}

	err := fig.Load(&conf, opts...)
	if errors.Is(err, fig.ErrFileNotFound) && path == "" {
		conf = Default()
		err = LoadEnv(&conf)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return conf, nil
}

// LoadEnv fills conf from the environment only, keeping the values it
// already holds where no variable is set.
func LoadEnv(conf *Config) error {
	return fig.Load(conf, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}

// Path extracts the --conf/-c value from args without failing on the rest,
// which are only known once the loaded config has been bound to flags.
func Path(args []string) string {
	fs := pflag.NewFlagSet("conf", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.SetOutput(discard{})
	path := fs.StringP("conf", "c", "", "")
	_ = fs.Parse(args)
	return *path
}

// Parse is the full startup sequence: file and env first, then flags on top.
func Parse(name string, args []string) (Config, error) {
	conf, err := Load(Path(args))
	if err != nil {
		return Config{}, err
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("conf", "c", "", "Set custom configuration file path")
	conf.WithFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
