package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/abe-nagisa/tacozip/tacozip"
)

// app is the state shared by one command tree: its configuration and logger.
type app struct {
	cfgFile string
	v       *viper.Viper
	log     *jww.Notepad
}

// NewRootCmd builds the tacozip command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	rootCmd := &cobra.Command{
		Use:   "tacozip",
		Short: "Write and patch ZIP64 archives that carry a TACO ghost record",
		Long: `tacozip writes ZIP64 archives whose first entry is a 160-byte ghost
record holding up to seven (offset, length) pointers. The pointers can be
rewritten in place after the archive is finished, and single entries can be
replaced when their stored size does not change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return a.initConfig(c)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.tacozip.yaml)")
	f.BoolP("verbose", "v", false, "log progress to stderr")
	f.Int("buffer-size", tacozip.DefaultBufferSize, "output buffer size in bytes")
	f.String("method", "store", "method for new entries: store or deflate")
	f.Int("level", -1, "deflate level, -2 to 9")
	f.Bool("utf8", false, "set the UTF-8 flag on every entry")
	f.Bool("preallocate", true, "reserve the estimated archive size before writing")
	f.Bool("lock", false, "hold an advisory lock while patching an archive")
	for _, key := range []string{"verbose", "buffer-size", "method", "level", "utf8", "preallocate", "lock"} {
		if err := a.v.BindPFlag(key, f.Lookup(key)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		a.newCreateCmd(),
		a.newGhostCmd(),
		a.newReplaceCmd(),
		a.newListCmd(),
		a.newFetchCmd(),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func errorLine(err error) string {
	var te *tacozip.Error
	if stderrors.As(err, &te) {
		return fmt.Sprintf("error %d: %v", int(te.Code), err)
	}
	return fmt.Sprintf("error: %v", err)
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig(c *cobra.Command) error {
	if a.cfgFile != "" {
		path, err := homedir.Expand(a.cfgFile)
		if err != nil {
			return err
		}
		// Use config file from the flag.
		a.v.SetConfigFile(path)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err == nil {
			// Search config in home directory with name ".tacozip" (without extension).
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(".tacozip")
	}

	a.v.SetEnvPrefix("tacozip")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv() // read in environment variables that match

	threshold := jww.LevelError
	if a.v.GetBool("verbose") {
		threshold = jww.LevelInfo
	}
	a.log = jww.NewNotepad(threshold, jww.LevelFatal, c.OutOrStderr(), io.Discard, "tacozip", log.Ltime)

	// If a config file is found, read it in.
	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && a.cfgFile == "" {
			return nil
		}
		return errors.Wrap(err, "read config")
	}
	a.log.INFO.Println("using config file:", a.v.ConfigFileUsed())
	return nil
}
