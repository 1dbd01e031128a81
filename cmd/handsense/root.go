package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/banshee-data/handsense/internal/config"
	"github.com/banshee-data/handsense/internal/monitoring"
)

var (
	cfgFile   string
	verbose   bool
	configErr error
)

var rootCmd = &cobra.Command{
	Use:          "handsense",
	Short:        "Read finger position and force telemetry from a sensor glove",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		monitoring.SetDebug(verbose)
	},
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"port":             "port",
	"baud-rate":        "baud_rate",
	"emit-interval":    "emit_interval",
	"window-size":      "window_size",
	"read-timeout":     "read_timeout",
	"queue-size":       "queue_size",
	"index-policy":     "index_policy",
	"listen":           "listen",
	"fixture":          "fixture",
	"fixture-interval": "fixture_interval",
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file, json, yaml or toml (default is $HOME/.handsense/config.*)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log per-line parse and rate limit diagnostics")

	pf.String("port", config.DefaultPort, "serial device to read (ignored with --fixture)")
	pf.Int("baud-rate", config.DefaultBaudRate, "serial baud rate")
	pf.Duration("emit-interval", config.DefaultEmitInterval, "minimum gap between forwarded batches (0 disables limiting)")
	pf.Int("window-size", config.DefaultWindowSize, "samples of history kept per sensor axis")
	pf.Duration("read-timeout", config.DefaultReadTimeout, "serial read timeout")
	pf.Int("queue-size", config.DefaultQueueSize, "per-subscriber notification queue length")
	pf.String("index-policy", config.DefaultIndexPolicy, "out of range sensor numbers: clamp or reject")
	pf.String("listen", config.DefaultListen, "debug HTTP listen address (empty disables)")
	pf.String("fixture", "", "replay a file of recorded sensor lines instead of opening a device")
	pf.Duration("fixture-interval", config.DefaultFixtureInterval, "delay between replayed lines")

	cobra.CheckErr(bindFlags(viper.GetViper(), pf))
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag %s not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("/etc/handsense")
		viper.AddConfigPath("$HOME/.handsense")
		viper.SetConfigName("config")
	}
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("using config file %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		configErr = fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}
}

// loadConfig resolves flags, environment, config file and defaults into one
// validated Config.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.FromViper(viper.GetViper())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
