// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperpal CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpal/internal/config"
	"github.com/pdiddy/paperpal/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// log is the CLI logger. Its level is set from configuration before any
// command runs.
var log = newLogger()

// rootCmd is the base command for the paperpal CLI.
var rootCmd = &cobra.Command{
	Use:   "paperpal",
	Short: "Find and rank new arXiv papers against your interests",
	Long: `paperpal retrieves recent arXiv papers, has an LLM judge score each one
against a topic and your interest profile, and prints the papers that pass
the threshold, best first.

Feedback on a ranking ("paper 2 is great, no more surveys") updates the
profile used by the next search. Run without a subcommand for an
interactive session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if lvl, err := logrus.ParseLevel(viper.GetString("log_level")); err == nil {
			log.SetLevel(lvl)
		}
		if viper.GetString("judge.api_key") != "" {
			return nil
		}
		key, err := secrets.Get(secrets.DefaultDir, secrets.OpenAIKey, log)
		if err != nil {
			return err
		}
		if key != "" {
			viper.Set("judge.api_key", key)
			log.WithField("secret", secrets.OpenAIKey).Debug("loaded judge key from secrets")
		}
		return nil
	},
	RunE: runInteractive,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperpal.yaml or ~/.config/paperpal/paperpal.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperpal")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperpal"))
		}
	}

	viper.SetEnvPrefix("PAPERPAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	return l
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
