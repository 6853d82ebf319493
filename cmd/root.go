/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/impesconv/InputParameters"
	"github.com/notargets/impesconv/cases"
	"github.com/notargets/impesconv/config"
	"github.com/notargets/impesconv/history"
	"github.com/notargets/impesconv/sweep"
)

// app holds what the commands share: the configuration they were started
// with and the flags of the root command.
type app struct {
	v        *viper.Viper
	cfgFile  string
	caseFile string
	profile  string
}

// NewRootCmd builds the command tree. Stage tokens on the root command run
// those stages of the case named by --case or PROBLEM.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	rootCmd := &cobra.Command{
		Use:   "impesconv [stage]...",
		Short: "Convergence tests for the Darcy IMPES solver",
		Long: `
Builds the meshes, simulations and tests of a convergence case, runs them and
reports errors and convergence rates. Stages run in the order
pre, xml, mesh, run, post, clean whatever order they are given in; with no
stages, pre run post is assumed (pre mesh run post for cases that mesh
separately).

impesconv --case darcy_impes_p1_2phase_bl pre run post`,
		ValidArgs:     cases.StageNames(),
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		RunE: a.runStages,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.impesconv.yaml)")
	pf.StringP("case", "c", "", "built-in case to run, overrides PROBLEM: "+strings.Join(cases.Names(), ", "))
	pf.StringVarP(&a.caseFile, "case-file", "f", "", "YAML case file to run instead of a built-in case")
	pf.String("log-level", "", "log level: trace, debug, info, warn or error")
	pf.IntP("nproc", "n", 0, "number of parallel workers, overrides NPROC")
	rootCmd.Flags().StringVar(&a.profile, "profile", "", "write a cpu or mem profile of the run")
	for key, flag := range map[string]string{
		"problem":   "case",
		"log_level": "log-level",
		"nproc":     "nproc",
	} {
		// only fails for a nil flag
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}
	rootCmd.AddCommand(
		newTreeCmd(a),
		newReportCmd(),
		newHistoryCmd(a),
	)
	return rootCmd
}

// Execute runs the command line. Only configuration errors give a nonzero
// exit status; leaf failures are reported in the stage summaries.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// initConfig reads in the config file and .env, if present.
func (a *app) initConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigName(".impesconv")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}
	return nil
}

func (a *app) logger(s *config.Settings, w io.Writer) hclog.Logger {
	level := hclog.LevelFromString(s.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	if s.Verbosity > 0 && level > hclog.Debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "impesconv",
		Level:  level,
		Output: w,
	})
}

// loadCase resolves the settings and builds the case they name. A case file
// names its own problem unless --case is given.
func (a *app) loadCase(cmd *cobra.Command) (c *cases.Case, err error) {
	var (
		s  *config.Settings
		cp *InputParameters.CaseParameters
	)
	if a.caseFile != "" {
		if cp, err = cases.Load(afero.NewOsFs(), a.caseFile); err != nil {
			return
		}
		if a.v.GetString("problem") == "" {
			a.v.Set("problem", cp.Name)
		}
	}
	if s, err = config.Load(a.v); err != nil {
		return
	}
	if cp == nil {
		if cp, err = cases.Builtin(s.Problem); err != nil {
			return
		}
	}
	if c, err = cases.Build(cp, s); err != nil {
		return
	}
	c.Out = cmd.OutOrStdout()
	c.Logger = a.logger(s, cmd.ErrOrStderr())
	return
}

func (a *app) runStages(cmd *cobra.Command, args []string) (err error) {
	var (
		c      *cases.Case
		stages []cases.Stage
		sums   []*sweep.Summary
	)
	switch a.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return errors.Errorf("unknown profile %q, want cpu or mem", a.profile)
	}
	if c, err = a.loadCase(cmd); err != nil {
		return
	}
	if stages, err = cases.ParseStages(args, c.Params.SeparateMeshing); err != nil {
		return
	}
	if c.Settings.HistoryPath != "" {
		var (
			store *history.Store
			sw    *history.Sweep
		)
		if store, err = history.Open(c.Settings.HistoryPath); err != nil {
			return
		}
		defer store.Close()
		if sw, err = store.Sweep(c.Params.Name); err != nil {
			return
		}
		c.Recorder = sw
		c.Logger.Info("recording sweep", "id", sw.ID, "db", c.Settings.HistoryPath)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	sums, err = c.Run(ctx, stages)
	printSummaries(cmd.OutOrStdout(), sums)
	return
}

func printSummaries(w io.Writer, sums []*sweep.Summary) {
	if len(sums) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, s := range sums {
		fmt.Fprintf(w, "%-48s %4d done %4d failed  %v\n",
			s.Description, s.Succeeded(), s.Failed(), s.Elapsed.Round(time.Millisecond))
	}
}
