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
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/notargets/impesconv/config"
	"github.com/notargets/impesconv/convergence"
	"github.com/notargets/impesconv/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var sweepID string
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sweeps, or the records of one",
		Long: `
Reads the sweep history kept in the database named by IMPES_HISTORY.

impesconv history
impesconv history --sweep 0b3c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.HistoryPath(a.v)
			if err != nil {
				return err
			}
			if path == "" {
				return errors.New("no history database, set IMPES_HISTORY")
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()
			if sweepID != "" {
				recs, err := store.Records(sweepID)
				if err != nil {
					return err
				}
				convergence.PrintReport(out, recs)
				return nil
			}
			sweeps, err := store.Sweeps()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "sweep\tproblem\tstarted\trecords")
			for _, s := range sweeps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Problem, s.StartedAt.Local().Format(time.DateTime), s.Records)
			}
			return tw.Flush()
		},
	}
	historyCmd.Flags().StringVarP(&sweepID, "sweep", "s", "", "print the records of this sweep")
	return historyCmd
}
