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
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/notargets/impesconv/options"
)

func newTreeCmd(a *app) *cobra.Command {
	var (
		which   string
		entries bool
	)
	treeCmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the options tree of a case",
		Long: `
Prints the mesh, simulation or test tree of a case as axis branches, with
the literal entries of each node when asked.

impesconv tree --case darcy_impes_p1_2phase_bl --which sim`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCase(cmd)
			if err != nil {
				return err
			}
			var tr *options.Tree
			switch which {
			case "mesh":
				tr = c.MeshTree
			case "sim":
				tr = c.SimulationTree
			case "test":
				tr = c.TestTree
			default:
				return errors.Errorf("unknown tree %q, want mesh, sim or test", which)
			}
			return tr.Print(cmd.OutOrStdout(), entries)
		},
	}
	treeCmd.Flags().StringVarP(&which, "which", "w", "sim", "tree to print: mesh, sim or test")
	treeCmd.Flags().BoolVarP(&entries, "entries", "e", false, "list the entries of each node")
	return treeCmd
}
