package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/scripthost/module"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect module resolution",
	Long: `Show how require() resolves specifiers from the working directory.

Relative specifiers (./x, ../x) resolve against --from, or the working
directory. Other specifiers try the working directory and then every
node_modules directory up to the filesystem root.`,
}

var modulesResolveCmd = &cobra.Command{
	Use:   "resolve <specifier>",
	Short: "Print the file a specifier resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesResolve,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages visible from node_modules directories",
	Args:  cobra.NoArgs,
	RunE:  runModulesList,
}

func init() {
	modulesResolveCmd.Flags().String("from", "", "Module file the specifier is required from")
	modulesCmd.AddCommand(modulesResolveCmd, modulesListCmd)
	rootCmd.AddCommand(modulesCmd)
}

func newResolver(cmd *cobra.Command) (*module.Resolver, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return module.NewResolver(afero.NewOsFs(), cfg.WorkDir), nil
}

func runModulesResolve(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver(cmd)
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetString("from")
	if from != "" {
		if from, err = filepath.Abs(from); err != nil {
			return err
		}
	}

	path, err := resolver.Resolve(args[0], from)
	if err != nil {
		var notFound *module.NotFoundError
		if errors.As(err, &notFound) {
			out := cmd.ErrOrStderr()
			fmt.Fprintf(out, "module %q not found, tried:\n", notFound.Specifier)
			for _, p := range notFound.Tried {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return errScriptFailed
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runModulesList(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver(cmd)
	if err != nil {
		return err
	}
	pkgs, err := resolver.Packages()
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No packages found")
		return nil
	}
	for _, p := range pkgs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name, p.Path)
	}
	return nil
}
