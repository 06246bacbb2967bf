package slipway

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opnlabs/slipway/pkg/config"
	"github.com/opnlabs/slipway/pkg/diag"
	"github.com/opnlabs/slipway/pkg/lint"
	"github.com/opnlabs/slipway/pkg/resources"
)

var (
	lintStrict    bool
	lintRecursive bool
	lintResolve   bool
	lintMounts    []string
)

var lintCmd = &cobra.Command{
	Use:   "lint [paths]",
	Short: "Check pipeline definition files",
	Long: `Lint parses and checks pipeline definition files, reporting every finding
instead of stopping at the first. Without arguments the well known file
names are discovered in the current directory.

With --resolve the repository resources are materialized so referenced
template files can be checked for existence. Remote repositories are cloned
shallowly; --mount serves an alias from a local directory instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		paths := args
		if len(paths) == 0 {
			if lintRecursive {
				found, err := config.DiscoverAll(".")
				if err != nil {
					log.Fatal(err)
				}
				if len(found) == 0 {
					log.Fatal("no pipeline files found")
				}
				paths = found
			} else {
				paths = []string{pipelineArg(nil)}
			}
		}

		if !cmd.Flags().Changed("strict") {
			lintStrict = viper.GetBool("strict")
		}

		opts := lint.Options{Strict: lintStrict}
		if lintResolve {
			resolver, err := buildResolver(paths)
			if err != nil {
				log.Fatal(err)
			}
			opts.Resolver = resolver
		}

		findings, err := lint.New(opts).LintFiles(cmd.Context(), paths)
		if err != nil {
			log.Fatal(err)
		}

		if jsonOut {
			out, err := diag.NewReport(findings).JSON()
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(out))
		} else if err := diag.NewRenderer(os.Stdout).Render(findings); err != nil {
			log.Fatal(err)
		}

		if diag.HasErrors(findings) {
			os.Exit(1)
		}
	},
}

func init() {
	lintCmd.Flags().BoolVarP(&lintStrict, "strict", "s", false, "Treat unknown fields as errors")
	lintCmd.Flags().BoolVarP(&lintRecursive, "recursive", "r", false, "Discover pipeline files in subdirectories")
	lintCmd.Flags().BoolVar(&lintResolve, "resolve", false, "Check that referenced template files exist")
	lintCmd.Flags().StringArrayVarP(&lintMounts, "mount", "m", nil, "Serve a repository alias from a local directory. ALIAS=DIR")
}

// buildResolver serves template existence checks. Bare template paths
// resolve against the directory of the first pipeline file; configured
// mounts cover their alias, --mount overrides, everything else is cloned.
func buildResolver(paths []string) (resources.Resolver, error) {
	mounts := map[string]string{"": filepath.Dir(paths[0])}
	for alias, dir := range viper.GetStringMapString("mounts") {
		mounts[alias] = dir
	}
	for _, m := range lintMounts {
		parts := strings.Split(m, "=")
		if len(parts) != 2 {
			return nil, errors.Errorf("mounts should be defined as ALIAS=DIR: %s", m)
		}
		mounts[parts[0]] = parts[1]
	}
	return resources.ChainResolver{
		resources.NewDirResolver(mounts),
		resources.NewGitResolver(),
	}, nil
}
