package slipway

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opnlabs/slipway/pkg/config"
	"github.com/opnlabs/slipway/pkg/diag"
	"github.com/opnlabs/slipway/pkg/gitref"
	"github.com/opnlabs/slipway/pkg/lint"
	"github.com/opnlabs/slipway/pkg/models"
	"github.com/opnlabs/slipway/pkg/plan"
	"github.com/opnlabs/slipway/pkg/trigger"
)

var (
	planRef    string
	planTag    string
	planBranch string
	planReason string
	planVars   []string
	planNoLint bool
)

var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Compute which jobs a pushed ref would run",
	Long: `Plan evaluates the pipeline's trigger for a ref, selects the jobs whose
conditions hold and orders them into dependency waves. The ref defaults to
the checked out HEAD of the current repository; a tag pointing at HEAD wins
over the branch name.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := pipelineArg(args)

		ref, err := resolveRef()
		if err != nil {
			log.Fatal(err)
		}

		p, err := config.Load(path)
		if err != nil {
			if p == nil {
				log.Fatal(err)
			}
			log.Warn("pipeline has unrecognized fields, run slipway lint for details")
		}

		if !planNoLint {
			findings := lint.New(lint.Options{}).LintPipeline(cmd.Context(), path, p)
			if diag.HasErrors(findings) {
				if err := diag.NewRenderer(cmd.ErrOrStderr()).Render(findings); err != nil {
					log.Fatal(err)
				}
				log.Fatal("pipeline has lint errors")
			}
		}

		vars := make(map[string]string, len(planVars))
		for _, v := range planVars {
			parts := strings.Split(v, "=")
			if len(parts) != 2 {
				log.Fatalf("variables should be defined as KEY=VALUE: %s", v)
			}
			vars[parts[0]] = parts[1]
		}

		result, err := plan.Build(p, plan.Options{Ref: ref, Reason: planReason, Variables: vars})
		if err != nil {
			log.Fatal(err)
		}

		if jsonOut {
			out, err := result.JSON()
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(out))
			return
		}
		printPlan(result)
	},
}

func init() {
	planCmd.Flags().StringVar(&planRef, "ref", "", "Full ref to plan for, like refs/tags/v1.0")
	planCmd.Flags().StringVarP(&planTag, "tag", "t", "", "Plan for a tag push")
	planCmd.Flags().StringVarP(&planBranch, "branch", "b", "", "Plan for a branch push")
	planCmd.Flags().StringVar(&planReason, "reason", "", "Build reason (Manual, IndividualCI, PullRequest, Schedule)")
	planCmd.Flags().StringArrayVarP(&planVars, "var", "e", nil, "Pipeline variables. KEY=VALUE")
	planCmd.Flags().BoolVar(&planNoLint, "no-lint", false, "Skip the lint gate")
}

// resolveRef picks the ref to plan for. Explicit flags win over the
// repository's checked out HEAD.
func resolveRef() (trigger.Ref, error) {
	set := 0
	for _, s := range []string{planRef, planTag, planBranch} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return trigger.Ref{}, errors.New("only one of --ref, --tag or --branch may be set")
	}
	switch {
	case planTag != "":
		return trigger.TagRef(planTag), nil
	case planBranch != "":
		return trigger.BranchRef(planBranch), nil
	case planRef != "":
		return trigger.ParseRef(planRef)
	}
	return gitref.Head(".")
}

func printPlan(result *plan.Plan) {
	fmt.Printf("ref: %s\nreason: %s\n", result.Ref, result.Reason)
	if result.Trigger.Admitted {
		color.Green("admitted: %s", result.Trigger.Reason)
	} else {
		color.Yellow("not admitted: %s", result.Trigger.Reason)
	}

	jobs := make(map[models.JobName]plan.Job, len(result.Jobs))
	for _, j := range result.Jobs {
		jobs[j.Name] = j
	}
	for i, wave := range result.Waves {
		fmt.Printf("wave %d:\n", i)
		for _, name := range wave {
			j := jobs[name]
			line := "  " + j.Name.String()
			if j.OS != "" {
				line += " os=" + j.OS
			}
			if j.Env != "" {
				line += " env=" + j.Env
			}
			fmt.Println(line + " template=" + j.Template)
		}
	}
	for _, ex := range result.Excluded {
		color.Yellow("excluded: %s (%s)", ex.Name, ex.Reason)
	}
	for _, note := range result.Notes {
		fmt.Println("note:", note)
	}
}
