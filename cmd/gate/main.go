// Gate is a minimal yes/no admission check for CI scripts.
//
// It loads a pipeline definition, evaluates the trigger for a ref and exits
// 0 when the ref would start a run. The slipway CLI is the full featured
// front end; gate is meant for shell pipelines and hooks.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/opnlabs/slipway/pkg/config"
	"github.com/opnlabs/slipway/pkg/trigger"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatal("usage: gate <pipeline-file> <ref>")
	}

	p, err := config.Load(os.Args[1])
	if err != nil && p == nil {
		log.Fatal(err)
	}

	ref, err := trigger.ParseRef(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}

	var decision trigger.Decision
	if ref.Kind == trigger.RefPullRequest {
		decision = trigger.EvaluatePR(p.PR, ref)
	} else {
		decision = trigger.Evaluate(p.Trigger, ref)
	}

	fmt.Println(decision.Reason)
	if !decision.Admitted {
		os.Exit(1)
	}
}
