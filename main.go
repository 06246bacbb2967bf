// Slipway is a toolkit for release pipeline definitions.
//
// Slipway parses, lints and plans pipelines whose jobs delegate their steps
// to templates. It decides what would run for a pushed ref and in what
// order, but never executes anything itself.
package main

import (
	"github.com/opnlabs/slipway/cmd/slipway"
)

func main() {
	slipway.Execute()
}
