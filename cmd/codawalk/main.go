// Command codawalk walks a directory tree and reports, for each file
// that a recognizer can identify, its format and whether the product
// check (internal/check) passes — a thin batch-mode consumer of the
// core, the way the teacher's own CLI tools never reimplement parsing
// logic themselves (spec §1 Non-goal: format recognition and dispatch
// is an external collaborator; this tool only drives it).
package main

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coda-go/coda/coda"

	_ "github.com/coda-go/coda/internal/hdf5backend"
	_ "github.com/coda-go/coda/internal/netcdf"
	"github.com/coda-go/coda/internal/recognize"
)

func main() {
	var fast bool
	var tolerateTrailingWhitespace bool

	root := &cobra.Command{
		Use:   "codawalk <root-dir>",
		Short: "Walk a directory, recognize products, and run the product check on each",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return walk(args[0], coda.CheckOptions{Fast: fast, TolerateTrailingWhitespace: tolerateTrailingWhitespace})
		},
	}
	root.Flags().BoolVar(&fast, "fast", false, "use fast size expressions and skip per-record reconciliation")
	root.Flags().BoolVar(&tolerateTrailingWhitespace, "tolerate-trailing-whitespace", false, "passed to the product check, which does not consult it (no effect on what is reported)")

	if err := root.Execute(); err != nil {
		log.Fatalf("codawalk: %v", err)
	}
}

func walk(dir string, opts coda.CheckOptions) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		checkOne(path, opts)
		return nil
	})
}

func checkOne(path string, opts coda.CheckOptions) {
	p, err := coda.Open(path, recognize.Magic{})
	if err != nil {
		fmt.Printf("%s: skip (%v)\n", path, err)
		return
	}
	defer p.Close()

	var problems int
	report := func(d coda.Discrepancy) {
		problems++
		fmt.Printf("%s: %s\n", path, d)
	}

	if err := coda.Check(p, opts, report); err != nil {
		fmt.Printf("%s: aborted: %v\n", path, err)
		return
	}
	if problems == 0 {
		fmt.Printf("%s: ok (%s)\n", path, p.Format)
	} else {
		fmt.Printf("%s: %d problem(s)\n", path, problems)
	}
}
