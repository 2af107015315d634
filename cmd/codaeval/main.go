// Command codaeval parses and evaluates a CODA expression-language
// string, optionally against an open product's root cursor, the way
// the teacher's CLI tools are thin consumers of the library rather
// than implementations of their own (spec §1 Non-goal: "CLI tools ...
// are thin users of the core").
package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/coda-go/coda/coda"
	"github.com/coda-go/coda/internal/expr"

	_ "github.com/coda-go/coda/internal/hdf5backend"
	_ "github.com/coda-go/coda/internal/netcdf"
	"github.com/coda-go/coda/internal/recognize"
)

func main() {
	var product string

	root := &cobra.Command{
		Use:   "codaeval <expression>",
		Short: "Evaluate a CODA expression, optionally against a product's root cursor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluate(args[0], product)
		},
	}
	root.Flags().StringVar(&product, "product", "", "path to a product to evaluate the expression against (default: constant-only)")

	if err := root.Execute(); err != nil {
		log.Fatalf("codaeval: %v", err)
	}
}

func evaluate(src, product string) error {
	e, err := expr.Parse(src)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	var cur expr.Cursor
	if product != "" {
		p, err := coda.Open(product, recognize.Magic{})
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer p.Close()
		cur = p.NewCursor()
	} else if !e.IsConstant() {
		return fmt.Errorf("expression is not constant; pass --product to supply a cursor")
	}

	v, kind, err := expr.Evaluate(e, cur)
	if err != nil {
		return err
	}
	if kind == expr.KindNode {
		fmt.Println("<node>")
		return nil
	}
	fmt.Println(v)
	return nil
}
