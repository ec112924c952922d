package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"mec/internal/config"
	"mec/internal/suite"
	"mec/internal/testing"
	"mec/internal/tobject"
)

func newValidateCmd() *cobra.Command {
	var plugins []string

	cmd := &cobra.Command{
		Use:   "validate [paths or saved suite names...]",
		Short: "Check that suites load and print their object trees",
		Long: `Validate decodes suite files through the same factories as run, without
running anything, and prints each suite as a tree of cases and commands.
Every file that fails to load is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := resolveSuitePaths(config.NewStorageWithPath(configPath), args)
			if err != nil {
				return err
			}
			registry, err := newFactoryRegistry(append(append([]string(nil), appConfig.Plugins...), plugins...))
			if err != nil {
				return err
			}
			defer registry.Close()

			loader := testing.NewSuiteLoader(registry, testing.NewSilentLogger(false, debugMode))
			suites, err := loadWithSpinner(cmd.ErrOrStderr(), loader, testing.TestConfiguration{}, false, paths...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range suites {
				printSuiteTree(out, s)
			}
			fmt.Fprintf(out, "✅ %d suites are valid\n", len(suites))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&plugins, "plugin", nil, "Load a factory plugin (repeatable)")
	return cmd
}

func printSuiteTree(out io.Writer, s testing.LoadedSuite) {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)
	l.AppendItem(fmt.Sprintf("%s (%s)", describe(s.Suite), s.File))

	l.Indent()
	tree := s.Suite.ChildTree()
	if tree != nil {
		it := tree.Begin()
		for obj := it.Next(); obj != nil; obj = it.Next() {
			appendObject(l, obj)
		}
	}

	fmt.Fprintln(out, l.Render())
}

// appendObject adds obj and everything below it.
func appendObject(l list.Writer, obj tobject.TObject) {
	l.AppendItem(describe(obj))

	var children []tobject.TObject
	switch o := obj.(type) {
	case interface {
		Then() tobject.TObject
		Else() tobject.TObject
	}:
		for _, branch := range []tobject.TObject{o.Then(), o.Else()} {
			if branch != nil {
				children = append(children, branch)
			}
		}
	case interface{ Children() []tobject.TObject }:
		children = o.Children()
	}
	if len(children) == 0 {
		return
	}
	l.Indent()
	for _, c := range children {
		appendObject(l, c)
	}
	l.UnIndent()
}

func describe(obj tobject.TObject) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", obj.Name(), obj.Type())

	switch o := obj.(type) {
	case *suite.TestCase:
		for _, spec := range o.Outlets() {
			fmt.Fprintf(&b, " %s", spec)
		}
	case interface{ Parameters() []string }:
		if params := o.Parameters(); len(params) > 0 {
			fmt.Fprintf(&b, " %s", strings.Join(params, " "))
		}
	}
	return b.String()
}
