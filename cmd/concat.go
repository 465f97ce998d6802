package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/liuxd6825/smconcat/cmd/state"
	"github.com/liuxd6825/smconcat/concat"
	"github.com/liuxd6825/smconcat/errext"
	"github.com/liuxd6825/smconcat/errext/exitcodes"
	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/lib/sourcenode"
	"github.com/liuxd6825/smconcat/loader"
	"github.com/liuxd6825/smconcat/output"
)

const (
	iifeHeader = "(function() {\n"
	iifeFooter = "\n})();"
)

// cmdConcat handles the `smconcat concat` sub-command
type cmdConcat struct {
	gs *state.GlobalState
}

func (c *cmdConcat) run(cmd *cobra.Command, args []string) error {
	cliConf, err := getConfig(cmd.Flags())
	if err != nil {
		return err
	}
	conf, err := getConsolidatedConfig(c.gs, cliConf)
	if err != nil {
		return err
	}
	compressions, err := conf.CompressionTypes()
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	cwd, err := c.gs.Getwd()
	if err != nil {
		return err
	}

	specs := fragmentSpecs(conf, args, cwd)
	if len(specs) == 0 {
		err := errext.WithHint(
			errors.New("nothing to concatenate"),
			"pass the files as arguments or list them under fragments in the manifest file",
		)
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	logger := c.gs.Logger
	fragments := make([]concat.Fragment, 0, len(specs))
	for i, spec := range specs {
		src, err := loader.Load(logger.WithField("index", i), c.gs.FS, spec)
		if err != nil {
			return decorateError(err)
		}
		fragments = append(fragments, src.Fragment())
	}

	params := output.Params{
		Logger:       logger,
		FS:           c.gs.FS,
		Stdout:       c.gs.Console.Stdout,
		Output:       conf.Output.String,
		InlineMap:    conf.InlineMap.Bool,
		NoMapComment: conf.NoMapComment.Bool,
		Compressions: compressions,
		BaseDir:      cwd,
	}
	if params.Output != output.Stdout && params.Output != "" {
		params.Output = fsext.Abs(cwd, params.Output)
	}
	if conf.MapOutput.String != "" {
		params.MapOutput = fsext.Abs(cwd, conf.MapOutput.String)
	}

	opts := &concat.Options{
		Delimiter: conf.Delimiter.String,
		MapPath:   mapLocation(conf, params, cwd),
		Process:   processFunc(logger, conf),
	}
	node, err := concat.Concat(fragments, opts)
	if err != nil {
		var ferr *concat.FragmentError
		if errors.As(err, &ferr) {
			err = fmt.Errorf("%s: %w", specs[ferr.Index].Path, err)
		}
		return decorateError(err)
	}
	addBanner(node, conf.Banner.String, conf.Footer.String)

	file := conf.File.String
	if file == "" && params.Output != output.Stdout && params.Output != "" {
		file = filepath.Base(params.Output)
	}
	bundle := node.ToStringWithSourceMap(file)
	sm := bundle.Map.SourceMap()
	sm.SourceRoot = conf.SourceRoot.String

	res, err := output.Write(params, bundle.Code, sm)
	if err != nil {
		return decorateError(err)
	}

	if !c.gs.Flags.Quiet && res.Bundle != output.Stdout && res.Bundle != "" {
		for _, f := range res.Files {
			c.gs.Console.Printf("%s %s\n", c.gs.Console.Faint("wrote"), fsext.RelSlash(cwd, f))
		}
		c.gs.Console.Printf("%s fragments, %d bytes\n", c.gs.Console.ApplyTheme(fmt.Sprint(len(fragments))), res.Size)
	}
	return nil
}

// fragmentSpecs returns the CLI arguments, or the manifest fragments when
// there are none, as absolute paths.
func fragmentSpecs(conf Config, args []string, cwd string) []loader.Spec {
	if len(args) > 0 {
		specs := make([]loader.Spec, len(args))
		for i, arg := range args {
			specs[i] = loader.Spec{Path: fsext.Abs(cwd, arg)}
		}
		return specs
	}

	specs := make([]loader.Spec, len(conf.Fragments))
	for i, f := range conf.Fragments {
		specs[i] = loader.Spec{Path: fsext.Abs(cwd, f.Path), Map: f.Map}
		if f.Map != "" && f.Map != loader.MapNone {
			specs[i].Map = fsext.Abs(cwd, f.Map)
		}
		if f.SourcesRelativeTo != "" {
			specs[i].SourcesRelativeTo = fsext.Abs(cwd, f.SourcesRelativeTo)
		}
	}
	return specs
}

// mapLocation is where the map sources are made relative to: the map
// file, or the bundle itself when the map is inline.
func mapLocation(conf Config, params output.Params, cwd string) string {
	if conf.MapPath.String != "" {
		return fsext.Abs(cwd, conf.MapPath.String)
	}
	if p := params.MapPath(); p != "" {
		return p
	}
	if params.Output != output.Stdout && params.Output != "" {
		return params.Output
	}
	return filepath.Join(cwd, output.Stdout)
}

func processFunc(logger logrus.FieldLogger, conf Config) concat.ProcessFunc {
	wrap := conf.Wrap.String == wrapIIFE
	return func(node *sourcenode.Node, fragment *concat.Fragment, index int) error {
		if wrap {
			node.Prepend(iifeHeader)
			node.Add(iifeFooter)
		}
		fields := logrus.Fields{"index": index, "mapped": fragment.Map != nil}
		if src, ok := fragment.Meta.(*loader.Source); ok {
			fields["fragment"] = src.Path
			fields["map"] = src.MapPath
		}
		logger.WithFields(fields).Debug("Fragment added")
		return nil
	}
}

func addBanner(node *sourcenode.Node, banner, footer string) {
	if banner != "" {
		if !strings.HasSuffix(banner, "\n") {
			banner += "\n"
		}
		node.Prepend(banner)
	}
	if footer != "" {
		if !strings.HasPrefix(footer, "\n") {
			footer = "\n" + footer
		}
		node.Add(footer)
	}
}

// decorateError attaches the exit code and a hint matching the cause of err.
func decorateError(err error) error {
	switch {
	case errors.Is(err, concat.ErrMapContentMismatch):
		err = errext.WithHint(err, "the source map doesn't describe the fragment, regenerate it or ignore it with map: none")
		return errext.WithExitCodeIfNone(err, exitcodes.MapContentMismatch)
	case errors.Is(err, concat.ErrInvalidMapInput):
		err = errext.WithHint(err, "only regular revision 3 source maps are supported")
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidMapInput)
	case errors.Is(err, concat.ErrInvalidPath):
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidPath)
	case errors.Is(err, loader.ErrNotFound):
		return errext.WithExitCodeIfNone(err, exitcodes.InputNotFound)
	case errors.Is(err, output.ErrWrite):
		return errext.WithExitCodeIfNone(err, exitcodes.OutputFailed)
	}
	return err
}

func getCmdConcat(gs *state.GlobalState) *cobra.Command {
	c := &cmdConcat{gs: gs}

	exampleText := `
  # Concatenate two files and their maps to the standard output, dropping the map
  {{.}} concat a.js b.js

  # Write dist/app.js and dist/app.js.map
  {{.}} concat -o dist/app.js src/a.js src/b.js

  # Wrap every fragment in a function and write a gzip variant
  {{.}} concat --wrap iife --compress gzip -o dist/app.js src/*.js

  # Use the fragments and settings of a manifest file
  {{.}} concat -c bundle.yaml`[1:]

	concatCmd := &cobra.Command{
		Use:   "concat [file...]",
		Short: "Concatenate files and merge their source maps",
		Long: `Concatenate files and merge their source maps.

Every fragment may point to its map with a trailing sourceMappingURL comment,
either an inline data URL or a path relative to the fragment. The comment is
removed from the bundle and the map sources are rewritten relative to the
output map.`,
		Example: strings.ReplaceAll(exampleText, "{{.}}", gs.BinaryName),
		RunE:    c.run,
	}
	concatCmd.Flags().SortFlags = false
	concatCmd.Flags().AddFlagSet(configFlagSet())

	return concatCmd
}
