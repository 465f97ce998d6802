package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-sourcemap/sourcemap"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/liuxd6825/smconcat/cmd/state"
	"github.com/liuxd6825/smconcat/concat"
	"github.com/liuxd6825/smconcat/errext"
	"github.com/liuxd6825/smconcat/errext/exitcodes"
	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/loader"
)

var errNoMapping = errors.New("no mapping for this position")

type lookupResult struct {
	Source string `json:"source" yaml:"source"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Code   string `json:"code,omitempty" yaml:"code,omitempty"`
}

// cmdLookup handles the `smconcat lookup` sub-command
type cmdLookup struct {
	gs     *state.GlobalState
	isJSON bool
}

func (c *cmdLookup) run(_ *cobra.Command, args []string) error {
	line, column, err := parsePosition(args[1])
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	data, err := readMapFile(c.gs, args[0])
	if err != nil {
		return err
	}
	smap, err := sourcemap.Parse("", data)
	if err != nil {
		return decorateError(fmt.Errorf("%w: %w", concat.ErrInvalidMapInput, err))
	}

	source, name, origLine, origColumn, ok := smap.Source(line, column)
	if !ok || source == "" {
		return fmt.Errorf("%s:%d:%d: %w", args[0], line, column, errNoMapping)
	}
	c.gs.Logger.WithField("source", source).Debug("Position resolved")

	res := lookupResult{Source: source, Line: origLine, Column: origColumn, Name: name}
	if content, found := sourceContent(data, source); found {
		lines := strings.Split(content, "\n")
		if origLine >= 1 && origLine <= len(lines) {
			res.Code = c.gs.Console.Truncate(strings.TrimRight(lines[origLine-1], "\r"))
		}
	}

	if c.isJSON {
		out, err := json.Marshal(res)
		if err != nil {
			return err
		}
		c.gs.Console.Print(string(out) + "\n")
		return nil
	}
	return c.gs.Console.PrintYAML(res)
}

// parsePosition parses a line:column generated position. Lines start at 1
// and columns at 0.
func parsePosition(s string) (int, int, error) {
	l, col, found := strings.Cut(s, ":")
	line, err := strconv.Atoi(l)
	if err != nil || line < 1 {
		return 0, 0, fmt.Errorf("invalid line in position '%s'", s)
	}
	if !found {
		return line, 0, nil
	}
	column, err := strconv.Atoi(col)
	if err != nil || column < 0 {
		return 0, 0, fmt.Errorf("invalid column in position '%s'", s)
	}
	return line, column, nil
}

// sourceContent returns the sourcesContent entry of source, if the map has
// one. The consumer may have prefixed source with the sourceRoot.
func sourceContent(data []byte, source string) (string, bool) {
	sources := gjson.GetBytes(data, "sources").Array()
	for i, s := range sources {
		if s.String() != source && !strings.HasSuffix(source, "/"+s.String()) {
			continue
		}
		content := gjson.GetBytes(data, "sourcesContent."+strconv.Itoa(i))
		if content.Type != gjson.String {
			return "", false
		}
		return content.String(), true
	}
	return "", false
}

func readMapFile(gs *state.GlobalState, path string) ([]byte, error) {
	cwd, err := gs.Getwd()
	if err != nil {
		return nil, err
	}
	path = fsext.Abs(cwd, path)
	data, err := fsext.ReadFile(gs.FS, path)
	if os.IsNotExist(err) {
		return nil, decorateError(fmt.Errorf("%w: %s", loader.ErrNotFound, path))
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read the map file %s: %w", path, err)
	}
	return data, nil
}

func getCmdLookup(gs *state.GlobalState) *cobra.Command {
	c := &cmdLookup{gs: gs}

	lookupCmd := &cobra.Command{
		Use:   "lookup <map> <line:column>",
		Short: "Find the original position of a generated position",
		Long: `Find the original position of a generated position.

The line starts at 1 and the column at 0, counted in UTF-16 code units.`,
		Example: "  " + gs.BinaryName + " lookup dist/app.js.map 12:4",
		Args:    exactArgsWithMsg(2, "arg should be a source map file and a line:column position"),
		RunE:    c.run,
	}
	lookupCmd.Flags().BoolVar(&c.isJSON, "json", false, "if set, the result will be in JSON format")

	return lookupCmd
}
