package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/liuxd6825/smconcat/cmd/state"
	"github.com/liuxd6825/smconcat/concat"
	"github.com/liuxd6825/smconcat/lib/mapping"
)

type mapInfo struct {
	Version        int64    `json:"version" yaml:"version"`
	File           string   `json:"file,omitempty" yaml:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty" yaml:"sourceRoot,omitempty"`
	Sources        []string `json:"sources" yaml:"sources"`
	SourcesContent int      `json:"sourcesContent" yaml:"sourcesContent"`
	Names          int      `json:"names" yaml:"names"`
	Mappings       int      `json:"mappings" yaml:"mappings"`
	Lines          int      `json:"lines" yaml:"lines"`
}

// cmdInfo handles the `smconcat info` sub-command
type cmdInfo struct {
	gs *state.GlobalState
}

func (c *cmdInfo) run(_ *cobra.Command, args []string) error {
	data, err := readMapFile(c.gs, args[0])
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return decorateError(fmt.Errorf("%w: %s is not valid JSON", concat.ErrInvalidMapInput, args[0]))
	}

	info := mapInfo{
		Version:    gjson.GetBytes(data, "version").Int(),
		File:       gjson.GetBytes(data, "file").String(),
		SourceRoot: gjson.GetBytes(data, "sourceRoot").String(),
		Sources:    []string{},
		Names:      int(gjson.GetBytes(data, "names.#").Int()),
	}
	for _, s := range gjson.GetBytes(data, "sources").Array() {
		info.Sources = append(info.Sources, s.String())
	}
	for _, s := range gjson.GetBytes(data, "sourcesContent").Array() {
		if s.Type == gjson.String {
			info.SourcesContent++
		}
	}

	consumer, err := concat.NormalizeMap(data)
	if err != nil {
		return decorateError(err)
	}
	err = consumer.EachMapping(func(m mapping.Mapping) error {
		info.Mappings++
		if m.GeneratedLine > info.Lines {
			info.Lines = m.GeneratedLine
		}
		return nil
	})
	if err != nil {
		return decorateError(fmt.Errorf("%w: %w", concat.ErrInvalidMapInput, err))
	}

	return c.gs.Console.PrintYAML(info)
}

func getCmdInfo(gs *state.GlobalState) *cobra.Command {
	c := &cmdInfo{gs: gs}

	return &cobra.Command{
		Use:   "info <map>",
		Short: "Show a summary of a source map",
		Long: `Show a summary of a source map: its sources, how many of them carry
their content, and how many mappings and generated lines it has.`,
		Example: "  " + gs.BinaryName + " info dist/app.js.map",
		Args:    exactArgsWithMsg(1, "arg should be a source map file"),
		RunE:    c.run,
	}
}
