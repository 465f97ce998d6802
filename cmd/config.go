package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"

	"github.com/liuxd6825/smconcat/cmd/state"
	"github.com/liuxd6825/smconcat/errext"
	"github.com/liuxd6825/smconcat/errext/exitcodes"
	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/output"
)

const (
	wrapNone = "none"
	wrapIIFE = "iife"
)

// FragmentConfig is a fragment listed in the manifest file.
type FragmentConfig struct {
	Path              string `json:"path" yaml:"path"`
	Map               string `json:"map,omitempty" yaml:"map,omitempty"`
	SourcesRelativeTo string `json:"sourcesRelativeTo,omitempty" yaml:"sourcesRelativeTo,omitempty"`
}

// Config is the configuration of the concat command, consolidated from the
// manifest file, the environment and the CLI flags.
type Config struct {
	Output       null.String `json:"output" yaml:"output" envconfig:"SMCONCAT_OUTPUT"`
	MapOutput    null.String `json:"mapOutput" yaml:"mapOutput" envconfig:"SMCONCAT_MAP_OUTPUT"`
	MapPath      null.String `json:"mapPath" yaml:"mapPath" envconfig:"SMCONCAT_MAP_PATH"`
	Delimiter    null.String `json:"delimiter" yaml:"delimiter" envconfig:"SMCONCAT_DELIMITER"`
	Banner       null.String `json:"banner" yaml:"banner" envconfig:"SMCONCAT_BANNER"`
	Footer       null.String `json:"footer" yaml:"footer" envconfig:"SMCONCAT_FOOTER"`
	Wrap         null.String `json:"wrap" yaml:"wrap" envconfig:"SMCONCAT_WRAP"`
	SourceRoot   null.String `json:"sourceRoot" yaml:"sourceRoot" envconfig:"SMCONCAT_SOURCE_ROOT"`
	File         null.String `json:"file" yaml:"file" envconfig:"SMCONCAT_FILE"`
	InlineMap    null.Bool   `json:"inlineMap" yaml:"inlineMap" envconfig:"SMCONCAT_INLINE_MAP"`
	NoMapComment null.Bool   `json:"noMapComment" yaml:"noMapComment" envconfig:"SMCONCAT_NO_MAP_COMMENT"`
	Compress     []string    `json:"compress" yaml:"compress" envconfig:"SMCONCAT_COMPRESS"`

	Fragments []FragmentConfig `json:"fragments" yaml:"fragments" ignored:"true"`
}

// Apply returns c with every set value of cfg applied on top of it.
func (c Config) Apply(cfg Config) Config {
	if cfg.Output.Valid {
		c.Output = cfg.Output
	}
	if cfg.MapOutput.Valid {
		c.MapOutput = cfg.MapOutput
	}
	if cfg.MapPath.Valid {
		c.MapPath = cfg.MapPath
	}
	if cfg.Delimiter.Valid {
		c.Delimiter = cfg.Delimiter
	}
	if cfg.Banner.Valid {
		c.Banner = cfg.Banner
	}
	if cfg.Footer.Valid {
		c.Footer = cfg.Footer
	}
	if cfg.Wrap.Valid {
		c.Wrap = cfg.Wrap
	}
	if cfg.SourceRoot.Valid {
		c.SourceRoot = cfg.SourceRoot
	}
	if cfg.File.Valid {
		c.File = cfg.File
	}
	if cfg.InlineMap.Valid {
		c.InlineMap = cfg.InlineMap
	}
	if cfg.NoMapComment.Valid {
		c.NoMapComment = cfg.NoMapComment
	}
	if cfg.Compress != nil {
		c.Compress = cfg.Compress
	}
	if cfg.Fragments != nil {
		c.Fragments = cfg.Fragments
	}
	return c
}

// CompressionTypes parses the compress list.
func (c Config) CompressionTypes() ([]output.CompressionType, error) {
	result := make([]output.CompressionType, 0, len(c.Compress))
	for _, name := range c.Compress {
		ct, err := output.CompressionTypeString(name)
		if err != nil {
			return nil, err
		}
		result = append(result, ct)
	}
	return result, nil
}

func defaultConfig() Config {
	return Config{
		Output:    null.NewString(output.Stdout, false),
		Delimiter: null.NewString("\n", false),
		Wrap:      null.NewString(wrapNone, false),
	}
}

func configFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringP("output", "o", output.Stdout, "bundle output `path`, - for the standard output")
	flags.String("map-output", "", "source map output `path` (default output path + .map)")
	flags.String("map-path", "", "`path` the map sources are made relative to (default the map output)")
	flags.StringP("delimiter", "d", "\n", "text inserted between fragments")
	flags.String("banner", "", "text prepended to the bundle")
	flags.String("footer", "", "text appended to the bundle")
	flags.String("wrap", wrapNone, "wrap every fragment: none or iife")
	flags.String("source-root", "", "sourceRoot of the output map")
	flags.String("file", "", "file property of the output map (default the output file name)")
	flags.Bool("inline-map", false, "embed the map in the bundle as a data URL")
	flags.Bool("no-map-comment", false, "don't append a sourceMappingURL comment")
	flags.StringSlice("compress", nil, "write precompressed variants: gzip, br, zstd")
	return flags
}

func getConfig(flags *pflag.FlagSet) (Config, error) {
	compress, err := flags.GetStringSlice("compress")
	if err != nil {
		return Config{}, err
	}
	conf := Config{
		Output:       getNullString(flags, "output"),
		MapOutput:    getNullString(flags, "map-output"),
		MapPath:      getNullString(flags, "map-path"),
		Delimiter:    getNullString(flags, "delimiter"),
		Banner:       getNullString(flags, "banner"),
		Footer:       getNullString(flags, "footer"),
		Wrap:         getNullString(flags, "wrap"),
		SourceRoot:   getNullString(flags, "source-root"),
		File:         getNullString(flags, "file"),
		InlineMap:    getNullBool(flags, "inline-map"),
		NoMapComment: getNullBool(flags, "no-map-comment"),
	}
	if flags.Changed("compress") {
		conf.Compress = compress
	}
	return conf, nil
}

// readDiskConfig reads the manifest file. A missing file is only an error
// when its path was changed from the default.
func readDiskConfig(gs *state.GlobalState) (Config, error) {
	var conf Config
	path := gs.Flags.ConfigFilePath
	isDefault := path == gs.DefaultFlags.ConfigFilePath
	cwd, err := gs.Getwd()
	if err != nil {
		return conf, err
	}
	path = fsext.Abs(cwd, path)

	data, err := fsext.ReadFile(gs.FS, path)
	if errors.Is(err, os.ErrNotExist) && isDefault {
		return conf, nil
	}
	if err != nil {
		return conf, fmt.Errorf("couldn't read the manifest file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
		return conf, fmt.Errorf("couldn't parse the manifest file %s: %w", path, err)
	}
	gs.Logger.WithField("path", path).Debug("Manifest file loaded")
	return conf, nil
}

func readEnvConfig(env map[string]string) (Config, error) {
	var conf Config
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	return conf, err
}

func validateConfig(conf Config) error {
	switch conf.Wrap.String {
	case wrapNone, wrapIIFE:
	default:
		return fmt.Errorf("invalid wrap mode %q, it should be none or iife", conf.Wrap.String)
	}
	if _, err := conf.CompressionTypes(); err != nil {
		return err
	}
	if conf.InlineMap.Bool && conf.MapOutput.String != "" {
		return errors.New("inline-map and map-output are mutually exclusive")
	}
	for i, f := range conf.Fragments {
		if f.Path == "" {
			return fmt.Errorf("fragment #%d of the manifest has no path", i)
		}
	}
	return nil
}

// getConsolidatedConfig merges, in increasing order of precedence, the
// defaults, the manifest file, the environment and the CLI flags.
func getConsolidatedConfig(gs *state.GlobalState, cliConf Config) (Config, error) {
	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	envConf, err := readEnvConfig(gs.Env)
	if err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	conf := defaultConfig().Apply(fileConf).Apply(envConf).Apply(cliConf)
	if err := validateConfig(conf); err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return conf, nil
}
