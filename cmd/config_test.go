package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/liuxd6825/smconcat/output"
)

func TestConfigApply(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		conf := defaultConfig().Apply(Config{})
		assert.Equal(t, defaultConfig(), conf)
	})

	t.Run("override", func(t *testing.T) {
		t.Parallel()
		conf := defaultConfig().Apply(Config{
			Output:    null.StringFrom("out.js"),
			Delimiter: null.StringFrom(""),
			InlineMap: null.BoolFrom(true),
			Compress:  []string{"br"},
			Fragments: []FragmentConfig{{Path: "a.js"}},
		})
		assert.Equal(t, "out.js", conf.Output.String)
		assert.True(t, conf.Delimiter.Valid)
		assert.Equal(t, "", conf.Delimiter.String)
		assert.True(t, conf.InlineMap.Bool)
		assert.Equal(t, []string{"br"}, conf.Compress)
		assert.Equal(t, []FragmentConfig{{Path: "a.js"}}, conf.Fragments)
		assert.Equal(t, wrapNone, conf.Wrap.String)
	})
}

func TestGetConfig(t *testing.T) {
	t.Parallel()

	flags := configFlagSet()
	require.NoError(t, flags.Parse([]string{"-o", "out.js", "--no-map-comment", "--compress", "gzip,zstd"}))

	conf, err := getConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("out.js"), conf.Output)
	assert.Equal(t, null.BoolFrom(true), conf.NoMapComment)
	assert.Equal(t, []string{"gzip", "zstd"}, conf.Compress)
	assert.False(t, conf.Delimiter.Valid)
	assert.False(t, conf.InlineMap.Valid)
	assert.Nil(t, conf.Fragments)

	types, err := conf.CompressionTypes()
	require.NoError(t, err)
	assert.Equal(t, []output.CompressionType{output.CompressionTypeGzip, output.CompressionTypeZstd}, types)
}

func TestReadEnvConfig(t *testing.T) {
	t.Parallel()

	conf, err := readEnvConfig(map[string]string{
		"SMCONCAT_OUTPUT":     "env.js",
		"SMCONCAT_WRAP":       "iife",
		"SMCONCAT_INLINE_MAP": "true",
		"SMCONCAT_COMPRESS":   "gzip,br",
		"SMCONCAT_FRAGMENTS":  "ignored",
		"OUTPUT":              "nope.js",
	})
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("env.js"), conf.Output)
	assert.Equal(t, null.StringFrom("iife"), conf.Wrap)
	assert.Equal(t, null.BoolFrom(true), conf.InlineMap)
	assert.Equal(t, []string{"gzip", "br"}, conf.Compress)
	assert.False(t, conf.Banner.Valid)
	assert.Nil(t, conf.Fragments)

	_, err = readEnvConfig(map[string]string{"SMCONCAT_INLINE_MAP": "maybe"})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		conf   Config
		expErr string
	}{
		{"defaults", Config{}, ""},
		{"iife", Config{Wrap: null.StringFrom(wrapIIFE)}, ""},
		{"bad wrap", Config{Wrap: null.StringFrom("umd")}, `invalid wrap mode "umd", it should be none or iife`},
		{"bad compression", Config{Compress: []string{"gzip", "lz4"}}, "lz4 does not belong to CompressionType values (gzip, br, zstd)"},
		{
			"inline and map output",
			Config{InlineMap: null.BoolFrom(true), MapOutput: null.StringFrom("a.map")},
			"inline-map and map-output are mutually exclusive",
		},
		{"fragment without path", Config{Fragments: []FragmentConfig{{Path: "a.js"}, {Map: "b.map"}}}, "fragment #1 of the manifest has no path"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			conf := defaultConfig().Apply(tc.conf)
			err := validateConfig(conf)
			if tc.expErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.expErr)
		})
	}
}

func TestFragmentSpecs(t *testing.T) {
	t.Parallel()

	conf := Config{Fragments: []FragmentConfig{
		{Path: "a.js", Map: "none"},
		{Path: "b.js", Map: "maps/b.map", SourcesRelativeTo: "src/b.js"},
	}}

	specs := fragmentSpecs(conf, nil, "/app")
	require.Len(t, specs, 2)
	assert.Equal(t, "/app/a.js", specs[0].Path)
	assert.Equal(t, "none", specs[0].Map)
	assert.Equal(t, "/app/maps/b.map", specs[1].Map)
	assert.Equal(t, "/app/src/b.js", specs[1].SourcesRelativeTo)

	specs = fragmentSpecs(conf, []string{"c.js"}, "/app")
	require.Len(t, specs, 1)
	assert.Equal(t, "/app/c.js", specs[0].Path)
}

func TestParsePosition(t *testing.T) {
	t.Parallel()

	line, column, err := parsePosition("12:4")
	require.NoError(t, err)
	assert.Equal(t, 12, line)
	assert.Equal(t, 4, column)

	line, column, err = parsePosition("3")
	require.NoError(t, err)
	assert.Equal(t, 3, line)
	assert.Equal(t, 0, column)

	for _, s := range []string{"0:1", "a:1", "1:-1", "1:b", ""} {
		_, _, err = parsePosition(s)
		assert.Error(t, err, s)
	}
}
