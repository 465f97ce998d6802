package tests

import (
	"encoding/base64"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/liuxd6825/smconcat/cmd"
	"github.com/liuxd6825/smconcat/errext/exitcodes"
	"github.com/liuxd6825/smconcat/lib/consts"
	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/lib/testutils"
)

const (
	aJS    = "var a = 1;\nvar b = 2;\n//# sourceMappingURL=a.js.map"
	aJSMap = `{"version":3,"sources":["a.ts"],"names":[],"mappings":"AAAA;AACA"}`
	cJS    = "c();"
)

func TestVersion(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.CmdArgs = []string{"smconcat", "version"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "smconcat v"+consts.Version)
	assert.Contains(t, stdout, runtime.Version())
	assert.Contains(t, stdout, runtime.GOOS)
	assert.Contains(t, stdout, runtime.GOARCH)
	assert.NotContains(t, stdout[:len(stdout)-1], "\n")

	assert.Empty(t, ts.Stderr.Bytes())
	assert.Empty(t, ts.LoggerHook.Drain())
}

func TestVersionJSON(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.CmdArgs = []string{"smconcat", "version", "--json"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	stdout := ts.Stdout.Bytes()
	require.True(t, gjson.ValidBytes(stdout), string(stdout))
	assert.Equal(t, "v"+consts.Version, gjson.GetBytes(stdout, "version").String())
	assert.Equal(t, runtime.Version(), gjson.GetBytes(stdout, "go_version").String())
}

func TestConcatFiles(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{
		"src/a.js":     aJS,
		"src/a.js.map": aJSMap,
		"src/c.js":     cJS,
	})
	ts.CmdArgs = []string{"smconcat", "concat", "-o", "dist/bundle.js", "src/a.js", "src/c.js"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.Equal(t,
		"var a = 1;\nvar b = 2;\n\nc();\n//# sourceMappingURL=bundle.js.map",
		ts.ReadFile(t, "dist/bundle.js"))

	sm := ts.ReadFile(t, "dist/bundle.js.map")
	assert.Equal(t, "bundle.js", gjson.Get(sm, "file").String())
	assert.Equal(t, `["../src/a.ts"]`, gjson.Get(sm, "sources").Raw)

	stdout := ts.Stdout.String()
	assert.Contains(t, stdout, "wrote dist/bundle.js\n")
	assert.Contains(t, stdout, "wrote dist/bundle.js.map\n")
	assert.Contains(t, stdout, "2 fragments")
	assert.Empty(t, ts.LoggerHook.Drain())

	t.Run("lookup", func(t *testing.T) {
		t.Parallel()

		lts := NewGlobalTestState(t)
		lts.WriteFiles(t, map[string]string{"dist/bundle.js.map": sm})
		lts.CmdArgs = []string{"smconcat", "lookup", "--json", "dist/bundle.js.map", "1:4"}
		cmd.ExecuteWithGlobalState(lts.GlobalState)

		out := lts.Stdout.Bytes()
		require.True(t, gjson.ValidBytes(out), string(out))
		assert.Equal(t, "../src/a.ts", gjson.GetBytes(out, "source").String())
		assert.False(t, gjson.GetBytes(out, "name").Exists())
	})

	t.Run("info", func(t *testing.T) {
		t.Parallel()

		its := NewGlobalTestState(t)
		its.WriteFiles(t, map[string]string{"bundle.js.map": sm})
		its.CmdArgs = []string{"smconcat", "info", "bundle.js.map"}
		cmd.ExecuteWithGlobalState(its.GlobalState)

		out := its.Stdout.String()
		assert.Contains(t, out, "version: 3\n")
		assert.Contains(t, out, "file: bundle.js\n")
		assert.Contains(t, out, "sources:\n    - ../src/a.ts\n")
		assert.Contains(t, out, "sourcesContent: 0\n")
	})
}

func TestConcatManifest(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{
		"smconcat.yaml": `
output: dist/app.js
wrap: iife
banner: "/* app */"
noMapComment: true
fragments:
  - path: a.js
    map: none
  - path: b.js
`,
		"a.js": "a();\n//# sourceMappingURL=missing.map",
		"b.js": "b();",
	})
	ts.CmdArgs = []string{"smconcat", "--quiet", "concat"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.Equal(t,
		"/* app */\n(function() {\na();\n\n})();\n(function() {\nb();\n})();",
		ts.ReadFile(t, "dist/app.js"))
	exists, err := fsext.Exists(ts.FS, ts.Path("dist/app.js.map"))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Empty(t, ts.Stdout.String())
	assert.Empty(t, ts.LoggerHook.Drain())
}

func TestConcatConfigPrecedence(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"smconcat.yaml": "output: dist/file.js\n",
		"a.js":          "a();",
	}

	testCases := []struct {
		name     string
		env      map[string]string
		args     []string
		expected string
	}{
		{"file", nil, nil, "dist/file.js"},
		{"env", map[string]string{"SMCONCAT_OUTPUT": "dist/env.js"}, nil, "dist/env.js"},
		{"flag", map[string]string{"SMCONCAT_OUTPUT": "dist/env.js"}, []string{"-o", "dist/flag.js"}, "dist/flag.js"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := NewGlobalTestState(t)
			ts.WriteFiles(t, files)
			for k, v := range tc.env {
				ts.Env[k] = v
			}
			ts.CmdArgs = append(append([]string{"smconcat", "concat"}, tc.args...), "a.js")
			cmd.ExecuteWithGlobalState(ts.GlobalState)

			assert.Equal(t, "a();\n//# sourceMappingURL="+strings.TrimPrefix(tc.expected, "dist/")+".map",
				ts.ReadFile(t, tc.expected))
		})
	}
}

func TestConcatStdout(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{"a.js": "a();", "b.js": "b();"})
	ts.CmdArgs = []string{"smconcat", "concat", "--delimiter", ";", "a.js", "b.js"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.Equal(t, "a();;b();", ts.Stdout.String())
	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.WarnLevel, "the source map is dropped"))
}

func TestConcatInlineMap(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{"src/a.js": aJS, "src/a.js.map": aJSMap})
	ts.CmdArgs = []string{"smconcat", "concat", "--inline-map", "--source-root", "/app", "-o", "out.js", "src/a.js"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	code := ts.ReadFile(t, "out.js")
	prefix := "var a = 1;\nvar b = 2;\n//# sourceMappingURL=data:application/json;charset=utf-8;base64,"
	require.True(t, strings.HasPrefix(code, prefix), code)
	sm, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(code, prefix))
	require.NoError(t, err)
	assert.Equal(t, "/app", gjson.GetBytes(sm, "sourceRoot").String())
	assert.Equal(t, `["src/a.ts"]`, gjson.GetBytes(sm, "sources").Raw)
}

func TestConcatCompress(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{"a.js": "a();"})
	ts.Env["SMCONCAT_COMPRESS"] = "gzip,br"
	ts.CmdArgs = []string{"smconcat", "concat", "-o", "out.js", "a.js"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	for _, name := range []string{"out.js", "out.js.gz", "out.js.br", "out.js.map"} {
		exists, err := fsext.Exists(ts.FS, ts.Path(name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a.js":          "a();",
		"broken.js":     "b();\n//# sourceMappingURL=broken.js.map",
		"broken.js.map": `{"version":3,`,
		"wrong.js":      "w();\n//# sourceMappingURL=wrong.js.map",
		"wrong.js.map":  `{"version":3,"sources":["w.ts"],"names":[],"mappings":";;AAAA"}`,
	}

	testCases := []struct {
		name     string
		args     []string
		exitCode exitcodes.ExitCode
		message  string
	}{
		{"missing file", []string{"concat", "nope.js"}, exitcodes.InputNotFound, "file not found"},
		{"invalid map", []string{"concat", "broken.js"}, exitcodes.InvalidMapInput, "is not valid JSON"},
		{"mismatched map", []string{"concat", "a.js", "wrong.js"}, exitcodes.MapContentMismatch, "fragment #1"},
		{"invalid wrap", []string{"concat", "--wrap", "umd", "a.js"}, exitcodes.InvalidConfig, "invalid wrap mode"},
		{"invalid compression", []string{"concat", "--compress", "lzw", "a.js"}, exitcodes.InvalidConfig, "lzw does not belong"},
		{"no fragments", []string{"concat"}, exitcodes.InvalidConfig, "nothing to concatenate"},
		{"missing manifest", []string{"--config", "other.yaml", "concat", "a.js"}, exitcodes.InvalidConfig, "manifest file"},
		{"bad log output", []string{"--log-output", "syslog", "version"}, exitcodes.InvalidConfig, "unsupported log output"},
		{"lookup bad position", []string{"lookup", "a.js", "x:1"}, exitcodes.InvalidConfig, "invalid line"},
		{"info missing map", []string{"info", "nope.map"}, exitcodes.InputNotFound, "file not found"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := NewGlobalTestState(t)
			ts.WriteFiles(t, files)
			ts.ExpectedExitCode = int(tc.exitCode)
			ts.CmdArgs = append([]string{"smconcat"}, tc.args...)
			cmd.ExecuteWithGlobalState(ts.GlobalState)

			entries := ts.LoggerHook.Drain()
			assert.True(t, testutils.LogContains(entries, logrus.ErrorLevel, tc.message), entries)
		})
	}
}

func TestErrorHint(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
	ts.CmdArgs = []string{"smconcat", "concat"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	entry := ts.LoggerHook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, int(exitcodes.InvalidConfig), entry.Data["exit_code"])
	assert.Contains(t, entry.Data["hint"], "fragments")
}

func TestOutputFailure(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{"a.js": "a();"})
	ts.FS = fsext.NewReadOnlyFs(ts.FS)
	ts.ExpectedExitCode = int(exitcodes.OutputFailed)
	ts.CmdArgs = []string{"smconcat", "concat", "-o", "out.js", "a.js"}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, "couldn't write output"))
}

func TestLogOutputFile(t *testing.T) {
	t.Parallel()

	ts := NewGlobalTestState(t)
	ts.WriteFiles(t, map[string]string{"a.js": "a();"})
	ts.CmdArgs = []string{
		"smconcat", "--verbose", "--log-output", "file=smconcat.log", "--log-format", "json",
		"concat", "-o", "out.js", "a.js",
	}
	cmd.ExecuteWithGlobalState(ts.GlobalState)

	logs := ts.ReadFile(t, "smconcat.log")
	lines := strings.Split(strings.TrimSpace(logs), "\n")
	require.NotEmpty(t, lines)
	var found bool
	for _, line := range lines {
		require.True(t, gjson.Valid(line), line)
		if gjson.Get(line, "msg").String() == "Fragment added" {
			found = true
			assert.Equal(t, ts.Path("a.js"), gjson.Get(line, "fragment").String())
		}
	}
	assert.True(t, found, logs)
	assert.Empty(t, ts.Stderr.String())
}
