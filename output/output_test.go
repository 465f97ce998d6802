package output

import (
	"bytes"
	"encoding/base64"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/lib/mapping"
	"github.com/liuxd6825/smconcat/lib/testutils"
)

func testMap() *mapping.SourceMap {
	gen := mapping.NewGenerator("bundle.js", "")
	gen.AddMapping(mapping.Mapping{GeneratedLine: 1, Source: "a.js", OriginalLine: 1})
	return gen.SourceMap()
}

func newParams(t *testing.T) (Params, *testutils.SimpleLogrusHook) {
	hook := testutils.NewLogHook(logrus.WarnLevel)
	logger := testutils.NewLogger(t)
	logger.AddHook(hook)
	return Params{
		Logger: logger,
		FS:     fsext.NewMemMapFs(),
		Stdout: new(bytes.Buffer),
	}, hook
}

func readString(t *testing.T, fs fsext.Fs, name string) string {
	t.Helper()
	data, err := fsext.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}

func TestWriteExternalMap(t *testing.T) {
	t.Parallel()

	params, _ := newParams(t)
	params.Output = filepath.FromSlash("/dist/js/bundle.js")
	params.MapOutput = filepath.FromSlash("/dist/maps/bundle.js.map")

	sm := testMap()
	res, err := Write(params, "a();", sm)
	require.NoError(t, err)

	expected := "a();\n//# sourceMappingURL=../maps/bundle.js.map"
	assert.Equal(t, expected, readString(t, params.FS, params.Output))
	assert.JSONEq(t, sm.String(), readString(t, params.FS, params.MapOutput))
	assert.Equal(t, []string{params.Output, params.MapOutput}, res.Files)
	assert.Equal(t, len(expected), res.Size)
}

func TestWriteDefaults(t *testing.T) {
	t.Parallel()

	params, _ := newParams(t)
	params.Output = filepath.FromSlash("/out/style.css")

	res, err := Write(params, "a{}\n", testMap())
	require.NoError(t, err)
	assert.Equal(t, params.Output+".map", res.Map)
	assert.Equal(t, "a{}\n/*# sourceMappingURL=style.css.map */", readString(t, params.FS, params.Output))

	exists, err := fsext.Exists(params.FS, params.Output+".map")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteInlineMap(t *testing.T) {
	t.Parallel()

	params, _ := newParams(t)
	params.Output = "/out/bundle.js"
	params.InlineMap = true

	sm := testMap()
	res, err := Write(params, "a();\n", sm)
	require.NoError(t, err)
	assert.Empty(t, res.Map)
	assert.Equal(t, []string{"/out/bundle.js"}, res.Files)

	code := readString(t, params.FS, "/out/bundle.js")
	prefix := "a();\n//# sourceMappingURL=data:application/json;charset=utf-8;base64,"
	require.True(t, strings.HasPrefix(code, prefix), code)
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(code, prefix))
	require.NoError(t, err)
	assert.JSONEq(t, sm.String(), string(decoded))
}

func TestWriteStdout(t *testing.T) {
	t.Parallel()

	t.Run("map dropped", func(t *testing.T) {
		t.Parallel()
		params, hook := newParams(t)
		params.Compressions = []CompressionType{CompressionTypeGzip}

		res, err := Write(params, "a();", testMap())
		require.NoError(t, err)
		assert.Empty(t, res.Files)
		assert.Equal(t, "a();", params.Stdout.(*bytes.Buffer).String())

		entries := hook.Drain()
		assert.True(t, testutils.LogContains(entries, logrus.WarnLevel, "Compressed variants are not written"))
		assert.True(t, testutils.LogContains(entries, logrus.WarnLevel, "the source map is dropped"))
	})

	t.Run("explicit map", func(t *testing.T) {
		t.Parallel()
		params, _ := newParams(t)
		params.Output = Stdout
		params.MapOutput = filepath.FromSlash("maps/out.js.map")

		_, err := Write(params, "a();\n", testMap())
		require.NoError(t, err)
		assert.Equal(t, "a();\n//# sourceMappingURL=maps/out.js.map", params.Stdout.(*bytes.Buffer).String())
		assert.NotEmpty(t, readString(t, params.FS, params.MapOutput))
	})

	t.Run("base dir", func(t *testing.T) {
		t.Parallel()
		params, _ := newParams(t)
		params.BaseDir = filepath.FromSlash("/app")
		params.MapOutput = filepath.FromSlash("/app/maps/out.js.map")

		_, err := Write(params, "a();\n", testMap())
		require.NoError(t, err)
		assert.Equal(t, "a();\n//# sourceMappingURL=maps/out.js.map", params.Stdout.(*bytes.Buffer).String())
	})

	t.Run("no map", func(t *testing.T) {
		t.Parallel()
		params, hook := newParams(t)
		params.NoMapComment = true

		_, err := Write(params, "a();", nil)
		require.NoError(t, err)
		assert.Equal(t, "a();", params.Stdout.(*bytes.Buffer).String())
		assert.Empty(t, hook.Drain())
	})
}

func TestWriteCompressed(t *testing.T) {
	t.Parallel()

	params, _ := newParams(t)
	params.Output = "/out/bundle.js"
	params.NoMapComment = true
	params.Compressions = []CompressionType{CompressionTypeGzip, CompressionTypeBr, CompressionTypeZstd}

	code := strings.Repeat("function a(){return 1}\n", 50)
	res, err := Write(params, code, testMap())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/out/bundle.js", "/out/bundle.js.gz", "/out/bundle.js.br", "/out/bundle.js.zst", "/out/bundle.js.map",
	}, res.Files)

	decoders := map[string]func(io.Reader) (io.Reader, error){
		".gz": func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) },
		".br": func(r io.Reader) (io.Reader, error) { return brotli.NewReader(r), nil },
		".zst": func(r io.Reader) (io.Reader, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
	}
	for ext, decode := range decoders {
		r, err := decode(strings.NewReader(readString(t, params.FS, "/out/bundle.js"+ext)))
		require.NoError(t, err, ext)
		data, err := io.ReadAll(r)
		require.NoError(t, err, ext)
		assert.Equal(t, code, string(data), ext)
	}
}

func TestWriteFailure(t *testing.T) {
	t.Parallel()

	params, _ := newParams(t)
	params.FS = fsext.NewReadOnlyFs(params.FS)
	params.Output = "/out/bundle.js"

	_, err := Write(params, "a();", testMap())
	assert.ErrorIs(t, err, ErrWrite)
}

func TestCompressionTypeString(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"gzip", "br", "zstd", "GZIP"} {
		c, err := CompressionTypeString(name)
		require.NoError(t, err)
		assert.True(t, strings.EqualFold(name, c.String()))
	}
	_, err := CompressionTypeString("lzw")
	assert.EqualError(t, err, "lzw does not belong to CompressionType values (gzip, br, zstd)")
	assert.Equal(t, "CompressionType(9)", CompressionType(9).String())
	assert.Equal(t, ".zst", CompressionTypeZstd.Extension())
}
