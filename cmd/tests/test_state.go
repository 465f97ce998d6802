package tests

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/smconcat/cmd/state"
	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/lib/testutils"
	"github.com/liuxd6825/smconcat/ui/console"
)

// GlobalTestState is a wrapper around GlobalState for use in tests.
type GlobalTestState struct {
	*state.GlobalState
	Cancel func()

	Stdout, Stderr *SafeBuffer
	LoggerHook     *testutils.SimpleLogrusHook

	Cwd string

	ExpectedExitCode int
}

// SafeBuffer is a bytes.Buffer that can be written from many goroutines and
// passed as a terminal-less output file.
type SafeBuffer struct {
	mx  sync.Mutex
	buf bytes.Buffer
}

// Write appends p to the buffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

// String returns the buffer contents.
func (b *SafeBuffer) String() string {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.String()
}

// Bytes returns a copy of the buffer contents.
func (b *SafeBuffer) Bytes() []byte {
	b.mx.Lock()
	defer b.mx.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// Fd returns an invalid descriptor, so the buffer is never seen as a TTY.
func (b *SafeBuffer) Fd() uintptr {
	return ^uintptr(0)
}

var _ console.OSFileW = (*SafeBuffer)(nil)

// NewGlobalTestState returns an initialized GlobalTestState, mocking all
// GlobalState fields for use in tests. The file system is in memory and the
// working directory is /test/.
func NewGlobalTestState(tb testing.TB) *GlobalTestState {
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	fs := fsext.NewMemMapFs()
	cwd := string(filepath.Separator) + "test" + string(filepath.Separator)
	if runtime.GOOS == "windows" {
		cwd = "c:\\test\\"
	}
	require.NoError(tb, fs.MkdirAll(cwd, 0o755))

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.Out = testutils.NewTestOutput(tb)
	hook := testutils.NewLogHook(
		logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel,
	)
	logger.AddHook(hook)

	ts := &GlobalTestState{
		Cwd:        cwd,
		Cancel:     cancel,
		LoggerHook: hook,
		Stdout:     new(SafeBuffer),
		Stderr:     new(SafeBuffer),
	}

	osExitCalled := false
	defaultOsExitHandle := func(exitCode int) {
		cancel()
		osExitCalled = true
		assert.Equal(tb, ts.ExpectedExitCode, exitCode)
	}

	tb.Cleanup(func() {
		if ts.ExpectedExitCode != 0 {
			// Ensure that, if we expected to receive an error, our `os.Exit()` mock
			// function was actually called.
			assert.Truef(tb, osExitCalled, "expected exit code %d, but the os.Exit() mock was not called", ts.ExpectedExitCode)
		}
	})

	cons := console.New(ts.Stdout, ts.Stderr, false, "")
	cons.SetLogger(logger)

	defaultFlags := state.GetDefaultGlobalOptions(cwd)
	ts.GlobalState = &state.GlobalState{
		Ctx:            ctx,
		FS:             fs,
		Getwd:          func() (string, error) { return ts.Cwd, nil },
		BinaryName:     "smconcat",
		CmdArgs:        []string{},
		Env:            map[string]string{},
		DefaultFlags:   defaultFlags,
		Flags:          defaultFlags,
		Console:        cons,
		OSExit:         defaultOsExitHandle,
		Logger:         logger,
		FallbackLogger: testutils.NewLogger(tb).WithField("fallback", true),
	}

	return ts
}

// WriteFiles creates the given files, relative to the working directory.
func (ts *GlobalTestState) WriteFiles(tb testing.TB, files map[string]string) {
	tb.Helper()
	for name, data := range files {
		require.NoError(tb, fsext.WriteFileAll(ts.FS, ts.Path(name), []byte(data), 0o644))
	}
}

// ReadFile returns the contents of a file relative to the working directory.
func (ts *GlobalTestState) ReadFile(tb testing.TB, name string) string {
	tb.Helper()
	data, err := fsext.ReadFile(ts.FS, ts.Path(name))
	require.NoError(tb, err)
	return string(data)
}

// Path returns the absolute path of the slash separated name.
func (ts *GlobalTestState) Path(name string) string {
	return fsext.Abs(ts.Cwd, filepath.FromSlash(name))
}
