// Package state holds the process-wide state shared by all smconcat commands.
package state

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"

	"github.com/liuxd6825/smconcat/lib/fsext"
	"github.com/liuxd6825/smconcat/ui/console"
)

// GlobalState contains the GlobalOptions and accessors for most of the global
// process-external state like CLI arguments, env vars, standard input, output
// and error, etc. In practice, most of it is normally accessed through the `os`
// package from the Go stdlib.
//
// We group them here so we can prevent direct access to them from the rest of
// the codebase. This gives us the ability to mock them and have robust and
// easy-to-write integration-like tests to check the CLI behavior.
type GlobalState struct {
	Ctx context.Context

	FS         fsext.Fs
	Getwd      func() (string, error)
	BinaryName string
	CmdArgs    []string
	Env        map[string]string

	// DefaultFlags is only used for the help messages, Flags holds the
	// values after the environment was taken into account.
	DefaultFlags, Flags GlobalOptions

	Console *console.Console
	OSExit  func(int)

	Logger         *logrus.Logger
	FallbackLogger logrus.FieldLogger
}

// NewGlobalState returns a new GlobalState with the given ctx.
// Ideally, this should be the only function in the whole codebase where we use
// global variables and functions from the os package. Anywhere else, things
// like os.Stdout, os.Stderr, os.Exit(), os.Getenv(), etc. should be removed and
// the respective properties of globalState used instead.
func NewGlobalState(ctx context.Context) *GlobalState {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	env := BuildEnvMap(os.Environ())
	defaultFlags := GetDefaultGlobalOptions(".")
	globalFlags := consolidateGlobalFlags(defaultFlags, env)

	var stdout, stderr console.OSFileW = os.Stdout, os.Stderr
	if !globalFlags.NoColor {
		stdout = &colorableFile{colorable.NewColorable(os.Stdout), os.Stdout}
		stderr = &colorableFile{colorable.NewColorable(os.Stderr), os.Stderr}
	}
	cons := console.New(stdout, stderr, !globalFlags.NoColor, os.Getenv("TERM"))
	if isDumbTerm {
		cons = console.New(os.Stdout, os.Stderr, false, "dumb")
	}

	logger := &logrus.Logger{
		Out: cons.GetLogger().Out,
		Formatter: &logrus.TextFormatter{
			ForceColors:   cons.IsTTY && !globalFlags.NoColor,
			DisableColors: !cons.IsTTY || globalFlags.NoColor,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
	cons.SetLogger(logger)

	return &GlobalState{
		Ctx:          ctx,
		FS:           fsext.NewOsFs(),
		Getwd:        os.Getwd,
		BinaryName:   filepath.Base(os.Args[0]),
		CmdArgs:      os.Args,
		Env:          env,
		DefaultFlags: defaultFlags,
		Flags:        globalFlags,
		Console:      cons,
		OSExit:       os.Exit,
		Logger:       logger,
		FallbackLogger: &logrus.Logger{ // we may modify the other one
			Out:       os.Stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
}

// BuildEnvMap returns a map from raw environment variable strings.
func BuildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}

// colorableFile keeps the file descriptor of the wrapped file, so the
// console can still detect whether it is a terminal.
type colorableFile struct {
	w io.Writer
	f *os.File
}

func (c *colorableFile) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *colorableFile) Fd() uintptr {
	return c.f.Fd()
}
