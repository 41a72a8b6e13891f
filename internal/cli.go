package internal

import (
	"context"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/davidmdm/ansi"
)

// CutArgs splits an argument list at the "--" separator. Everything after the
// separator is passed through to the deployed container untouched.
func CutArgs(args []string) ([]string, []string) {
	idx := slices.Index(args, "--")
	if idx == -1 {
		return args, nil
	}
	return args[:idx], args[idx+1:]
}

var (
	cyan   = ansi.MakeStyle(ansi.FgCyan)
	yellow = ansi.MakeStyle(ansi.FgYellow)
)

func Colorize(value string) string {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		if len(line) == 0 || line[0] != '!' {
			continue
		}

		color, line, _ := strings.Cut(line, " ")
		switch color {
		case "!cyan":
			lines[i] = cyan.Sprint(line)
		case "!yellow":
			lines[i] = yellow.Sprint(line)
		default:
			lines[i] = line
		}
	}
	return strings.Join(lines, "\n")
}

type (
	stdoutKey struct{}
	stderrKey struct{}
)

func WithStdout(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}

func Stdout(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stdoutKey{}).(io.Writer)
	if !ok {
		return os.Stdout
	}
	return w
}

func WithStderr(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}

func Stderr(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stderrKey{}).(io.Writer)
	if !ok {
		return os.Stderr
	}
	return w
}

type debugKey struct{}

func WithDebugFlag(ctx context.Context, debug *bool) context.Context {
	return context.WithValue(ctx, debugKey{}, debug)
}

func Debug(ctx context.Context) ansi.Terminal {
	debug, _ := ctx.Value(debugKey{}).(*bool)
	if debug == nil || !*debug {
		return ansi.Terminal{Writer: io.Discard}
	}
	return ansi.Stderr
}

// DebugTimer reports the duration of a command phase when debug output is on.
// Use as: defer DebugTimer(ctx, "deploy sample-app")()
func DebugTimer(ctx context.Context, msg string) func() {
	start := time.Now()
	Debug(ctx).Printf("start: %s\n", msg)
	return func() {
		Debug(ctx).Printf("done:  %s: %s\n\n", msg, time.Since(start))
	}
}
