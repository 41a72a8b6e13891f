package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/davidmdm/x/xcontext"

	"github.com/kubedeployer/kubedeployer/internal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		if internal.IsWarning(err) {
			return
		}
		os.Exit(1)
	}
}

//go:embed cmd_help.txt
var rootHelp string

func init() {
	rootHelp = strings.TrimSpace(internal.Colorize(rootHelp))
}

func run() error {
	ctx, done := xcontext.WithSignalCancelation(context.Background(), syscall.SIGINT)
	defer done()

	var settings GlobalSettings
	RegisterGlobalFlags(flag.CommandLine, &settings)

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), rootHelp)
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
	}

	flag.Parse()

	if len(flag.Args()) == 0 {
		flag.Usage()
		return fmt.Errorf("no command provided")
	}

	subcmdArgs := flag.Args()[1:]

	switch cmd := flag.Arg(0); cmd {
	case "deploy", "up":
		{
			var source io.Reader
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				source = os.Stdin
			}
			params, err := GetDeployParams(settings, source, subcmdArgs)
			if err != nil {
				return err
			}
			return Deploy(ctx, *params)
		}
	case "undeploy", "down", "delete":
		{
			params, err := GetUndeployParams(settings, subcmdArgs)
			if err != nil {
				return err
			}
			return Undeploy(ctx, *params)
		}
	case "status":
		{
			params, err := GetStatusParams(settings, subcmdArgs)
			if err != nil {
				return err
			}
			return Status(ctx, *params)
		}
	case "list", "ls":
		{
			params, err := GetListParams(settings, subcmdArgs)
			if err != nil {
				return err
			}
			return List(ctx, *params)
		}
	case "inspect":
		{
			var source io.Reader
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				source = os.Stdin
			}
			params, err := GetInspectParams(settings, source, subcmdArgs)
			if err != nil {
				return err
			}
			return Inspect(ctx, *params)
		}
	case "version":
		{
			return Version()
		}
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}
