package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"strings"

	"github.com/davidmdm/x/xerr"

	"github.com/kubedeployer/kubedeployer/internal"
)

type UndeployParams struct {
	GlobalSettings
	AppIDs []string
}

//go:embed cmd_undeploy_help.txt
var undeployHelp string

func init() {
	undeployHelp = strings.TrimSpace(internal.Colorize(undeployHelp))
}

func GetUndeployParams(settings GlobalSettings, args []string) (*UndeployParams, error) {
	flagset := flag.NewFlagSet("undeploy", flag.ExitOnError)

	flagset.Usage = func() {
		fmt.Fprintln(flagset.Output(), undeployHelp)
		flagset.PrintDefaults()
	}

	params := UndeployParams{GlobalSettings: settings}

	RegisterGlobalFlags(flagset, &params.GlobalSettings)

	flagset.Parse(args)

	params.AppIDs = flagset.Args()
	if len(params.AppIDs) == 0 {
		return nil, fmt.Errorf("app id is required as first positional arg")
	}

	return &params, nil
}

func Undeploy(ctx context.Context, params UndeployParams) error {
	ctx = applySettings(ctx, &params.GlobalSettings)
	defer internal.DebugTimer(ctx, "undeploy")()

	engine, err := engineFromSettings(params.GlobalSettings)
	if err != nil {
		return fmt.Errorf("failed to instantiate deployer: %w", err)
	}

	var errs []error
	for _, appID := range params.AppIDs {
		if err := engine.Undeploy(ctx, appID); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintln(internal.Stdout(ctx), appID)
	}

	return xerr.MultiErrOrderedFrom("", errs...)
}
