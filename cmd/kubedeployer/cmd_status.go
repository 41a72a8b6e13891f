package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kubedeployer/kubedeployer/internal"
)

type StatusParams struct {
	GlobalSettings
	AppID string
}

//go:embed cmd_status_help.txt
var statusHelp string

func init() {
	statusHelp = strings.TrimSpace(internal.Colorize(statusHelp))
}

func GetStatusParams(settings GlobalSettings, args []string) (*StatusParams, error) {
	flagset := flag.NewFlagSet("status", flag.ExitOnError)

	flagset.Usage = func() {
		fmt.Fprintln(flagset.Output(), statusHelp)
		flagset.PrintDefaults()
	}

	params := StatusParams{GlobalSettings: settings}

	RegisterGlobalFlags(flagset, &params.GlobalSettings)

	flagset.Parse(args)

	params.AppID = flagset.Arg(0)
	if params.AppID == "" {
		return nil, fmt.Errorf("app id is required as first positional arg")
	}

	return &params, nil
}

func Status(ctx context.Context, params StatusParams) error {
	ctx = applySettings(ctx, &params.GlobalSettings)
	defer internal.DebugTimer(ctx, "status")()

	engine, err := engineFromSettings(params.GlobalSettings)
	if err != nil {
		return fmt.Errorf("failed to instantiate deployer: %w", err)
	}

	status, err := engine.Status(ctx, params.AppID)
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleRounded)

	tbl.AppendHeader(table.Row{"instance", "state", "pod ip", "restarts"})
	for _, instance := range status.Instances {
		tbl.AppendRow(table.Row{
			instance.ID,
			instance.State,
			instance.Attributes["pod_ip"],
			instance.Attributes["restart_count"],
		})
	}

	output := internal.Stdout(ctx)
	if _, err := io.WriteString(output, tbl.Render()+"\n"); err != nil {
		return err
	}

	_, err = fmt.Fprintf(output, "%s: %s\n", status.DeploymentID, status.State())
	return err
}
