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

type ListParams struct {
	GlobalSettings
}

//go:embed cmd_list_help.txt
var listHelp string

func init() {
	listHelp = strings.TrimSpace(internal.Colorize(listHelp))
}

func GetListParams(settings GlobalSettings, args []string) (*ListParams, error) {
	flagset := flag.NewFlagSet("list", flag.ExitOnError)

	flagset.Usage = func() {
		fmt.Fprintln(flagset.Output(), listHelp)
		flagset.PrintDefaults()
	}

	params := ListParams{GlobalSettings: settings}

	RegisterGlobalFlags(flagset, &params.GlobalSettings)

	flagset.Parse(args)

	return &params, nil
}

func List(ctx context.Context, params ListParams) error {
	ctx = applySettings(ctx, &params.GlobalSettings)
	defer internal.DebugTimer(ctx, "list")()

	engine, err := engineFromSettings(params.GlobalSettings)
	if err != nil {
		return fmt.Errorf("failed to instantiate deployer: %w", err)
	}

	ids, err := engine.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return internal.Warning("no deployed apps")
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleRounded)

	tbl.AppendHeader(table.Row{"app", "state"})
	for _, appID := range ids {
		status, err := engine.Status(ctx, appID)
		if err != nil {
			return err
		}
		tbl.AppendRow(table.Row{appID, status.State()})
	}

	_, err = io.WriteString(internal.Stdout(ctx), tbl.Render()+"\n")
	return err
}
