package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidmdm/x/xerr"

	"github.com/kubedeployer/kubedeployer/internal"
	"github.com/kubedeployer/kubedeployer/pkg/deployer"
)

type DeployParams struct {
	GlobalSettings
	File  string
	Input io.Reader
	Args  []string
}

//go:embed cmd_deploy_help.txt
var deployHelp string

func init() {
	deployHelp = strings.TrimSpace(internal.Colorize(deployHelp))
}

func GetDeployParams(settings GlobalSettings, source io.Reader, args []string) (*DeployParams, error) {
	flagset := flag.NewFlagSet("deploy", flag.ExitOnError)

	flagset.Usage = func() {
		fmt.Fprintln(flagset.Output(), deployHelp)
		flagset.PrintDefaults()
	}

	params := DeployParams{GlobalSettings: settings, Input: source}

	RegisterGlobalFlags(flagset, &params.GlobalSettings)

	args, params.Args = internal.CutArgs(args)

	flagset.Parse(args)

	params.File = flagset.Arg(0)

	if params.Input == nil && params.File == "" {
		return nil, fmt.Errorf("request file is required as first positional arg")
	}

	return &params, nil
}

func Deploy(ctx context.Context, params DeployParams) error {
	ctx = applySettings(ctx, &params.GlobalSettings)
	defer internal.DebugTimer(ctx, "deploy")()

	requests, err := readRequests(params.Input, params.File)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return internal.Warning("nothing to deploy")
	}
	if len(params.Args) > 0 {
		if len(requests) > 1 {
			return fmt.Errorf("container args after -- require a single request but the file holds %d", len(requests))
		}
		requests[0].Args = params.Args
	}

	engine, err := engineFromSettings(params.GlobalSettings)
	if err != nil {
		return fmt.Errorf("failed to instantiate deployer: %w", err)
	}

	var errs []error
	for _, request := range requests {
		appID, err := engine.Deploy(ctx, request)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintln(internal.Stdout(ctx), appID)
	}

	return xerr.MultiErrOrderedFrom("failed to deploy", errs...)
}

func readRequests(source io.Reader, path string) ([]deployer.AppDeploymentRequest, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
	} else {
		data, err = io.ReadAll(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read request from stdin: %w", err)
		}
	}

	var requests internal.List[deployer.AppDeploymentRequest]
	if err := yaml.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	return requests, nil
}
