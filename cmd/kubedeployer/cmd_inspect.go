package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/davidmdm/x/xerr"

	"github.com/kubedeployer/kubedeployer/internal"
	"github.com/kubedeployer/kubedeployer/pkg/deployer"
)

type InspectParams struct {
	GlobalSettings
	File    string
	Input   io.Reader
	Out     string
	Diff    bool
	Color   bool
	Context int
}

//go:embed cmd_inspect_help.txt
var inspectHelp string

func init() {
	inspectHelp = strings.TrimSpace(internal.Colorize(inspectHelp))
}

func GetInspectParams(settings GlobalSettings, source io.Reader, args []string) (*InspectParams, error) {
	flagset := flag.NewFlagSet("inspect", flag.ExitOnError)

	flagset.Usage = func() {
		fmt.Fprintln(flagset.Output(), inspectHelp)
		flagset.PrintDefaults()
	}

	params := InspectParams{GlobalSettings: settings, Input: source}

	RegisterGlobalFlags(flagset, &params.GlobalSettings)

	flagset.StringVar(&params.Out, "out", "", "write manifests to the given directory instead of stdout")
	flagset.BoolVar(&params.Diff, "diff", false, "diff the manifests against live cluster state")
	flagset.BoolVar(&params.Color, "color", term.IsTerminal(int(os.Stdout.Fd())), "outputs diff with color")
	flagset.IntVar(&params.Context, "context", 4, "number of lines of context in diff (ignored without --diff)")

	flagset.Parse(args)

	params.File = flagset.Arg(0)

	if params.Input == nil && params.File == "" {
		return nil, fmt.Errorf("request file is required as first positional arg")
	}

	return &params, nil
}

func Inspect(ctx context.Context, params InspectParams) error {
	ctx = applySettings(ctx, &params.GlobalSettings)
	defer internal.DebugTimer(ctx, "inspect")()

	requests, err := readRequests(params.Input, params.File)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return internal.Warning("nothing to inspect")
	}

	config, err := deployer.LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	// manifest building never talks to the cluster, so no client is needed
	// until we diff against live state
	engine := &deployer.Deployer{Config: config}

	var manifests []*deployer.AppManifests
	for _, request := range requests {
		built, err := engine.Manifests(request)
		if err != nil {
			return err
		}
		manifests = append(manifests, built)
	}

	switch {
	case params.Diff:
		return diffManifests(ctx, params, manifests)
	case params.Out != "":
		return exportManifests(params.Out, manifests)
	default:
		return renderManifests(ctx, manifests)
	}
}

func appResources(app *deployer.AppManifests) ([]*unstructured.Unstructured, error) {
	service, err := internal.AsUnstructured(app.Service)
	if err != nil {
		return nil, err
	}
	workload, err := internal.AsUnstructured(app.Workload)
	if err != nil {
		return nil, err
	}
	return []*unstructured.Unstructured{service, workload}, nil
}

func renderManifests(ctx context.Context, manifests []*deployer.AppManifests) error {
	var resources []*unstructured.Unstructured
	for _, app := range manifests {
		built, err := appResources(app)
		if err != nil {
			return err
		}
		resources = append(resources, built...)
	}

	encoder := yaml.NewEncoder(internal.Stdout(ctx))
	encoder.SetIndent(2)
	return encoder.Encode(internal.CanonicalObjectMap(resources))
}

func exportManifests(dir string, manifests []*deployer.AppManifests) error {
	var errs []error
	for _, app := range manifests {
		root := filepath.Join(dir, app.AppID)

		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("failed to remove previous export: %w", err)
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		resources, err := appResources(app)
		if err != nil {
			return err
		}
		for _, resource := range resources {
			path := filepath.Join(root, internal.Canonical(resource)+".yaml")
			if err := internal.WriteYAML(path, resource.Object); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return xerr.MultiErrFrom("failed to write manifest(s)", errs...)
}

func diffManifests(ctx context.Context, params InspectParams, manifests []*deployer.AppManifests) error {
	engine, err := engineFromSettings(params.GlobalSettings)
	if err != nil {
		return fmt.Errorf("failed to instantiate deployer: %w", err)
	}

	desired := map[string]any{}
	live := map[string]any{}

	for _, app := range manifests {
		service, err := internal.AsUnstructured(app.Service)
		if err != nil {
			return err
		}
		workload, err := internal.AsUnstructured(app.Workload)
		if err != nil {
			return err
		}

		desired[internal.Canonical(service)] = service.Object
		desired[internal.Canonical(workload)] = workload.Object

		if liveService, err := engine.Client.GetService(ctx, app.AppID); err == nil {
			// the typed client strips TypeMeta on reads
			liveService.TypeMeta = app.Service.TypeMeta
			resource, err := internal.AsUnstructured(liveService)
			if err != nil {
				return err
			}
			live[internal.Canonical(service)] = internal.ProjectDeclared(service.Object, resource.Object)
		} else if !kerrors.IsNotFound(err) {
			return fmt.Errorf("failed to get live service for app %s: %w", app.AppID, err)
		}

		if liveWorkload, err := engine.Client.GetDeployment(ctx, app.AppID); err == nil {
			liveWorkload.TypeMeta = app.Workload.TypeMeta
			resource, err := internal.AsUnstructured(liveWorkload)
			if err != nil {
				return err
			}
			live[internal.Canonical(workload)] = internal.ProjectDeclared(workload.Object, resource.Object)
		} else if !kerrors.IsNotFound(err) {
			return fmt.Errorf("failed to get live deployment for app %s: %w", app.AppID, err)
		}
	}

	liveFile, err := internal.ToYamlFile("live", live)
	if err != nil {
		return err
	}
	desiredFile, err := internal.ToYamlFile("desired", desired)
	if err != nil {
		return err
	}

	differ := func() internal.DiffFunc {
		if params.Color {
			return internal.DiffColorized
		}
		return internal.Diff
	}()

	diff := differ(liveFile, desiredFile, params.Context)
	if strings.TrimSpace(diff) == "" {
		return internal.Warning("no drift detected")
	}

	_, err = fmt.Fprint(internal.Stdout(ctx), diff)
	return err
}
