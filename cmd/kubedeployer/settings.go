package main

import (
	"context"
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/kubedeployer/kubedeployer/internal"
	"github.com/kubedeployer/kubedeployer/internal/home"
	"github.com/kubedeployer/kubedeployer/pkg/deployer"
)

type GlobalSettings struct {
	KubeConfigPath string
	Namespace      string
	ConfigPath     string
	Debug          bool
}

func RegisterGlobalFlags(flagset *flag.FlagSet, settings *GlobalSettings) {
	flagset.StringVar(&settings.KubeConfigPath, "kubeconfig", home.Kubeconfig, "path to kube config")
	flagset.StringVar(&settings.Namespace, "namespace", "default", "namespace to deploy apps into")
	flagset.StringVar(&settings.ConfigPath, "config", "", "path to deployer properties file")
	flagset.BoolVar(&settings.Debug, "debug", false, "enable debug logging and phase timings")
}

func applySettings(ctx context.Context, settings *GlobalSettings) context.Context {
	if settings.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return internal.WithDebugFlag(ctx, &settings.Debug)
}

func engineFromSettings(settings GlobalSettings) (*deployer.Deployer, error) {
	config, err := deployer.LoadConfig(settings.ConfigPath)
	if err != nil {
		return nil, err
	}
	return deployer.FromKubeConfig(settings.KubeConfigPath, settings.Namespace, config)
}
