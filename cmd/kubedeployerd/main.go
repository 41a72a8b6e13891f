// Command kubedeployerd serves the deployer over HTTP for callers that cannot
// link the library directly.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/davidmdm/conf"
	"github.com/davidmdm/x/xcontext"
	log "github.com/sirupsen/logrus"

	"github.com/kubedeployer/kubedeployer/internal/api"
	"github.com/kubedeployer/kubedeployer/internal/home"
	"github.com/kubedeployer/kubedeployer/pkg/deployer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type DaemonConfig struct {
	Port           int
	KubeConfigPath string
	Namespace      string
	ConfigPath     string
	Debug          bool
}

func getDaemonConfig() (cfg DaemonConfig, err error) {
	conf.Var(conf.Environ, &cfg.Port, "KUBEDEPLOYER_PORT")
	conf.Var(conf.Environ, &cfg.KubeConfigPath, "KUBECONFIG")
	conf.Var(conf.Environ, &cfg.Namespace, "KUBEDEPLOYER_NAMESPACE")
	conf.Var(conf.Environ, &cfg.ConfigPath, "KUBEDEPLOYER_CONFIG")
	conf.Var(conf.Environ, &cfg.Debug, "KUBEDEPLOYER_DEBUG")
	if err = conf.Environ.Parse(); err != nil {
		return
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.KubeConfigPath == "" {
		cfg.KubeConfigPath = home.Kubeconfig
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	return
}

func run() error {
	ctx, done := xcontext.WithSignalCancelation(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()

	cfg, err := getDaemonConfig()
	if err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	properties, err := deployer.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load deployer config: %w", err)
	}

	engine, err := deployer.FromKubeConfig(cfg.KubeConfigPath, cfg.Namespace, properties)
	if err != nil {
		return fmt.Errorf("failed to build deployer: %w", err)
	}

	srv := &server{engine: engine}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(srv.routes()),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.ListenAndServe()
	}()

	log.Infof("listening on %s (namespace %s)", httpServer.Addr, cfg.Namespace)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
