package home

import (
	"os"
	"path/filepath"
)

// Kubeconfig is the conventional kubeconfig location for the current user.
var Kubeconfig string

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	Kubeconfig = filepath.Join(home, ".kube/config")
}
