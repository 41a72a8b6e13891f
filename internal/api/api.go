// Package api carries the wire types and routing table shared by the deployer
// daemon and its clients.
package api

import "github.com/kubedeployer/kubedeployer/pkg/deployer"

type (
	DeployRequestBody  = deployer.AppDeploymentRequest
	StatusResponseBody = deployer.AppStatus

	DeployResponseBody struct {
		AppID string `json:"appId"`
	}

	ListResponseBody struct {
		Apps []string `json:"apps"`
	}

	ErrorResponseBody struct {
		Error string `json:"error"`
	}
)
