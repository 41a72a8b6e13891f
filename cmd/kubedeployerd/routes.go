package main

import (
	"fmt"
	"net/http"

	"github.com/kubedeployer/kubedeployer/internal/api"
)

const (
	deployName   = "DEPLOY"
	listName     = "LIST_DEPLOYMENTS"
	statusName   = "DEPLOYMENT_STATUS"
	undeployName = "UNDEPLOY"
)

var deploymentRoute = fmt.Sprintf(api.DeploymentPath, fmt.Sprintf(api.PathVarFormat, api.AppIDPathVar))

func (s *server) routes() []api.Route {
	return []api.Route{
		{
			Name:        deployName,
			Method:      http.MethodPost,
			Pattern:     api.DeploymentsPath,
			HandlerFunc: s.deploy,
		},
		{
			Name:        listName,
			Method:      http.MethodGet,
			Pattern:     api.DeploymentsPath,
			HandlerFunc: s.list,
		},
		{
			Name:        statusName,
			Method:      http.MethodGet,
			Pattern:     deploymentRoute,
			HandlerFunc: s.status,
		},
		{
			Name:        undeployName,
			Method:      http.MethodDelete,
			Pattern:     deploymentRoute,
			HandlerFunc: s.undeploy,
		},
	}
}
