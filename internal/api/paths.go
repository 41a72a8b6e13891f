package api

import "fmt"

// Paths
const (
	DeploymentsPath = "/deployments"
	DeploymentPath  = "/deployments/%s"

	AppIDPathVar  = "appId"
	PathVarFormat = "{%s}"
)

func GetDeploymentPath(appID string) string {
	return fmt.Sprintf(DeploymentPath, appID)
}
