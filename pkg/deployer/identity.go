package deployer

import "strings"

// Labels stamped on every resource the deployer owns. The same set serves as
// labels and as selectors, and is the only linkage between the service, the
// workload, and its pods.
const (
	LabelAppID        = "kubedeployer/app-id"
	LabelDeploymentID = "kubedeployer/deployment-id"
	LabelGroupID      = "kubedeployer/group-id"
	LabelManagedBy    = "app.kubernetes.io/managed-by"

	managedBy = "kubedeployer"
)

// DeploymentID derives the cluster-facing identifier for a request: the group
// prefix when one is set, the definition name, and dots folded to dashes to
// satisfy resource naming rules.
func DeploymentID(request AppDeploymentRequest) string {
	id := request.Definition.Name
	if group := request.Environment[PropertyGroup]; group != "" {
		id = group + "-" + id
	}
	return strings.ReplaceAll(id, ".", "-")
}

func DeploymentLabels(appID string, request AppDeploymentRequest) map[string]string {
	labels := map[string]string{
		LabelAppID:        appID,
		LabelDeploymentID: appID,
		LabelManagedBy:    managedBy,
	}
	if group := request.Environment[PropertyGroup]; group != "" {
		labels[LabelGroupID] = group
	}
	return labels
}

func appSelector(appID string) string {
	return LabelAppID + "=" + appID
}

func managedSelector() string {
	return LabelManagedBy + "=" + managedBy
}
