package deployer

import "slices"

// DeploymentState is the coarse lifecycle state of an app or one of its
// instances.
type DeploymentState string

const (
	StateUnknown   DeploymentState = "unknown"
	StateDeploying DeploymentState = "deploying"
	StateDeployed  DeploymentState = "deployed"
	StatePartial   DeploymentState = "partial"
	StateFailed    DeploymentState = "failed"
	StateError     DeploymentState = "error"
)

// AppStatus is a point-in-time snapshot of an app: its instances and nothing
// else. It is rebuilt from the cluster on every query.
type AppStatus struct {
	DeploymentID string           `json:"deploymentId"`
	Instances    []InstanceStatus `json:"instances,omitempty"`
}

// State reduces the instance states to a single app state. An app with no
// instances is unknown. Homogeneous instances yield their shared state. Mixed
// instances yield partial as soon as any instance is deployed, otherwise the
// worst of the rest.
func (status AppStatus) State() DeploymentState {
	var states []DeploymentState
	for _, instance := range status.Instances {
		if !slices.Contains(states, instance.State) {
			states = append(states, instance.State)
		}
	}

	switch {
	case len(states) == 0:
		return StateUnknown
	case len(states) == 1:
		return states[0]
	case slices.Contains(states, StateDeployed):
		return StatePartial
	case slices.Contains(states, StateError):
		return StateError
	case slices.Contains(states, StateFailed):
		return StateFailed
	default:
		return StateDeploying
	}
}
