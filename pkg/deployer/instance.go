package deployer

import (
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// InstanceStatus describes a single running (or absent) copy of an app.
type InstanceStatus struct {
	ID         string            `json:"id"`
	State      DeploymentState   `json:"state"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// StatusClassifier turns a pod into an instance status. The pod is nil when
// the platform returned no result set at all, in which case the classifier
// reports a placeholder for the absent instance.
type StatusClassifier interface {
	Classify(appID string, pod *corev1.Pod) InstanceStatus
}

// PodStatusClassifier is the default classifier: it maps pod phases onto
// deployment states and surfaces pod networking and restart details as
// instance attributes.
type PodStatusClassifier struct{}

func (PodStatusClassifier) Classify(appID string, pod *corev1.Pod) InstanceStatus {
	if pod == nil {
		return InstanceStatus{ID: appID + "-0", State: StateUnknown}
	}
	return InstanceStatus{
		ID:         pod.Name,
		State:      podState(pod),
		Attributes: podAttributes(pod),
	}
}

func podState(pod *corev1.Pod) DeploymentState {
	switch pod.Status.Phase {
	case corev1.PodPending:
		return StateDeploying
	case corev1.PodRunning:
		for _, container := range pod.Status.ContainerStatuses {
			if !container.Ready {
				return StateDeploying
			}
		}
		return StateDeployed
	case corev1.PodFailed:
		return StateFailed
	default:
		return StateUnknown
	}
}

func podAttributes(pod *corev1.Pod) map[string]string {
	attributes := map[string]string{
		"pod_ip":  pod.Status.PodIP,
		"host_ip": pod.Status.HostIP,
		"phase":   string(pod.Status.Phase),
	}

	if start := pod.Status.StartTime; start != nil {
		attributes["start_time"] = start.Format(time.RFC3339)
	}

	var restarts int32
	for _, container := range pod.Status.ContainerStatuses {
		restarts += container.RestartCount
	}
	attributes["restart_count"] = strconv.Itoa(int(restarts))

	return attributes
}
