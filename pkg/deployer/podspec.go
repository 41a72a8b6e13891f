package deployer

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// buildPodSpec assembles the pod template for a request: the factory-built
// container, resolved resource limits, and the configured image pull secret.
// Limit quantities are parsed here, so a malformed override or default fails
// the creation path rather than the resolver.
func buildPodSpec(config Config, factory ContainerFactory, appID string, request AppDeploymentRequest, port int) (*corev1.PodSpec, error) {
	container, err := factory.Create(appID, request, port)
	if err != nil {
		return nil, fmt.Errorf("failed to create container for app %s: %w", appID, err)
	}

	limits, err := parseLimits(ResourceLimits(config, request))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resource limits for app %s: %w", appID, err)
	}
	if len(limits) > 0 {
		container.Resources = corev1.ResourceRequirements{Limits: limits}
	}

	spec := corev1.PodSpec{Containers: []corev1.Container{container}}

	if config.ImagePullSecret != "" {
		spec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: config.ImagePullSecret}}
	}

	return &spec, nil
}

func parseLimits(limits map[string]string) (corev1.ResourceList, error) {
	if len(limits) == 0 {
		return nil, nil
	}

	list := make(corev1.ResourceList, len(limits))
	for name, value := range limits {
		quantity, err := resource.ParseQuantity(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s limit %q: %w", name, value, err)
		}
		list[corev1.ResourceName(name)] = quantity
	}

	return list, nil
}
