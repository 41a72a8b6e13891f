package deployer

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	corev1 "k8s.io/api/core/v1"
)

// PropertiesEnvVar is the variable the default factory injects into containers
// holding the definition properties as a JSON object.
const PropertiesEnvVar = "APPLICATION_PROPERTIES"

// ContainerFactory builds the container for an app. Implementations can be
// swapped to control the container layout; the deployer attaches limits and
// pull secrets around whatever the factory returns.
type ContainerFactory interface {
	Create(appID string, request AppDeploymentRequest, port int) (corev1.Container, error)
}

type DefaultContainerFactory struct {
	Config Config
}

func (factory DefaultContainerFactory) Create(appID string, request AppDeploymentRequest, port int) (corev1.Container, error) {
	if request.Image == "" {
		return corev1.Container{}, fmt.Errorf("request for app %s does not specify an image", appID)
	}

	env := make([]corev1.EnvVar, 0, len(factory.Config.EnvironmentVariables)+1)
	for _, variable := range factory.Config.EnvironmentVariables {
		name, value, ok := strings.Cut(variable, "=")
		if !ok {
			return corev1.Container{}, fmt.Errorf("environment variable %q must be of the form key=value", variable)
		}
		env = append(env, corev1.EnvVar{Name: name, Value: value})
	}

	if len(request.Definition.Properties) > 0 {
		properties, err := json.Marshal(request.Definition.Properties)
		if err != nil {
			return corev1.Container{}, fmt.Errorf("failed to encode properties for app %s: %w", appID, err)
		}
		env = append(env, corev1.EnvVar{Name: PropertiesEnvVar, Value: string(properties)})
	}

	return corev1.Container{
		Name:  appID,
		Image: request.Image,
		Args:  request.Args,
		Env:   env,
		Ports: []corev1.ContainerPort{{ContainerPort: int32(port)}},
	}, nil
}
