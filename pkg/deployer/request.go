package deployer

// Property keys the deployer inspects on incoming requests. Definition
// properties configure the app itself, environment properties address the
// deployer.
const (
	PropertyServerPort = "server.port"

	PropertyGroup  = "deployer.group"
	PropertyCount  = "deployer.count"
	PropertyMemory = "deployer.kubernetes.memory"
	PropertyCPU    = "deployer.kubernetes.cpu"
)

// AppDefinition names an app and carries the properties passed through to it.
type AppDefinition struct {
	Name       string            `yaml:"name" json:"name"`
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

func (definition AppDefinition) Property(key, fallback string) string {
	if value, ok := definition.Properties[key]; ok {
		return value
	}
	return fallback
}

// AppDeploymentRequest is the platform-agnostic ask: deploy this definition
// from this image, with these deployment-time options.
type AppDeploymentRequest struct {
	Definition  AppDefinition     `yaml:"definition" json:"definition"`
	Image       string            `yaml:"image" json:"image"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

func (request AppDeploymentRequest) EnvironmentProperty(key, fallback string) string {
	if value, ok := request.Environment[key]; ok {
		return value
	}
	return fallback
}
