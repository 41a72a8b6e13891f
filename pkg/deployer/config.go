package deployer

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the deployer-wide defaults applied to every request unless the
// request overrides them.
type Config struct {
	Memory               string   `yaml:"memory" mapstructure:"memory"`
	CPU                  string   `yaml:"cpu" mapstructure:"cpu"`
	EnvironmentVariables []string `yaml:"environment_variables" mapstructure:"environment_variables"`
	ImagePullSecret      string   `yaml:"image_pull_secret" mapstructure:"image_pull_secret"`
	CreateLoadBalancer   bool     `yaml:"create_load_balancer" mapstructure:"create_load_balancer"`

	// minutes undeploy is willing to wait for a load balancer to expose its
	// external address pool before tearing the service down anyway
	LoadBalancerWaitMinutes int `yaml:"load_balancer_wait_minutes" mapstructure:"load_balancer_wait_minutes"`
}

func DefaultConfig() Config {
	return Config{
		Memory:                  "512Mi",
		CPU:                     "500m",
		LoadBalancerWaitMinutes: 5,
	}
}

// LoadConfig reads deployer defaults from an optional YAML file, with
// KUBEDEPLOYER_* environment variables taking precedence over both the file
// and the built-in defaults.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("memory", defaults.Memory)
	v.SetDefault("cpu", defaults.CPU)
	v.SetDefault("environment_variables", defaults.EnvironmentVariables)
	v.SetDefault("image_pull_secret", defaults.ImagePullSecret)
	v.SetDefault("create_load_balancer", defaults.CreateLoadBalancer)
	v.SetDefault("load_balancer_wait_minutes", defaults.LoadBalancerWaitMinutes)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("KUBEDEPLOYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}
