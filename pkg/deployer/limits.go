package deployer

import (
	log "github.com/sirupsen/logrus"
)

// ResourceLimits resolves the memory and cpu limits for a request: a
// per-request environment property wins over the configured default. Values
// are passed through as-is; malformed quantities are only caught when the
// workload manifest is built.
func ResourceLimits(config Config, request AppDeploymentRequest) map[string]string {
	limits := make(map[string]string)

	if memory := request.EnvironmentProperty(PropertyMemory, config.Memory); memory != "" {
		limits["memory"] = memory
	}
	if cpu := request.EnvironmentProperty(PropertyCPU, config.CPU); cpu != "" {
		limits["cpu"] = cpu
	}

	log.Debugf("using limits cpu=%s memory=%s", limits["cpu"], limits["memory"])

	return limits
}
