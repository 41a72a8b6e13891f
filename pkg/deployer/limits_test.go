package deployer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceLimits(t *testing.T) {
	config := Config{Memory: "512Mi", CPU: "500m"}

	cases := []struct {
		Name        string
		Environment map[string]string
		Expected    map[string]string
	}{
		{
			Name:     "defaults apply",
			Expected: map[string]string{"memory": "512Mi", "cpu": "500m"},
		},
		{
			Name:        "memory override wins",
			Environment: map[string]string{PropertyMemory: "1Gi"},
			Expected:    map[string]string{"memory": "1Gi", "cpu": "500m"},
		},
		{
			Name:        "cpu override wins",
			Environment: map[string]string{PropertyCPU: "2"},
			Expected:    map[string]string{"memory": "512Mi", "cpu": "2"},
		},
		{
			Name:        "malformed overrides pass through untouched",
			Environment: map[string]string{PropertyMemory: "not-a-quantity"},
			Expected:    map[string]string{"memory": "not-a-quantity", "cpu": "500m"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			request := AppDeploymentRequest{
				Definition:  AppDefinition{Name: "sample"},
				Environment: tc.Environment,
			}
			require.Equal(t, tc.Expected, ResourceLimits(config, request))
		})
	}
}

func TestResourceLimitsEmptyConfig(t *testing.T) {
	limits := ResourceLimits(Config{}, AppDeploymentRequest{Definition: AppDefinition{Name: "sample"}})
	require.Empty(t, limits)
}
