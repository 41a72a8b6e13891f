package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestAsUnstructured(t *testing.T) {
	service := &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: "sample"},
	}

	resource, err := AsUnstructured(service)
	require.NoError(t, err)

	require.Equal(t, "core.v1.service.sample", Canonical(resource))
	require.NotContains(t, resource.Object, "status")

	metadata := resource.Object["metadata"].(map[string]any)
	require.NotContains(t, metadata, "creationTimestamp")
}

func TestProjectDeclared(t *testing.T) {
	desired := map[string]any{
		"spec": map[string]any{
			"replicas": int64(1),
			"ports":    []any{map[string]any{"port": int64(8080)}},
		},
	}
	live := map[string]any{
		"metadata": map[string]any{"resourceVersion": "42"},
		"spec": map[string]any{
			"replicas":  int64(3),
			"clusterIP": "10.0.0.1",
			"ports": []any{map[string]any{
				"port":     int64(8080),
				"protocol": "TCP",
			}},
		},
		"status": map[string]any{},
	}

	require.Equal(t, map[string]any{
		"spec": map[string]any{
			"replicas": int64(3),
			"ports":    []any{map[string]any{"port": int64(8080)}},
		},
	}, ProjectDeclared(desired, live))
}

func TestProjectDeclaredKeepsExtraLiveElements(t *testing.T) {
	desired := []any{map[string]any{"name": "a"}}
	live := []any{
		map[string]any{"name": "a", "extra": true},
		map[string]any{"name": "b"},
	}

	require.Equal(t, []any{
		map[string]any{"name": "a"},
		map[string]any{"name": "b"},
	}, ProjectDeclared(desired, live))
}
