package internal

import (
	"cmp"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// AsUnstructured converts a typed API object into its unstructured declaration
// form: wire field names, no status block, and no null creationTimestamp
// artifacts left over from zero-valued metadata.
func AsUnstructured(value any) (*unstructured.Unstructured, error) {
	object, err := runtime.DefaultUnstructuredConverter.ToUnstructured(value)
	if err != nil {
		return nil, fmt.Errorf("failed to convert resource: %w", err)
	}

	delete(object, "status")
	pruneNullCreationTimestamps(object)

	return &unstructured.Unstructured{Object: object}, nil
}

func pruneNullCreationTimestamps(value any) {
	switch typed := value.(type) {
	case map[string]any:
		if metadata, ok := typed["metadata"].(map[string]any); ok {
			if ts, ok := metadata["creationTimestamp"]; ok && ts == nil {
				delete(metadata, "creationTimestamp")
			}
		}
		for _, nested := range typed {
			pruneNullCreationTimestamps(nested)
		}
	case []any:
		for _, nested := range typed {
			pruneNullCreationTimestamps(nested)
		}
	}
}

func Canonical(resource *unstructured.Unstructured) string {
	gvk := resource.GetObjectKind().GroupVersionKind()

	return strings.ToLower(strings.Join(
		[]string{
			cmp.Or(gvk.Group, "core"),
			gvk.Version,
			resource.GetKind(),
			resource.GetName(),
		},
		".",
	))
}

func CanonicalObjectMap(resources []*unstructured.Unstructured) map[string]any {
	result := make(map[string]any, len(resources))
	for _, resource := range resources {
		result[Canonical(resource)] = resource.Object
	}
	return result
}

// ProjectDeclared reduces live to the fields declared in desired. Server
// populated state the declaration never mentions is dropped, so a diff of
// desired against the result surfaces only drift on declared fields.
func ProjectDeclared(desired, live any) any {
	switch desiredValue := desired.(type) {
	case map[string]any:
		liveMap, ok := live.(map[string]any)
		if !ok {
			return live
		}
		result := make(map[string]any, len(desiredValue))
		for key, value := range desiredValue {
			liveValue, ok := liveMap[key]
			if !ok {
				continue
			}
			result[key] = ProjectDeclared(value, liveValue)
		}
		return result
	case []any:
		liveSlice, ok := live.([]any)
		if !ok {
			return live
		}
		result := make([]any, len(liveSlice))
		for i, liveValue := range liveSlice {
			if i < len(desiredValue) {
				result[i] = ProjectDeclared(desiredValue[i], liveValue)
			} else {
				result[i] = liveValue
			}
		}
		return result
	default:
		return live
	}
}
