package internal

import (
	"os"

	"gopkg.in/yaml.v3"
)

// List decodes a YAML value that may hold either a single T or a sequence of
// them. Request files commonly contain one app but may carry a whole group.
type List[T any] []T

func (value *List[T]) UnmarshalYAML(node *yaml.Node) error {
	var single T
	if err := node.Decode(&single); err == nil {
		*value = []T{single}
		return nil
	}

	var many []T
	if err := node.Decode(&many); err != nil {
		return err
	}

	*value = many
	return nil
}

func WriteYAML(filename string, value any) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)

	return encoder.Encode(value)
}
