package internal

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/davidmdm/ansi"
)

type DiffFunc func(live, desired File, context int) string

type File struct {
	Name    string
	Content string
}

// Diff renders a unified diff between the live cluster state and the state a
// deploy would produce.
func Diff(live, desired File, context int) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(live.Content),
		B:        difflib.SplitLines(desired.Content),
		FromFile: live.Name,
		ToFile:   desired.Name,
		Context:  context,
	})
	return diff
}

func DiffColorized(live, desired File, context int) string {
	return colorizeDiff(Diff(live, desired, context))
}

var (
	green = ansi.MakeStyle(ansi.FgGreen)
	red   = ansi.MakeStyle(ansi.FgRed)
)

func colorizeDiff(value string) string {
	lines := strings.Split(value, "\n")
	colorized := make([]string, len(lines))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '-':
			colorized[i] = red.Sprint(line)
		case '+':
			colorized[i] = green.Sprint(line)
		default:
			colorized[i] = line
		}
	}

	return strings.Join(colorized, "\n")
}

func ToYamlFile(name string, value any) (File, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	err := encoder.Encode(value)
	return File{Name: name, Content: buffer.String()}, err
}
