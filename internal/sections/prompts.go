package sections

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section names accepted in an answer set.
const (
	Education  = "education"
	Experience = "experience"
	Awards     = "awards"
	Skills     = "skills"
	Name       = "name"
	Contact    = "contact"
	Location   = "location"
)

var (
	//go:embed prompts/*.txt
	promptFS embed.FS

	defaultPrompts = mustLoadPrompts()
)

// Names lists the supported sections in a stable order.
func Names() []string {
	return []string{Education, Experience, Awards, Skills, Name, Contact, Location}
}

// Prompts maps a section name to its instruction template.
type Prompts map[string]string

// DefaultPrompts returns a copy of the built-in instruction templates.
func DefaultPrompts() Prompts {
	out := make(Prompts, len(defaultPrompts))
	for k, v := range defaultPrompts {
		out[k] = v
	}
	return out
}

// Template returns the instruction template for section.
func (p Prompts) Template(section string) (string, bool) {
	tmpl, ok := p[strings.ToLower(strings.TrimSpace(section))]
	return tmpl, ok
}

type promptFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// LoadPrompts returns the built-in templates with any overrides from the YAML file at path.
// An empty path yields the defaults. Overrides for unknown sections are rejected.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if strings.TrimSpace(path) == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	var unknown []string
	for name, text := range file.Prompts {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := prompts[key]; !ok {
			unknown = append(unknown, name)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		prompts[key] = text
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("prompts file names unknown sections: %s", strings.Join(unknown, ", "))
	}
	return prompts, nil
}

// BuildPrompt joins an instruction template and the user's answer into one prompt.
func BuildPrompt(template, text string) string {
	return strings.TrimSpace(template) + "\n\nInput:\n" + strings.TrimSpace(text) + "\n\nOutput JSON only."
}

func mustLoadPrompts() Prompts {
	out := make(Prompts, 7)
	for _, name := range Names() {
		data, err := promptFS.ReadFile("prompts/" + name + ".txt")
		if err != nil {
			panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
		}
		out[name] = string(data)
	}
	return out
}
