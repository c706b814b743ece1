// Package promptfiles loads the institutional prompt-content file: the
// fixed strings (greeting prefix, per-advisor system preambles) that give
// the advisors a consistent brand voice without hardcoding copy into Go.
package promptfiles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Content is the decoded shape of the prompt-content YAML file.
type Content struct {
	OttoIntro                 string `yaml:"otto_intro"`
	StateSelectorPreamble     string `yaml:"state_selector_preamble"`
	ResponseGeneratorPreamble string `yaml:"response_generator_preamble"`
	MasterDeciderPreamble     string `yaml:"master_decider_preamble"`
}

// DefaultOttoIntro is used when no prompt-content file is configured.
const DefaultOttoIntro = "Olá! Eu sou o Otto, seu assistente virtual."

// Load reads and decodes a prompt-content YAML file from path.
func Load(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("promptfiles: read %q: %w", path, err)
	}

	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("promptfiles: decode %q: %w", path, err)
	}
	if c.OttoIntro == "" {
		c.OttoIntro = DefaultOttoIntro
	}
	return c, nil
}
