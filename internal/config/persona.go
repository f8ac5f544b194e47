package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed persona.default.yaml
var defaultPersona []byte

// Persona is the fixed agent persona and the user-facing texts of the widget.
type Persona struct {
	Name             string   `yaml:"name" json:"name"`
	Instructions     string   `yaml:"instructions" json:"-"`
	Greeting         string   `yaml:"greeting" json:"-"`
	InitErrorText    string   `yaml:"init_error" json:"-"`
	TurnErrorText    string   `yaml:"turn_error" json:"-"`
	Title            string   `yaml:"title" json:"title"`
	Placeholder      string   `yaml:"placeholder" json:"placeholder"`
	ExampleQuestions []string `yaml:"example_questions" json:"example_questions"`
}

// LoadPersona reads a persona document. An empty path selects the embedded default.
func LoadPersona(path string) (*Persona, error) {
	data := defaultPersona
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read persona %s: %w", path, err)
		}
		data = raw
	}
	return ParsePersona(data)
}

// ParsePersona decodes and validates a YAML persona document.
func ParsePersona(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	p.Instructions = strings.TrimSpace(p.Instructions)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Title == "" {
		p.Title = p.Name
	}
	return &p, nil
}

// Validate checks that every text the widget needs is present.
func (p *Persona) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("persona name cannot be empty"))
	}
	if p.Instructions == "" {
		errs = append(errs, errors.New("persona instructions cannot be empty"))
	}
	if strings.TrimSpace(p.Greeting) == "" {
		errs = append(errs, errors.New("persona greeting cannot be empty"))
	}
	if strings.TrimSpace(p.InitErrorText) == "" {
		errs = append(errs, errors.New("persona init_error cannot be empty"))
	}
	if strings.TrimSpace(p.TurnErrorText) == "" {
		errs = append(errs, errors.New("persona turn_error cannot be empty"))
	}
	return errors.Join(errs...)
}
