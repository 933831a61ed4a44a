// Package seed reads catalog data shipped as YAML.
package seed

import (
	"azarean/rehab-app/internal/domain"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrNoPhases = errors.New("seed file contains no phases")

type phaseFile struct {
	Phases []domain.RehabPhase `yaml:"phases"`
}

// DecodePhases parses a phase catalog. Unknown keys are rejected so a typo
// in a field name does not silently drop content.
func DecodePhases(r io.Reader) ([]domain.RehabPhase, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f phaseFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoPhases
		}
		return nil, fmt.Errorf("decode phases: %w", err)
	}
	if len(f.Phases) == 0 {
		return nil, ErrNoPhases
	}
	return f.Phases, nil
}

func LoadPhases(path string) ([]domain.RehabPhase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePhases(f)
}
