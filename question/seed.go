package question

import (
	"context"
	"fmt"
	"os"

	"github.com/tbxark/interviewagent/types"
	"gopkg.in/yaml.v3"
)

// Seed is a questionnaire file. Each entry is one language variant; variants
// of the same logical question share a group id.
type Seed struct {
	Questions []SeedQuestion `yaml:"questions"`
}

type SeedQuestion struct {
	Question `yaml:",inline"`
	Options  []Option `yaml:"options,omitempty"`
}

// ReadSeed loads a seed file from disk.
func ReadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, q := range s.Questions {
		if q.ID == "" || q.GroupID == "" || q.Language == "" {
			return nil, fmt.Errorf("seed question %d: id, group_id and language are required", i)
		}
		if q.Type != types.QuestionChoice && q.Type != types.QuestionFreetext {
			return nil, fmt.Errorf("seed question %s: unknown type %q", q.ID, q.Type)
		}
		if q.Status == "" {
			s.Questions[i].Status = StatusPending
		}
		for j := range q.Options {
			if q.Options[j].Status == "" {
				s.Questions[i].Options[j].Status = StatusPending
			}
		}
	}
	return &s, nil
}

// Apply writes every question and option of the seed in file order.
func (s *Seed) Apply(ctx context.Context, w Writer) error {
	for _, q := range s.Questions {
		if err := w.AddQuestion(ctx, q.Question); err != nil {
			return err
		}
		for _, o := range q.Options {
			o.QuestionID = q.ID
			if err := w.AddOption(ctx, o); err != nil {
				return err
			}
		}
	}
	return nil
}
