package assist

import (
	"context"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
)

const basePath = "/api/v1/assist"

// Service requests AI-assisted content from the backend. Generation runs
// entirely server-side; the client only posts a prompt context and reads
// the result. Nothing here is cached: every generation is a fresh request.
type Service struct {
	api *apiclient.Client
}

func NewService(api *apiclient.Client) *Service {
	return &Service{api: api}
}

type CoverLetterInput struct {
	ApplicationID uint   `json:"application_id" validate:"required"`
	ResumeID      uint   `json:"resume_id,omitempty"`
	Tone          string `json:"tone,omitempty" validate:"omitempty,oneof=formal conversational enthusiastic"`
	Instructions  string `json:"instructions,omitempty" validate:"max=2000"`
}

type SummaryInput struct {
	ApplicationID uint `json:"application_id" validate:"required"`
}

type Generated struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

func (s *Service) CoverLetter(ctx context.Context, input CoverLetterInput) (Generated, error) {
	if err := forms.Check(input); err != nil {
		return Generated{}, err
	}
	var out Generated
	if err := s.api.Post(ctx, basePath+"/cover-letter", input, &out); err != nil {
		return Generated{}, err
	}
	return out, nil
}

func (s *Service) Summary(ctx context.Context, input SummaryInput) (Generated, error) {
	if err := forms.Check(input); err != nil {
		return Generated{}, err
	}
	var out Generated
	if err := s.api.Post(ctx, basePath+"/summary", input, &out); err != nil {
		return Generated{}, err
	}
	return out, nil
}
