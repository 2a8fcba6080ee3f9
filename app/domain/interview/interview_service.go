package interview

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

// Kind is the closed set of interview formats.
type Kind string

const (
	KindPhoneScreen Kind = "phone_screen"
	KindTechnical   Kind = "technical"
	KindBehavioral  Kind = "behavioral"
	KindSystem      Kind = "system_design"
	KindOnsite      Kind = "onsite"
	KindFinal       Kind = "final"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPhoneScreen, KindTechnical, KindBehavioral, KindSystem, KindOnsite, KindFinal:
		return Kind(s), nil
	}
	return "", fmt.Errorf("interview: unknown kind %q", s)
}

type Interview struct {
	ID            uint      `json:"id"`
	ApplicationID uint      `json:"application_id"`
	Kind          Kind      `json:"kind"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Interviewer   string    `json:"interviewer,omitempty"`
	Location      string    `json:"location,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
}

type Input struct {
	Kind        string    `json:"kind" validate:"required,oneof=phone_screen technical behavioral system_design onsite final"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Interviewer string    `json:"interviewer,omitempty" validate:"max=200"`
	Location    string    `json:"location,omitempty" validate:"max=200"`
	Notes       string    `json:"notes,omitempty" validate:"max=5000"`
}

type Service struct {
	api   *apiclient.Client
	store *cache.Store
}

func NewService(api *apiclient.Client, store *cache.Store) *Service {
	return &Service{
		api:   api,
		store: store,
	}
}

func (s *Service) List(ctx context.Context, applicationID uint) cache.Entry {
	key := cache.InterviewListKey(applicationID)
	s.store.Register(key, s.listLoader(applicationID))
	return s.store.Get(ctx, key)
}

func (s *Service) ListNow(ctx context.Context, applicationID uint) (apiclient.Page[Interview], error) {
	key := cache.InterviewListKey(applicationID)
	s.store.Register(key, s.listLoader(applicationID))
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Interview]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Interview])
	if !ok {
		return apiclient.Page[Interview]{}, fmt.Errorf("interview: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listLoader(applicationID uint) cache.Loader {
	return func(ctx context.Context) (any, error) {
		var page apiclient.Page[Interview]
		if err := s.api.Get(ctx, listPath(applicationID), nil, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
}

func (s *Service) CreateOperation(applicationID uint, input Input) (cache.Operation, error) {
	if err := forms.Check(input); err != nil {
		return cache.Operation{}, err
	}
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var created Interview
			if err := s.api.Post(ctx, listPath(applicationID), input, &created); err != nil {
				return nil, err
			}
			return created, nil
		},
		Invalidate: invalidation(applicationID),
	}, nil
}

func (s *Service) Create(ctx context.Context, applicationID uint, input Input) (Interview, error) {
	op, err := s.CreateOperation(applicationID, input)
	if err != nil {
		return Interview{}, err
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Interview{}, err
	}
	created, _ := result.(Interview)
	return created, nil
}

func (s *Service) Update(ctx context.Context, iv Interview, input Input) (Interview, error) {
	if err := forms.Check(input); err != nil {
		return Interview{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var updated Interview
			if err := s.api.Put(ctx, itemPath(iv.ID), input, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: invalidation(iv.ApplicationID),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Interview{}, err
	}
	updated, _ := result.(Interview)
	return updated, nil
}

// DeleteOperation removes an interview. The parent application's detail
// entry embeds the interview count, so both the interview list and the
// application detail refetch.
func (s *Service) DeleteOperation(iv Interview) cache.Operation {
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Delete(ctx, itemPath(iv.ID))
		},
		Invalidate: invalidation(iv.ApplicationID),
	}
}

func (s *Service) Delete(ctx context.Context, iv Interview) error {
	_, err := cache.NewMutation(s.store).Execute(ctx, s.DeleteOperation(iv))
	return err
}

func invalidation(applicationID uint) []cache.Pattern {
	id := strconv.FormatUint(uint64(applicationID), 10)
	return []cache.Pattern{
		cache.ExactPattern(cache.InterviewListResource, map[string]string{"application_id": id}),
		cache.ExactPattern(cache.ApplicationDetailResource, map[string]string{"id": id}),
	}
}

func listPath(applicationID uint) string {
	return fmt.Sprintf("/api/v1/applications/%d/interviews", applicationID)
}

func itemPath(id uint) string {
	return fmt.Sprintf("/api/v1/interviews/%d", id)
}
