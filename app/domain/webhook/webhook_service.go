package webhook

import (
	"context"
	"fmt"
	"time"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

const basePath = "/api/v1/webhooks"

type Webhook struct {
	ID         uint       `json:"id"`
	URL        string     `json:"url"`
	Events     []string   `json:"events"`
	Active     bool       `json:"active"`
	SecretHint string     `json:"secret_hint,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Input struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=application.created application.updated application.deleted interview.scheduled interview.completed"`
	Active bool     `json:"active"`
}

// RotateResult carries the newly issued signing secret; it is shown once
// and never cached.
type RotateResult struct {
	Secret string `json:"secret"`
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

func (s *Service) List(ctx context.Context) cache.Entry {
	key := cache.WebhookListKey()
	s.store.Register(key, s.listLoader())
	return s.store.Get(ctx, key)
}

func (s *Service) ListNow(ctx context.Context) (apiclient.Page[Webhook], error) {
	key := cache.WebhookListKey()
	s.store.Register(key, s.listLoader())
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Webhook]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Webhook])
	if !ok {
		return apiclient.Page[Webhook]{}, fmt.Errorf("webhook: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listLoader() cache.Loader {
	return func(ctx context.Context) (any, error) {
		var page apiclient.Page[Webhook]
		if err := s.api.Get(ctx, basePath, nil, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
}

func (s *Service) Create(ctx context.Context, input Input) (Webhook, error) {
	if err := forms.Check(input); err != nil {
		return Webhook{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var created Webhook
			if err := s.api.Post(ctx, basePath, input, &created); err != nil {
				return nil, err
			}
			return created, nil
		},
		Invalidate: listInvalidation(),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Webhook{}, err
	}
	created, _ := result.(Webhook)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id uint, input Input) (Webhook, error) {
	if err := forms.Check(input); err != nil {
		return Webhook{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var updated Webhook
			if err := s.api.Put(ctx, itemPath(id), input, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: listInvalidation(),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Webhook{}, err
	}
	updated, _ := result.(Webhook)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Delete(ctx, itemPath(id))
		},
		Invalidate: listInvalidation(),
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

// Test asks the backend to deliver a test event. The delivery outcome
// lands in LastStatus, so the list refetches afterwards.
func (s *Service) Test(ctx context.Context, id uint) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Post(ctx, itemPath(id)+"/test", nil, nil)
		},
		Invalidate: listInvalidation(),
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

func (s *Service) RotateSecret(ctx context.Context, id uint) (RotateResult, error) {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var result RotateResult
			if err := s.api.Post(ctx, itemPath(id)+"/rotate-secret", nil, &result); err != nil {
				return nil, err
			}
			return result, nil
		},
		Invalidate: listInvalidation(),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return RotateResult{}, err
	}
	rotated, _ := result.(RotateResult)
	return rotated, nil
}

func listInvalidation() []cache.Pattern {
	return []cache.Pattern{cache.ResourcePattern(cache.WebhookListResource)}
}

func itemPath(id uint) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}
