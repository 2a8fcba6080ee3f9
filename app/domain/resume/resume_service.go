package resume

import (
	"context"
	"fmt"
	"time"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

const basePath = "/api/v1/resumes"

// Resume is the stored resume metadata; the document body lives behind
// FileURL on the backend.
type Resume struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	FileURL   string    `json:"file_url"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

type Input struct {
	Name      string `json:"name" validate:"required,max=200"`
	FileURL   string `json:"file_url" validate:"required,url"`
	IsDefault bool   `json:"is_default"`
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
	key := cache.ResumeListKey()
	s.store.Register(key, s.listLoader())
	return s.store.Get(ctx, key)
}

func (s *Service) ListNow(ctx context.Context) (apiclient.Page[Resume], error) {
	key := cache.ResumeListKey()
	s.store.Register(key, s.listLoader())
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Resume]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Resume])
	if !ok {
		return apiclient.Page[Resume]{}, fmt.Errorf("resume: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listLoader() cache.Loader {
	return func(ctx context.Context) (any, error) {
		var page apiclient.Page[Resume]
		if err := s.api.Get(ctx, basePath, nil, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
}

func (s *Service) Create(ctx context.Context, input Input) (Resume, error) {
	if err := forms.Check(input); err != nil {
		return Resume{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var created Resume
			if err := s.api.Post(ctx, basePath, input, &created); err != nil {
				return nil, err
			}
			return created, nil
		},
		Invalidate: []cache.Pattern{cache.ResourcePattern(cache.ResumeListResource)},
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Resume{}, err
	}
	created, _ := result.(Resume)
	return created, nil
}

func (s *Service) SetDefault(ctx context.Context, id uint) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Patch(ctx, itemPath(id)+"/default", nil, nil)
		},
		Invalidate: []cache.Pattern{cache.ResourcePattern(cache.ResumeListResource)},
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Delete(ctx, itemPath(id))
		},
		Invalidate: []cache.Pattern{cache.ResourcePattern(cache.ResumeListResource)},
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

func itemPath(id uint) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}
