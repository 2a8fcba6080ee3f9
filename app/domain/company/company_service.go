package company

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

const basePath = "/api/v1/companies"

type Company struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Website   string    `json:"website,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Input struct {
	Name     string `json:"name" validate:"required,max=200"`
	Website  string `json:"website,omitempty" validate:"omitempty,url"`
	Industry string `json:"industry,omitempty" validate:"max=100"`
	Notes    string `json:"notes,omitempty" validate:"max=5000"`
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

func (s *Service) List(ctx context.Context, search string) cache.Entry {
	key, loader := s.listKeyLoader(search)
	s.store.Register(key, loader)
	return s.store.Get(ctx, key)
}

func (s *Service) ListNow(ctx context.Context, search string) (apiclient.Page[Company], error) {
	key, loader := s.listKeyLoader(search)
	s.store.Register(key, loader)
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Company]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Company])
	if !ok {
		return apiclient.Page[Company]{}, fmt.Errorf("company: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listKeyLoader(search string) (cache.Key, cache.Loader) {
	params := map[string]string{}
	if search != "" {
		params["search"] = search
	}
	key := cache.CompanyListKey(params)
	loader := func(ctx context.Context) (any, error) {
		var page apiclient.Page[Company]
		if err := s.api.Get(ctx, basePath, params, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
	return key, loader
}

func (s *Service) Detail(ctx context.Context, id uint) cache.Entry {
	key := cache.CompanyDetailKey(id)
	s.store.Register(key, func(ctx context.Context) (any, error) {
		var c Company
		if err := s.api.Get(ctx, itemPath(id), nil, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
	return s.store.Get(ctx, key)
}

// CreateOperation builds the company create mutation. Application lists
// embed company names, so company changes invalidate them too.
func (s *Service) CreateOperation(input Input) (cache.Operation, error) {
	if err := forms.Check(input); err != nil {
		return cache.Operation{}, err
	}
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var created Company
			if err := s.api.Post(ctx, basePath, input, &created); err != nil {
				return nil, err
			}
			return created, nil
		},
		Invalidate: companyInvalidation(),
	}, nil
}

func (s *Service) Create(ctx context.Context, input Input) (Company, error) {
	op, err := s.CreateOperation(input)
	if err != nil {
		return Company{}, err
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Company{}, err
	}
	created, _ := result.(Company)
	return created, nil
}

func (s *Service) UpdateOperation(id uint, input Input) (cache.Operation, error) {
	if err := forms.Check(input); err != nil {
		return cache.Operation{}, err
	}
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var updated Company
			if err := s.api.Put(ctx, itemPath(id), input, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: append(companyInvalidation(),
			cache.ExactPattern(cache.CompanyDetailResource, map[string]string{"id": strconv.FormatUint(uint64(id), 10)})),
	}, nil
}

func (s *Service) Update(ctx context.Context, id uint, input Input) (Company, error) {
	op, err := s.UpdateOperation(id, input)
	if err != nil {
		return Company{}, err
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Company{}, err
	}
	updated, _ := result.(Company)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Delete(ctx, itemPath(id))
		},
		Invalidate: companyInvalidation(),
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

func companyInvalidation() []cache.Pattern {
	return []cache.Pattern{
		cache.ResourcePattern(cache.CompanyListResource),
		cache.ResourcePattern(cache.ApplicationListResource),
	}
}

func itemPath(id uint) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}
