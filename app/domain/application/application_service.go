package application

import (
	"context"
	"fmt"
	"strconv"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

const basePath = "/api/v1/applications"

// ListFilter narrows the application list. The zero value lists everything.
type ListFilter struct {
	Status   Status
	Favorite bool
	Search   string
	Page     int
}

func (f ListFilter) params() map[string]string {
	params := map[string]string{}
	if f.Status != "" {
		params["status"] = string(f.Status)
	}
	if f.Favorite {
		params["favorite"] = "true"
	}
	if f.Search != "" {
		params["search"] = f.Search
	}
	if f.Page > 0 {
		params["page"] = strconv.Itoa(f.Page)
	}
	return params
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

func (s *Service) ListKey(filter ListFilter) cache.Key {
	return cache.ApplicationListKey(filter.params())
}

// List returns the cached application list for the filter, kicking off a
// background fetch when the entry is absent or stale.
func (s *Service) List(ctx context.Context, filter ListFilter) cache.Entry {
	key := s.ListKey(filter)
	s.store.Register(key, s.listLoader(filter))
	return s.store.Get(ctx, key)
}

// ListNow blocks until the list is fresh and returns the page.
func (s *Service) ListNow(ctx context.Context, filter ListFilter) (apiclient.Page[Application], error) {
	key := s.ListKey(filter)
	s.store.Register(key, s.listLoader(filter))
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Application]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Application])
	if !ok {
		return apiclient.Page[Application]{}, fmt.Errorf("application: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listLoader(filter ListFilter) cache.Loader {
	return func(ctx context.Context) (any, error) {
		var page apiclient.Page[Application]
		if err := s.api.Get(ctx, basePath, filter.params(), &page); err != nil {
			return nil, err
		}
		return page, nil
	}
}

// Detail returns the cached application entry for id.
func (s *Service) Detail(ctx context.Context, id uint) cache.Entry {
	key := cache.ApplicationDetailKey(id)
	s.store.Register(key, s.detailLoader(id))
	return s.store.Get(ctx, key)
}

// DetailNow blocks until the application detail is fresh.
func (s *Service) DetailNow(ctx context.Context, id uint) (Application, error) {
	key := cache.ApplicationDetailKey(id)
	s.store.Register(key, s.detailLoader(id))
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return Application{}, err
	}
	app, ok := entry.Data.(Application)
	if !ok {
		return Application{}, fmt.Errorf("application: unexpected cache data for %s", key)
	}
	return app, nil
}

func (s *Service) detailLoader(id uint) cache.Loader {
	return func(ctx context.Context) (any, error) {
		var app Application
		if err := s.api.Get(ctx, itemPath(id), nil, &app); err != nil {
			return nil, err
		}
		return app, nil
	}
}

// CreateOperation validates the form input and builds the create mutation.
// Creating an application invalidates every cached application list.
func (s *Service) CreateOperation(input CreateInput) (cache.Operation, error) {
	if err := forms.Check(input); err != nil {
		return cache.Operation{}, err
	}
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var created Application
			if err := s.api.Post(ctx, basePath, input, &created); err != nil {
				return nil, err
			}
			return created, nil
		},
		Invalidate: []cache.Pattern{cache.ResourcePattern(cache.ApplicationListResource)},
	}, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Application, error) {
	return s.run(ctx, func() (cache.Operation, error) { return s.CreateOperation(input) })
}

func (s *Service) UpdateOperation(id uint, input UpdateInput) (cache.Operation, error) {
	if err := forms.Check(input); err != nil {
		return cache.Operation{}, err
	}
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var updated Application
			if err := s.api.Put(ctx, itemPath(id), input, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: []cache.Pattern{
			cache.ResourcePattern(cache.ApplicationListResource),
			detailPattern(id),
		},
	}, nil
}

func (s *Service) Update(ctx context.Context, id uint, input UpdateInput) (Application, error) {
	return s.run(ctx, func() (cache.Operation, error) { return s.UpdateOperation(id, input) })
}

func (s *Service) DeleteOperation(id uint) cache.Operation {
	return cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Delete(ctx, itemPath(id))
		},
		Invalidate: []cache.Pattern{
			cache.ResourcePattern(cache.ApplicationListResource),
			detailPattern(id),
		},
	}
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	op := s.DeleteOperation(id)
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

// ToggleFavoriteOperation flips the favorite flag optimistically: the
// detail entry updates before the request resolves and is rolled back
// exactly if the request fails.
func (s *Service) ToggleFavoriteOperation(app Application) cache.Operation {
	next := !app.Favorite
	return cache.Operation{
		Optimistic: &cache.Patch{
			Key: cache.ApplicationDetailKey(app.ID),
			Apply: func(prev any) any {
				patched := app
				if cur, ok := prev.(Application); ok {
					patched = cur
				}
				patched.Favorite = next
				return patched
			},
		},
		Do: func(ctx context.Context) (any, error) {
			var updated Application
			body := map[string]bool{"favorite": next}
			if err := s.api.Patch(ctx, itemPath(app.ID)+"/favorite", body, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: []cache.Pattern{cache.ResourcePattern(cache.ApplicationListResource)},
	}
}

func (s *Service) ToggleFavorite(ctx context.Context, app Application) (Application, error) {
	op := s.ToggleFavoriteOperation(app)
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Application{}, err
	}
	updated, _ := result.(Application)
	return updated, nil
}

func (s *Service) run(ctx context.Context, build func() (cache.Operation, error)) (Application, error) {
	op, err := build()
	if err != nil {
		return Application{}, err
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Application{}, err
	}
	app, _ := result.(Application)
	return app, nil
}

func itemPath(id uint) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}

func detailPattern(id uint) cache.Pattern {
	return cache.ExactPattern(cache.ApplicationDetailResource, map[string]string{"id": strconv.FormatUint(uint64(id), 10)})
}
