package note

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

type Note struct {
	ID            uint      `json:"id"`
	ApplicationID uint      `json:"application_id"`
	Body          string    `json:"body"`
	Pinned        bool      `json:"pinned"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Input struct {
	Body   string `json:"body" validate:"required,max=10000"`
	Pinned bool   `json:"pinned"`
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
	key := cache.NoteListKey(applicationID)
	s.store.Register(key, s.listLoader(applicationID))
	return s.store.Get(ctx, key)
}

func (s *Service) ListNow(ctx context.Context, applicationID uint) (apiclient.Page[Note], error) {
	key := cache.NoteListKey(applicationID)
	s.store.Register(key, s.listLoader(applicationID))
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Note]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Note])
	if !ok {
		return apiclient.Page[Note]{}, fmt.Errorf("note: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listLoader(applicationID uint) cache.Loader {
	return func(ctx context.Context) (any, error) {
		var page apiclient.Page[Note]
		if err := s.api.Get(ctx, listPath(applicationID), nil, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
}

func (s *Service) Create(ctx context.Context, applicationID uint, input Input) (Note, error) {
	if err := forms.Check(input); err != nil {
		return Note{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var created Note
			if err := s.api.Post(ctx, listPath(applicationID), input, &created); err != nil {
				return nil, err
			}
			return created, nil
		},
		Invalidate: invalidation(applicationID),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Note{}, err
	}
	created, _ := result.(Note)
	return created, nil
}

func (s *Service) Update(ctx context.Context, n Note, input Input) (Note, error) {
	if err := forms.Check(input); err != nil {
		return Note{}, err
	}
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			var updated Note
			if err := s.api.Put(ctx, itemPath(n.ID), input, &updated); err != nil {
				return nil, err
			}
			return updated, nil
		},
		Invalidate: invalidation(n.ApplicationID),
	}
	result, err := cache.NewMutation(s.store).Execute(ctx, op)
	if err != nil {
		return Note{}, err
	}
	updated, _ := result.(Note)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, n Note) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Delete(ctx, itemPath(n.ID))
		},
		Invalidate: invalidation(n.ApplicationID),
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}

func invalidation(applicationID uint) []cache.Pattern {
	id := strconv.FormatUint(uint64(applicationID), 10)
	return []cache.Pattern{
		cache.ExactPattern(cache.NoteListResource, map[string]string{"application_id": id}),
	}
}

func listPath(applicationID uint) string {
	return fmt.Sprintf("/api/v1/applications/%d/notes", applicationID)
}

func itemPath(id uint) string {
	return fmt.Sprintf("/api/v1/notes/%d", id)
}
