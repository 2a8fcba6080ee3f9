package notification

import (
	"context"
	"fmt"

	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
	"careertrack.dev/careertrack-go/app/infrastructure/cache"
)

const basePath = "/api/v1/notifications"

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

// ListKey returns the cache key for the notification list. unreadOnly views
// cache separately from the full list.
func (s *Service) ListKey(unreadOnly bool) cache.Key {
	return cache.NotificationListKey(listParams(unreadOnly))
}

func listParams(unreadOnly bool) map[string]string {
	params := map[string]string{}
	if unreadOnly {
		params["unread"] = "true"
	}
	return params
}

func (s *Service) List(ctx context.Context, unreadOnly bool) cache.Entry {
	key := s.ListKey(unreadOnly)
	s.store.Register(key, s.listLoader(unreadOnly))
	return s.store.Get(ctx, key)
}

func (s *Service) ListNow(ctx context.Context, unreadOnly bool) (apiclient.Page[Notification], error) {
	key := s.ListKey(unreadOnly)
	s.store.Register(key, s.listLoader(unreadOnly))
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return apiclient.Page[Notification]{}, err
	}
	page, ok := entry.Data.(apiclient.Page[Notification])
	if !ok {
		return apiclient.Page[Notification]{}, fmt.Errorf("notification: unexpected cache data for %s", key)
	}
	return page, nil
}

func (s *Service) listLoader(unreadOnly bool) cache.Loader {
	params := listParams(unreadOnly)
	return func(ctx context.Context) (any, error) {
		var page apiclient.Page[Notification]
		if err := s.api.Get(ctx, basePath, params, &page); err != nil {
			return nil, err
		}
		return page, nil
	}
}

// Unread returns the cached unread count entry.
func (s *Service) Unread(ctx context.Context) cache.Entry {
	key := cache.NotificationUnreadKey()
	s.store.Register(key, s.unreadLoader())
	return s.store.Get(ctx, key)
}

func (s *Service) UnreadNow(ctx context.Context) (UnreadCount, error) {
	key := cache.NotificationUnreadKey()
	s.store.Register(key, s.unreadLoader())
	entry, err := s.store.Fetch(ctx, key)
	if err != nil {
		return UnreadCount{}, err
	}
	count, ok := entry.Data.(UnreadCount)
	if !ok {
		return UnreadCount{}, fmt.Errorf("notification: unexpected cache data for %s", key)
	}
	return count, nil
}

func (s *Service) unreadLoader() cache.Loader {
	return func(ctx context.Context) (any, error) {
		var count UnreadCount
		if err := s.api.Get(ctx, basePath+"/unread-count", nil, &count); err != nil {
			return nil, err
		}
		return count, nil
	}
}

// MarkReadOperation flips one notification to read optimistically in the
// given list entry. The rollback restores that single entry; the unread
// count is corrected through invalidation on success only.
func (s *Service) MarkReadOperation(listKey cache.Key, id uint) cache.Operation {
	return cache.Operation{
		Optimistic: &cache.Patch{
			Key: listKey,
			Apply: func(prev any) any {
				page, ok := prev.(apiclient.Page[Notification])
				if !ok {
					return prev
				}
				patched := apiclient.Page[Notification]{
					Results: make([]Notification, len(page.Results)),
					Count:   page.Count,
				}
				copy(patched.Results, page.Results)
				for i := range patched.Results {
					if patched.Results[i].ID == id {
						patched.Results[i].Read = true
					}
				}
				return patched
			},
		},
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Patch(ctx, fmt.Sprintf("%s/%d/read", basePath, id), nil, nil)
		},
		Invalidate: []cache.Pattern{
			cache.ResourcePattern(cache.NotificationUnreadResource),
		},
	}
}

func (s *Service) MarkRead(ctx context.Context, listKey cache.Key, id uint) error {
	_, err := cache.NewMutation(s.store).Execute(ctx, s.MarkReadOperation(listKey, id))
	return err
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	op := cache.Operation{
		Do: func(ctx context.Context) (any, error) {
			return nil, s.api.Post(ctx, basePath+"/read-all", nil, nil)
		},
		Invalidate: []cache.Pattern{
			cache.ResourcePattern(cache.NotificationResourcePrefix),
		},
	}
	_, err := cache.NewMutation(s.store).Execute(ctx, op)
	return err
}
