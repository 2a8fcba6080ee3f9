package cache

import (
	"sort"
	"strconv"
	"strings"
)

// Key identifies one cache entry: a resource name plus a canonical
// serialization of its parameters. Keys are pure values; two keys are equal
// iff resource and every parameter match.
type Key struct {
	Resource string
	Params   string
}

// NewKey builds a Key with the params serialized in sorted order, so the
// same parameter set always yields the same key regardless of map order.
func NewKey(resource string, params map[string]string) Key {
	if len(params) == 0 {
		return Key{Resource: resource}
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}
	return Key{Resource: resource, Params: strings.Join(pairs, "&")}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Params
}

// Pattern selects cache entries for invalidation. Resource matching is
// prefix-based; when Params is non-nil the entry's parameters must match
// exactly as well.
type Pattern struct {
	Resource string
	Params   map[string]string
}

// ResourcePattern matches every entry whose resource name starts with
// resource.
func ResourcePattern(resource string) Pattern {
	return Pattern{Resource: resource}
}

// ExactPattern matches entries under the resource prefix whose parameters
// equal params exactly.
func ExactPattern(resource string, params map[string]string) Pattern {
	if params == nil {
		params = map[string]string{}
	}
	return Pattern{Resource: resource, Params: params}
}

func (p Pattern) Matches(k Key) bool {
	if !strings.HasPrefix(k.Resource, p.Resource) {
		return false
	}
	if p.Params == nil {
		return true
	}
	return NewKey(k.Resource, p.Params).Params == k.Params
}

func ApplicationListKey(params map[string]string) Key {
	return NewKey(ApplicationListResource, params)
}

func ApplicationDetailKey(id uint) Key {
	return NewKey(ApplicationDetailResource, map[string]string{"id": strconv.FormatUint(uint64(id), 10)})
}

func CompanyListKey(params map[string]string) Key {
	return NewKey(CompanyListResource, params)
}

func CompanyDetailKey(id uint) Key {
	return NewKey(CompanyDetailResource, map[string]string{"id": strconv.FormatUint(uint64(id), 10)})
}

func InterviewListKey(applicationID uint) Key {
	return NewKey(InterviewListResource, map[string]string{"application_id": strconv.FormatUint(uint64(applicationID), 10)})
}

func NoteListKey(applicationID uint) Key {
	return NewKey(NoteListResource, map[string]string{"application_id": strconv.FormatUint(uint64(applicationID), 10)})
}

func ResumeListKey() Key {
	return NewKey(ResumeListResource, nil)
}

func NotificationListKey(params map[string]string) Key {
	return NewKey(NotificationListResource, params)
}

func NotificationUnreadKey() Key {
	return NewKey(NotificationUnreadResource, nil)
}

func WebhookListKey() Key {
	return NewKey(WebhookListResource, nil)
}

func ProfileKey() Key {
	return NewKey(ProfileResource, nil)
}
