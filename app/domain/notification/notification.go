package notification

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the closed set of notification types. Rendering metadata is an
// exhaustive mapping over this set; an unknown kind is a decode error, not
// a fallback icon.
type Kind string

const (
	KindStatusChange     Kind = "status_change"
	KindInterviewSoon    Kind = "interview_soon"
	KindWebhookFailed    Kind = "webhook_failed"
	KindAssistReady      Kind = "assist_ready"
	KindFollowUpReminder Kind = "follow_up_reminder"
)

var allKinds = []Kind{
	KindStatusChange,
	KindInterviewSoon,
	KindWebhookFailed,
	KindAssistReady,
	KindFollowUpReminder,
}

func ParseKind(s string) (Kind, error) {
	for _, k := range allKinds {
		if Kind(s) == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("notification: unknown kind %q", s)
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Meta is the display metadata for one notification kind.
type Meta struct {
	Icon  string
	Color string
	Label string
}

// MetaFor maps every kind to its display metadata. The switch is
// exhaustive over the Kind constants; extending the set without a case
// here panics in tests rather than rendering a wrong icon in production.
func MetaFor(k Kind) Meta {
	switch k {
	case KindStatusChange:
		return Meta{Icon: "arrow-path", Color: "blue", Label: "Status changed"}
	case KindInterviewSoon:
		return Meta{Icon: "calendar", Color: "amber", Label: "Upcoming interview"}
	case KindWebhookFailed:
		return Meta{Icon: "exclamation-triangle", Color: "red", Label: "Webhook delivery failed"}
	case KindAssistReady:
		return Meta{Icon: "sparkles", Color: "violet", Label: "Generated content ready"}
	case KindFollowUpReminder:
		return Meta{Icon: "bell", Color: "green", Label: "Follow-up reminder"}
	default:
		panic(fmt.Sprintf("notification: no metadata for kind %q", k))
	}
}

type Notification struct {
	ID        uint      `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// UnreadCount is the payload of the unread-count endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}
