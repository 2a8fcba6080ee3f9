package cache

const (
	// CacheVersion is the version prefix for all resource names.
	CacheVersion = "v1"

	// ApplicationListResource keys cached application list pages.
	ApplicationListResource = CacheVersion + ":applications:list"

	// ApplicationDetailResource keys individual application entries.
	ApplicationDetailResource = CacheVersion + ":applications:detail"

	// ApplicationResourcePrefix matches every application-scoped entry.
	ApplicationResourcePrefix = CacheVersion + ":applications"

	// CompanyListResource keys cached company list pages.
	CompanyListResource = CacheVersion + ":companies:list"

	// CompanyDetailResource keys individual company entries.
	CompanyDetailResource = CacheVersion + ":companies:detail"

	// InterviewListResource keys interview lists scoped by parent application.
	InterviewListResource = CacheVersion + ":interviews:list"

	// NoteListResource keys note lists scoped by parent application.
	NoteListResource = CacheVersion + ":notes:list"

	// ResumeListResource keys the resume list.
	ResumeListResource = CacheVersion + ":resumes:list"

	// NotificationListResource keys cached notification list pages.
	NotificationListResource = CacheVersion + ":notifications:list"

	// NotificationUnreadResource keys the unread notification count.
	NotificationUnreadResource = CacheVersion + ":notifications:unread"

	// NotificationResourcePrefix matches every notification-scoped entry.
	NotificationResourcePrefix = CacheVersion + ":notifications"

	// WebhookListResource keys the webhook list.
	WebhookListResource = CacheVersion + ":webhooks:list"

	// ProfileResource keys the account profile entry.
	ProfileResource = CacheVersion + ":account:profile"
)
