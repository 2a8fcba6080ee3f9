// Package mockapi is an in-memory CareerTrack backend used by the
// integration tests and the local demo. It implements just enough of the
// REST surface to drive the SDK: bearer auth with refresh, pagination
// envelopes, and CRUD for the core resources. It is test scaffolding, not
// a product backend.
package mockapi

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"careertrack.dev/careertrack-go/app/domain/application"
	"careertrack.dev/careertrack-go/app/domain/interview"
	"careertrack.dev/careertrack-go/app/domain/notification"
)

type page[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}

type errorBody struct {
	Message     string              `json:"message"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

// Server holds the fake backend state. All exported methods are safe for
// concurrent use with in-flight requests.
type Server struct {
	Engine *gin.Engine

	mu            sync.Mutex
	secret        []byte
	accessTTL     time.Duration
	users         map[string]string
	refreshTokens map[string]string
	revoked       map[string]bool
	revokeAll     bool

	applications  map[uint]application.Application
	interviews    map[uint]interview.Interview
	notifications map[uint]notification.Notification
	nextID        uint

	failures     map[string]failure
	refreshCalls int
	requestLog   map[string]int
}

type failure struct {
	status int
	count  int
}

func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Engine:        gin.New(),
		secret:        []byte(uuid.NewString()),
		accessTTL:     time.Hour,
		users:         map[string]string{},
		refreshTokens: map[string]string{},
		revoked:       map[string]bool{},
		applications:  map[uint]application.Application{},
		interviews:    map[uint]interview.Interview{},
		notifications: map[uint]notification.Notification{},
		failures:      map[string]failure{},
		requestLog:    map[string]int{},
		nextID:        1,
	}
	s.routes()
	return s
}

func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// InjectFailure makes the next count requests matching method and route
// pattern fail with the given status.
func (s *Server) InjectFailure(method, route string, status, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+route] = failure{status: status, count: count}
}

// RevokeAccessTokens invalidates every outstanding access token, so the
// next authenticated request gets a 401 and must refresh.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeAll = true
}

// RevokeRefreshTokens ends every session: refresh attempts fail too.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = map[string]string{}
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Requests returns how many times the method/route pair has been served.
func (s *Server) Requests(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestLog[method+" "+route]
}

// SeedNotification inserts a notification directly.
func (s *Server) SeedNotification(kind notification.Kind, message string, read bool) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.notifications[id] = notification.Notification{
		ID:        id,
		Kind:      kind,
		Message:   message,
		Read:      read,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

func (s *Server) routes() {
	s.Engine.Use(s.bookkeeping)

	api := s.Engine.Group("/api/v1")
	api.POST("/auth/login", s.login)
	api.POST("/auth/refresh", s.refresh)

	authed := api.Group("", s.requireAuth)
	authed.GET("/applications", s.listApplications)
	authed.POST("/applications", s.createApplication)
	authed.GET("/applications/:id", s.getApplication)
	authed.PUT("/applications/:id", s.updateApplication)
	authed.DELETE("/applications/:id", s.deleteApplication)
	authed.PATCH("/applications/:id/favorite", s.favoriteApplication)
	authed.GET("/applications/:id/interviews", s.listInterviews)
	authed.POST("/applications/:id/interviews", s.createInterview)
	authed.DELETE("/interviews/:id", s.deleteInterview)
	authed.GET("/notifications", s.listNotifications)
	authed.GET("/notifications/unread-count", s.unreadCount)
	authed.PATCH("/notifications/:id/read", s.markNotificationRead)
	authed.POST("/notifications/read-all", s.markAllNotificationsRead)
}

// bookkeeping counts requests and serves injected failures.
func (s *Server) bookkeeping(c *gin.Context) {
	key := c.Request.Method + " " + c.FullPath()
	s.mu.Lock()
	s.requestLog[key]++
	if f, ok := s.failures[key]; ok && f.count > 0 {
		f.count--
		if f.count == 0 {
			delete(s.failures, key)
		} else {
			s.failures[key] = f
		}
		s.mu.Unlock()
		c.AbortWithStatusJSON(f.status, errorBody{Message: "injected failure"})
		return
	}
	s.mu.Unlock()
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if password, ok := s.users[body.Email]; !ok || password != body.Password {
		c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, s.issueTokensLocked(body.Email))
}

func (s *Server) refresh(c *gin.Context) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	email, ok := s.refreshTokens[body.Refresh]
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid refresh token"})
		return
	}
	delete(s.refreshTokens, body.Refresh)
	c.JSON(http.StatusOK, s.issueTokensLocked(email))
}

func (s *Server) issueTokensLocked(email string) gin.H {
	s.revokeAll = false
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(s.accessTTL).Unix(),
		"jti": uuid.NewString(),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = email
	return gin.H{"access": access, "refresh": refresh}
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "missing bearer token"})
		return
	}
	raw := header[len(prefix):]

	s.mu.Lock()
	revoked := s.revokeAll || s.revoked[raw]
	s.mu.Unlock()
	if revoked {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "token revoked"})
		return
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "invalid token"})
		return
	}
	c.Next()
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listApplications(c *gin.Context) {
	status := c.Query("status")
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := make([]application.Application, 0, len(s.applications))
	for _, app := range s.applications {
		if status != "" && string(app.Status) != status {
			continue
		}
		app.InterviewCount = s.interviewCountLocked(app.ID)
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	c.JSON(http.StatusOK, page[application.Application]{Results: apps, Count: len(apps)})
}

func (s *Server) createApplication(c *gin.Context) {
	var input application.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	if input.CompanyName == "" || input.Title == "" {
		fields := map[string][]string{}
		if input.CompanyName == "" {
			fields["company_name"] = []string{"this field is required"}
		}
		if input.Title == "" {
			fields["title"] = []string{"this field is required"}
		}
		c.JSON(http.StatusBadRequest, errorBody{Message: "validation failed", FieldErrors: fields})
		return
	}
	status := application.StatusApplied
	if input.Status != "" {
		parsed, err := application.ParseStatus(input.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{
				Message:     "validation failed",
				FieldErrors: map[string][]string{"status": {"unknown status"}},
			})
			return
		}
		status = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	app := application.Application{
		ID:          s.nextID,
		CompanyID:   s.nextID,
		CompanyName: input.CompanyName,
		Title:       input.Title,
		Status:      status,
		URL:         input.URL,
		Location:    input.Location,
		SalaryMin:   input.SalaryMin,
		SalaryMax:   input.SalaryMax,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.applications[app.ID] = app
	c.JSON(http.StatusCreated, app)
}

func (s *Server) getApplication(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[id]
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "application not found"})
		return
	}
	app.InterviewCount = s.interviewCountLocked(id)
	c.JSON(http.StatusOK, app)
}

func (s *Server) updateApplication(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input application.UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[id]
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "application not found"})
		return
	}
	if input.Status != "" {
		parsed, err := application.ParseStatus(input.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Message: "unknown status"})
			return
		}
		app.Status = parsed
	}
	if input.Title != "" {
		app.Title = input.Title
	}
	app.URL = input.URL
	app.Location = input.Location
	app.SalaryMin = input.SalaryMin
	app.SalaryMax = input.SalaryMax
	app.UpdatedAt = time.Now().UTC()
	s.applications[id] = app
	app.InterviewCount = s.interviewCountLocked(id)
	c.JSON(http.StatusOK, app)
}

func (s *Server) deleteApplication(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[id]; !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "application not found"})
		return
	}
	delete(s.applications, id)
	for ivID, iv := range s.interviews {
		if iv.ApplicationID == id {
			delete(s.interviews, ivID)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) favoriteApplication(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body struct {
		Favorite bool `json:"favorite"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[id]
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "application not found"})
		return
	}
	app.Favorite = body.Favorite
	app.UpdatedAt = time.Now().UTC()
	s.applications[id] = app
	app.InterviewCount = s.interviewCountLocked(id)
	c.JSON(http.StatusOK, app)
}

func (s *Server) interviewCountLocked(applicationID uint) int {
	count := 0
	for _, iv := range s.interviews {
		if iv.ApplicationID == applicationID {
			count++
		}
	}
	return count
}

func (s *Server) listInterviews(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ivs := make([]interview.Interview, 0)
	for _, iv := range s.interviews {
		if iv.ApplicationID == id {
			ivs = append(ivs, iv)
		}
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].ID < ivs[j].ID })
	c.JSON(http.StatusOK, page[interview.Interview]{Results: ivs, Count: len(ivs)})
}

func (s *Server) createInterview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input interview.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
		return
	}
	kind, err := interview.ParseKind(input.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Message:     "validation failed",
			FieldErrors: map[string][]string{"kind": {"unknown interview kind"}},
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[id]; !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "application not found"})
		return
	}
	iv := interview.Interview{
		ID:            s.nextID,
		ApplicationID: id,
		Kind:          kind,
		ScheduledAt:   input.ScheduledAt,
		Interviewer:   input.Interviewer,
		Location:      input.Location,
		Notes:         input.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	s.nextID++
	s.interviews[iv.ID] = iv
	c.JSON(http.StatusCreated, iv)
}

func (s *Server) deleteInterview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.interviews[id]; !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "interview not found"})
		return
	}
	delete(s.interviews, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) listNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]notification.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if unreadOnly && n.Read {
			continue
		}
		items = append(items, n)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	c.JSON(http.StatusOK, page[notification.Notification]{Results: items, Count: len(items)})
}

func (s *Server) unreadCount(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Message: "notification not found"})
		return
	}
	n.Read = true
	s.notifications[id] = n
	c.Status(http.StatusNoContent)
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		n.Read = true
		s.notifications[id] = n
	}
	c.Status(http.StatusNoContent)
}

// Run starts the server on addr, for the standalone mockapi binary.
func (s *Server) Run(addr string) error {
	if addr == "" {
		addr = ":8081"
	}
	return s.Engine.Run(addr)
}
