package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/task-service/internal/sdk/models"
	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/avatar"
	"github.com/taskhive/task-service/internal/services/hash"
	"github.com/taskhive/task-service/internal/services/jwt"
	"github.com/taskhive/task-service/internal/services/sentry"
)

// fakeStore is an in-memory sqldb.Service used by the handler tests.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]models.User
	tokens map[string][]string
	tasks  map[string]models.Task
	clock  time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]models.User),
		tokens: make(map[string][]string),
		tasks:  make(map[string]models.Task),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so default ordering is
// well-defined in tests.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Health() map[string]string {
	return map[string]string{"status": "up"}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) CreateUser(_ context.Context, nu models.NewUser) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == nu.Email {
			return models.User{}, sqldb.ErrDBDuplicatedEntry
		}
	}
	now := f.tick()
	user := models.User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		Password:  nu.Password,
		Age:       nu.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, sqldb.ErrDBNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, sqldb.ErrDBNotFound
}

func (f *fakeStore) UpdateUser(_ context.Context, userID string, upd models.UserUpdate) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, sqldb.ErrDBNotFound
	}
	if upd.Email != nil {
		for id, u := range f.users {
			if id != userID && u.Email == *upd.Email {
				return models.User{}, sqldb.ErrDBDuplicatedEntry
			}
		}
		user.Email = *upd.Email
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if len(upd.Password) > 0 {
		user.Password = upd.Password
	}
	if upd.Age != nil {
		user.Age = *upd.Age
	}
	user.UpdatedAt = f.tick()
	f.users[userID] = user
	return user, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return sqldb.ErrDBNotFound
	}
	for id, task := range f.tasks {
		if task.OwnerID == userID {
			delete(f.tasks, id)
		}
	}
	delete(f.tokens, userID)
	delete(f.users, userID)
	return nil
}

func (f *fakeStore) AddSessionToken(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeStore) GetUserBySessionToken(_ context.Context, userID, token string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, sqldb.ErrDBNotFound
	}
	for _, t := range f.tokens[userID] {
		if t == token {
			return user, nil
		}
	}
	return models.User{}, sqldb.ErrDBNotFound
}

func (f *fakeStore) DeleteSessionToken(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.tokens[userID][:0]
	for _, t := range f.tokens[userID] {
		if t != token {
			kept = append(kept, t)
		}
	}
	f.tokens[userID] = kept
	return nil
}

func (f *fakeStore) DeleteSessionTokens(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, userID)
	return nil
}

func (f *fakeStore) CreateTask(_ context.Context, nt models.NewTask) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	task := models.Task{
		ID:          uuid.New().String(),
		Description: nt.Description,
		Completed:   nt.Completed,
		OwnerID:     nt.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeStore) GetTask(_ context.Context, ownerID, taskID string) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return models.Task{}, sqldb.ErrDBNotFound
	}
	return task, nil
}

func (f *fakeStore) ListTasks(_ context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var tasks []models.Task
	for _, task := range f.tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		tasks = append(tasks, task)
	}

	less := func(a, b models.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch filter.SortBy {
	case "description":
		less = func(a, b models.Task) bool { return a.Description < b.Description }
	case "completed":
		less = func(a, b models.Task) bool { return !a.Completed && b.Completed }
	case "updatedAt":
		less = func(a, b models.Task) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if filter.SortDesc && taskSortColumnKnown(filter.SortBy) {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})

	if filter.Skip > 0 {
		if filter.Skip >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < len(tasks) {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

func taskSortColumnKnown(field string) bool {
	switch field {
	case "createdAt", "updatedAt", "description", "completed":
		return true
	}
	return false
}

func (f *fakeStore) UpdateTask(_ context.Context, ownerID, taskID string, upd models.TaskUpdate) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return models.Task{}, sqldb.ErrDBNotFound
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}
	task.UpdatedAt = f.tick()
	f.tasks[taskID] = task
	return task, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, ownerID, taskID string) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return models.Task{}, sqldb.ErrDBNotFound
	}
	delete(f.tasks, taskID)
	return task, nil
}

// fakeAvatars is an in-memory avatar.Store. Save runs the real
// normalization so invalid images are rejected like in production.
type fakeAvatars struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeAvatars() *fakeAvatars {
	return &fakeAvatars{blobs: make(map[string][]byte)}
}

func (f *fakeAvatars) Save(_ context.Context, userID string, data []byte) error {
	normalized, err := avatar.Normalize(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[userID] = normalized
	return nil
}

func (f *fakeAvatars) Get(_ context.Context, userID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[userID]
	if !ok {
		return nil, avatar.ErrNotFound
	}
	return data, nil
}

func (f *fakeAvatars) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, userID)
	return nil
}

// fakeMailer records lifecycle emails instead of sending them.
type fakeMailer struct {
	mu       sync.Mutex
	welcomed []string
	goodbyed []string
}

func (f *fakeMailer) SendWelcome(toEmail, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomed = append(f.welcomed, toEmail)
	return nil
}

func (f *fakeMailer) SendGoodbye(toEmail, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goodbyed = append(f.goodbyed, toEmail)
	return nil
}

type testEnv struct {
	store   *fakeStore
	avatars *fakeAvatars
	mailer  *fakeMailer
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewTokenService("test-secret", "test")
	require.NoError(t, err)

	env := &testEnv{
		store:   newFakeStore(),
		avatars: newFakeAvatars(),
		mailer:  &fakeMailer{},
	}
	a := NewApp(env.store, tokens, hash.NewHashService(), env.avatars, env.mailer, &sentry.SentryService{})
	env.router = RegisterRoutes(a)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// doRawAuth sends a request with a verbatim Authorization header value.
func (e *testEnv) doRawAuth(t *testing.T, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", authorization)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register creates an account and returns the parsed auth response.
func (e *testEnv) register(t *testing.T, name, email, password string) AuthResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/user", "", RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

// createTask creates a task for the given session token.
func (e *testEnv) createTask(t *testing.T, token, description string, completed bool) models.Task {
	t.Helper()
	w := e.do(t, http.MethodPost, "/task", token, CreateTaskRequest{
		Description: description,
		Completed:   completed,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

// multipartUpload posts a multipart body with a single "avatar" file.
func (e *testEnv) multipartUpload(t *testing.T, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/user/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.New().String()[:8])
}
