package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeno035/todo-list-sync-client/models"
	"github.com/xeno035/todo-list-sync-client/session"
)

// fakeAPI is a scripted TaskAPI double counting how often each operation is
// hit.
type fakeAPI struct {
	listTasks []models.Task
	listErr   error
	created   *models.Task
	createErr error
	updated   *models.Task
	updateErr error
	deleteErr error
	shareErr  error
	stats     *models.TaskStats
	statsErr  error

	calls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) List(ctx context.Context) ([]models.Task, error) {
	f.calls["list"]++
	return f.listTasks, f.listErr
}

func (f *fakeAPI) Get(ctx context.Context, id string) (*models.Task, error) {
	f.calls["get"]++
	for i := range f.listTasks {
		if f.listTasks[i].ID == id {
			return &f.listTasks[i], nil
		}
	}
	return nil, &models.NotFoundError{Resource: "task", ID: id}
}

func (f *fakeAPI) Create(ctx context.Context, draft models.TaskDraft) (*models.Task, error) {
	f.calls["create"]++
	return f.created, f.createErr
}

func (f *fakeAPI) Update(ctx context.Context, id string, draft models.TaskDraft) (*models.Task, error) {
	f.calls["update"]++
	return f.updated, f.updateErr
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	f.calls["delete"]++
	return f.deleteErr
}

func (f *fakeAPI) Share(ctx context.Context, id, email string) error {
	f.calls["share"]++
	return f.shareErr
}

func (f *fakeAPI) Stats(ctx context.Context) (*models.TaskStats, error) {
	f.calls["stats"]++
	return f.stats, f.statsErr
}

func testIdentity() *session.Identity {
	s := &models.Session{UID: "user-1", Email: "me@example.com", Name: "Me"}
	return session.NewIdentity(s, session.StaticTokenSource("test-token"))
}

func dueIn(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}

func sampleTask(id, title string) models.Task {
	return models.Task{
		ID:        id,
		Title:     title,
		DueDate:   dueIn(3),
		Priority:  models.PriorityMedium,
		Status:    models.StatusPending,
		CreatedBy: "user-1",
		CreatedAt: time.Now().UTC(),
	}
}

func TestRefresh_ReplacesCollectionWholesale(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "first"), sampleTask("b", "second")}
	s := NewTaskStore(api, testIdentity())

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 2, s.Len())

	// A second refresh replaces, it does not merge.
	api.listTasks = []models.Task{sampleTask("c", "third")}
	require.NoError(t, s.Refresh(context.Background()))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "c", tasks[0].ID)
}

func TestRefresh_FailureLeavesPriorCollection(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "first")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	api.listErr = &models.NetworkError{Op: "list tasks", Err: errors.New("connection refused")}
	err := s.Refresh(context.Background())

	var netErr *models.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Len(t, s.Tasks(), 1, "failed refresh must not touch the collection")
	assert.Equal(t, "a", s.Tasks()[0].ID)
}

func TestCreate_FailsFastOnInvalidDraft(t *testing.T) {
	tests := []struct {
		name  string
		draft models.TaskDraft
	}{
		{name: "empty title", draft: models.TaskDraft{Title: "", DueDate: dueIn(1)}},
		{name: "whitespace title", draft: models.TaskDraft{Title: "   ", DueDate: dueIn(1)}},
		{name: "missing due date", draft: models.TaskDraft{Title: "valid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			s := NewTaskStore(api, testIdentity())

			_, err := s.Create(context.Background(), tt.draft)

			var valErr *models.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Zero(t, api.calls["create"], "invalid draft must not reach the network")
		})
	}
}

func TestCreate_MergesServerResponseByAssignedID(t *testing.T) {
	api := newFakeAPI()
	created := sampleTask("server-id", "from server")
	api.created = &created
	s := NewTaskStore(api, testIdentity())

	task, err := s.Create(context.Background(), models.TaskDraft{Title: "from server", DueDate: dueIn(1)})
	require.NoError(t, err)
	assert.Equal(t, "server-id", task.ID)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, created, tasks[0])
}

func TestUpdate_TakesServerResponseNotPatch(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "old title")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	// The server normalizes the title; the local entry must show the server's
	// version, not the submitted one.
	serverTask := sampleTask("a", "normalized title")
	api.updated = &serverTask

	_, err := s.Update(context.Background(), "a", models.TaskDraft{Title: "submitted title", DueDate: dueIn(1)})
	require.NoError(t, err)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "normalized title", tasks[0].Title)
}

func TestUpdate_NotFoundSurfaces(t *testing.T) {
	api := newFakeAPI()
	api.updateErr = &models.NotFoundError{Resource: "task", ID: "gone"}
	s := NewTaskStore(api, testIdentity())

	_, err := s.Update(context.Background(), "gone", models.TaskDraft{Title: "x", DueDate: dueIn(1)})

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRemove_EvictsAfterRemoteConfirmation(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "one"), sampleTask("b", "two")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Remove(context.Background(), "a"))
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "b", tasks[0].ID)
}

func TestRemove_FailureKeepsTask(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "one")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	api.deleteErr = &models.NetworkError{Op: "delete task", Err: errors.New("timeout")}
	err := s.Remove(context.Background(), "a")

	require.Error(t, err)
	assert.Equal(t, 1, s.Len(), "failed delete must not evict locally")
}

func TestShare_DoesNotMutateLocalCollaborators(t *testing.T) {
	api := newFakeAPI()
	task := sampleTask("a", "shared one")
	api.listTasks = []models.Task{task}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Share(context.Background(), "a", "x@example.com"))

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Collaborators, "collaborators update only via refresh or push")
	assert.Equal(t, 1, api.calls["share"])
}

func TestShare_EmptyEmailFailsLocally(t *testing.T) {
	api := newFakeAPI()
	s := NewTaskStore(api, testIdentity())

	err := s.Share(context.Background(), "a", "  ")

	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Zero(t, api.calls["share"])
}

func TestApplyRemoteEvent_UpsertIsIdempotent(t *testing.T) {
	s := NewTaskStore(newFakeAPI(), testIdentity())
	task := sampleTask("a", "pushed")
	event := models.TaskEvent{Kind: models.EventTaskCreated, Task: task}

	s.ApplyRemoteEvent(event)
	once := s.Tasks()

	// Duplicate push delivery of the same event.
	s.ApplyRemoteEvent(event)
	twice := s.Tasks()

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, s.Len())
}

func TestApplyRemoteEvent_UpdatedReplacesInPlace(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "one"), sampleTask("b", "two")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	changed := sampleTask("b", "two, renamed")
	s.ApplyRemoteEvent(models.TaskEvent{Kind: models.EventTaskUpdated, Task: changed})

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID, "replace must not reorder")
	assert.Equal(t, "two, renamed", tasks[1].Title)
}

func TestApplyRemoteEvent_SharedPrependsNewTask(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "mine")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	shared := sampleTask("b", "shared with me")
	shared.CreatedBy = "user-2"
	s.ApplyRemoteEvent(models.TaskEvent{Kind: models.EventTaskShared, Task: shared})

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0].ID, "newly shared tasks appear first")
	assert.Equal(t, "a", tasks[1].ID)
}

func TestApplyRemoteEvent_DeleteAbsentIsNoOp(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "one")}
	s := NewTaskStore(api, testIdentity())
	require.NoError(t, s.Refresh(context.Background()))

	notified := 0
	defer s.Subscribe(func() { notified++ })()

	s.ApplyRemoteEvent(models.TaskEvent{Kind: models.EventTaskDeleted, Task: models.Task{ID: "missing"}})
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, notified, "a no-op must not fire listeners")

	s.ApplyRemoteEvent(models.TaskEvent{Kind: models.EventTaskDeleted, Task: models.Task{ID: "a"}})
	assert.Zero(t, s.Len())
	assert.Equal(t, 1, notified)
}

func TestMissingSessionGatesOperations(t *testing.T) {
	api := newFakeAPI()
	identity := testIdentity()
	identity.SignOut()
	s := NewTaskStore(api, identity)

	var authErr *models.AuthorizationError
	require.ErrorAs(t, s.Refresh(context.Background()), &authErr)
	_, err := s.Create(context.Background(), models.TaskDraft{Title: "t", DueDate: dueIn(1)})
	require.ErrorAs(t, err, &authErr)

	assert.Empty(t, api.calls, "no session means no network calls at all")
}

func TestSubscribe_NotifiesAndUnsubscribes(t *testing.T) {
	api := newFakeAPI()
	api.listTasks = []models.Task{sampleTask("a", "one")}
	s := NewTaskStore(api, testIdentity())

	notified := 0
	unsubscribe := s.Subscribe(func() { notified++ })

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 1, notified)

	unsubscribe()
	unsubscribe() // safe twice
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 1, notified)
}

func TestRemoteStats_PassesThrough(t *testing.T) {
	api := newFakeAPI()
	api.stats = &models.TaskStats{Total: 5, Completed: 2, Pending: 3, Overdue: 1}
	s := NewTaskStore(api, testIdentity())

	stats, err := s.RemoteStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
}
