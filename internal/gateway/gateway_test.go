package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"todosync/internal/backend/googletasks"
	"todosync/internal/cache"
	"todosync/internal/credstore"
	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
	"todosync/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)

type fixture struct {
	gw        *Gateway
	remote    *testutil.FakeRemote
	refresher *testutil.FakeRefresher
	kv        *kvstore.MemStore
	creds     *credstore.Store
	cache     *cache.Cache
}

func newFixture(t *testing.T, remote *testutil.FakeRemote) *fixture {
	t.Helper()
	kv := kvstore.NewMemStore()
	creds := credstore.New(kv, logging.Discard())
	require.NoError(t, creds.SaveToken(context.Background(), &oauth2.Token{AccessToken: "tok-1"}))

	refresher := &testutil.FakeRefresher{Token: "tok-2"}
	refresher.OnRefresh = func(ctx context.Context) error {
		return creds.SaveToken(ctx, &oauth2.Token{AccessToken: "tok-2"})
	}

	c := cache.New(kv, logging.Discard())
	gw := New(remote, creds, refresher, kv, c, WithClock(func() time.Time { return fixedNow }), WithLogger(logging.Discard()))
	return &fixture{gw: gw, remote: remote, refresher: refresher, kv: kv, creds: creds, cache: c}
}

func authErr() error {
	return service.AuthError("remote", assert.AnError)
}

func TestCreateThenList(t *testing.T) {
	f := newFixture(t, testutil.NewFakeRemote())
	ctx := context.Background()

	created, err := f.gw.Create(ctx, service.TaskPatch{Title: service.String("Buy milk")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)

	items, err := f.gw.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, "Buy milk", items[0].Title)
}

func TestCreate_SendsDueAtUTCMidnight(t *testing.T) {
	f := newFixture(t, testutil.NewFakeRemote())
	due := time.Date(2026, 10, 20, 23, 0, 0, 0, time.FixedZone("east", 5*3600))

	created, err := f.gw.Create(context.Background(), service.TaskPatch{
		Title: service.String("Report"),
		Notes: service.String("quarterly"),
		Due:   &due,
	})
	require.NoError(t, err)

	stored := f.remote.Tasks(testutil.DefaultListID)
	require.Len(t, stored, 1)
	assert.Equal(t, "2026-10-20T00:00:00Z", stored[0].Due)
	assert.Equal(t, "quarterly", stored[0].Notes)
	require.NotNil(t, created.Due)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), *created.Due)
}

func TestUpdate_CompletedRoundTrip(t *testing.T) {
	f := newFixture(t, testutil.NewFakeRemote())
	ctx := context.Background()

	created, err := f.gw.Create(ctx, service.TaskPatch{Title: service.String("Water plants")})
	require.NoError(t, err)

	done, err := f.gw.Update(ctx, created.ID, service.TaskPatch{Completed: service.Bool(true)})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)
	assert.Equal(t, "Water plants", done.Title, "omitted fields keep their values")

	items, err := f.gw.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Completed)

	reopened, err := f.gw.Update(ctx, created.ID, service.TaskPatch{Completed: service.Bool(false)})
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedAt)
	assert.Equal(t, service.StatusNeedsAction, f.remote.Tasks(testutil.DefaultListID)[0].Status)
}

func TestUpdate_UpdatedAtNonDecreasing(t *testing.T) {
	f := newFixture(t, testutil.NewFakeRemote())
	ctx := context.Background()

	created, err := f.gw.Create(ctx, service.TaskPatch{Title: service.String("a")})
	require.NoError(t, err)
	updated, err := f.gw.Update(ctx, created.ID, service.TaskPatch{Title: service.String("b")})
	require.NoError(t, err)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestDelete_AlreadyDeleted(t *testing.T) {
	remote := testutil.NewFakeRemote()
	keep := remote.AddTask(testutil.DefaultListID, "keep")
	gone := remote.AddTask(testutil.DefaultListID, "gone")
	f := newFixture(t, remote)
	ctx := context.Background()

	id, err := f.gw.Delete(ctx, gone)
	require.NoError(t, err)
	assert.Equal(t, gone, id)

	_, err = f.gw.Delete(ctx, gone)
	assert.ErrorIs(t, err, service.ErrNotFound)

	items, err := f.gw.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep, items[0].ID)
}

func TestAuthFailure_RefreshesOnceAndRetries(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.AddTask(testutil.DefaultListID, "a")
	f := newFixture(t, remote)
	remote.FailNext(testutil.OpListTasks, authErr())

	items, err := f.gw.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, f.refresher.Calls())
	assert.Equal(t, 2, remote.Calls(testutil.OpListTasks))

	tok, err := f.creds.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestAuthFailure_SecondFailureSurfaces(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	remote.FailNext(testutil.OpListTasks, authErr(), authErr())

	_, err := f.gw.List(context.Background())
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.Equal(t, 1, f.refresher.Calls())
	assert.Equal(t, 2, remote.Calls(testutil.OpListTasks))

	_, err = f.creds.Token(context.Background())
	assert.ErrorIs(t, err, service.ErrAuth, "credential is discarded")
	_, err = f.kv.Get(context.Background(), kvstore.KeyDefaultListID)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestAuthFailure_RefreshFails(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	f.refresher.Err = service.AuthError("refresh", assert.AnError)
	remote.FailNext(testutil.OpDeleteTask, authErr())

	ctx := context.Background()
	require.NoError(t, f.creds.SaveProfile(ctx, service.Profile{ID: "u1", Email: "u1@x.com"}))

	_, err := f.gw.Delete(ctx, "t1")
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.Equal(t, 1, remote.Calls(testutil.OpDeleteTask))

	_, err = f.creds.Token(ctx)
	assert.ErrorIs(t, err, service.ErrAuth)
	_, ok, err := f.creds.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Later calls fail on the precondition without reaching the remote.
	_, err = f.gw.List(ctx)
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.Zero(t, remote.Calls(testutil.OpListTasks))
}

func TestAuthFailure_RefreshUnreachableKeepsCredential(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	f.refresher.Err = service.NetworkError("refresh", assert.AnError)
	remote.FailNext(testutil.OpListTasks, authErr())

	_, err := f.gw.List(context.Background())
	assert.ErrorIs(t, err, service.ErrNetwork)
	assert.Equal(t, 1, remote.Calls(testutil.OpListTasks))

	tok, err := f.creds.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

// tasksAPI serves the list and task endpoints of the Tasks REST API and only
// authorizes one bearer token.
type tasksAPI struct {
	mu     sync.Mutex
	accept string
	auth   []string
}

func (a *tasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auth = append(a.auth, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer "+a.accept {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
		return
	}
	switch r.URL.Path {
	case "/tasks/v1/users/@me/lists":
		io.WriteString(w, `{"items":[{"id":"L1","title":"My Tasks"}]}`)
	case "/tasks/v1/lists/L1/tasks":
		io.WriteString(w, `{"items":[{"id":"a","title":"A","status":"needsAction","updated":"2026-10-17T10:00:00.000Z"}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"no route"}}`)
	}
}

func TestAuthFailure_GoogleAdapterRetriesWithRefreshedToken(t *testing.T) {
	ctx := context.Background()
	api := &tasksAPI{accept: "tok-2"}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	kv := kvstore.NewMemStore()
	creds := credstore.New(kv, logging.Discard())
	require.NoError(t, creds.SaveToken(ctx, &oauth2.Token{AccessToken: "tok-1"}))
	remote, err := googletasks.New(ctx, creds.TokenSource(ctx), 0, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	refresher := &testutil.FakeRefresher{Token: "tok-2"}
	refresher.OnRefresh = func(ctx context.Context) error {
		return creds.SaveToken(ctx, &oauth2.Token{AccessToken: "tok-2"})
	}
	gw := New(remote, creds, refresher, kv, cache.New(kv, logging.Discard()), WithLogger(logging.Discard()))

	items, err := gw.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Title)
	assert.Equal(t, 1, refresher.Calls())

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2", "Bearer tok-2"}, api.auth)
}

func TestNonAuthFailure_NotRetried(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	remote.FailNext(testutil.OpInsertTask, service.NetworkError("insert", assert.AnError))

	_, err := f.gw.Create(context.Background(), service.TaskPatch{Title: service.String("x")})
	assert.ErrorIs(t, err, service.ErrNetwork)
	assert.Equal(t, 0, f.refresher.Calls())
	assert.Equal(t, 1, remote.Calls(testutil.OpInsertTask))
}

func TestValidation_BeforeNetwork(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	ctx := context.Background()

	_, err := f.gw.Create(ctx, service.TaskPatch{})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = f.gw.Create(ctx, service.TaskPatch{Title: service.String("   ")})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = f.gw.Update(ctx, "t1", service.TaskPatch{Title: service.String("")})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = f.gw.Update(ctx, "", service.TaskPatch{Completed: service.Bool(true)})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = f.gw.Delete(ctx, "")
	assert.ErrorIs(t, err, service.ErrValidation)

	for _, op := range []string{testutil.OpListLists, testutil.OpInsertTask, testutil.OpUpdateTask, testutil.OpDeleteTask} {
		assert.Zero(t, remote.Calls(op), op)
	}
}

func TestNoToken_AuthErrorBeforeNetwork(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	require.NoError(t, f.creds.Clear(context.Background()))

	_, err := f.gw.List(context.Background())
	assert.ErrorIs(t, err, service.ErrAuth)
	assert.Zero(t, remote.Calls(testutil.OpListLists))
	assert.Zero(t, remote.Calls(testutil.OpListTasks))
	assert.Zero(t, f.refresher.Calls())
}

func TestDefaultList_Memoized(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.AddList("L2", "Work")
	f := newFixture(t, remote)
	ctx := context.Background()

	_, err := f.gw.List(ctx)
	require.NoError(t, err)
	_, err = f.gw.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.Calls(testutil.OpListLists))
	assert.Equal(t, testutil.DefaultListID, remote.LastListID)
	id, err := f.kv.Get(ctx, kvstore.KeyDefaultListID)
	require.NoError(t, err)
	assert.Equal(t, testutil.DefaultListID, id)

	require.NoError(t, f.gw.ClearDefaultList(ctx))
	_, err = f.gw.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.Calls(testutil.OpListLists))
}

func TestDefaultList_ZeroListsUsesPlaceholder(t *testing.T) {
	remote := testutil.NewEmptyFakeRemote()
	f := newFixture(t, remote)
	ctx := context.Background()

	items, err := f.gw.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, PlaceholderListID, remote.LastListID)

	_, err = f.kv.Get(ctx, kvstore.KeyDefaultListID)
	assert.ErrorIs(t, err, kvstore.ErrNotFound, "placeholder must not be memoized")

	_, err = f.gw.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.Calls(testutil.OpListLists))
}

func TestList_WritesCache(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.AddTask(testutil.DefaultListID, "cached")
	f := newFixture(t, remote)
	ctx := context.Background()

	_, err := f.gw.List(ctx)
	require.NoError(t, err)

	snapshot, ok := f.cache.Read(ctx)
	require.True(t, ok)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "cached", snapshot[0].Title)
}

func TestCreate_ResyncFailurePatchesCache(t *testing.T) {
	remote := testutil.NewFakeRemote()
	f := newFixture(t, remote)
	ctx := context.Background()
	require.NoError(t, f.cache.WriteAll(ctx, []service.Task{{ID: "old", Title: "old"}}))
	remote.FailNext(testutil.OpListTasks, service.NetworkError("list", assert.AnError))

	created, err := f.gw.Create(ctx, service.TaskPatch{Title: service.String("new")})
	require.NoError(t, err)

	snapshot, ok := f.cache.Read(ctx)
	require.True(t, ok)
	require.Len(t, snapshot, 2)
	assert.Equal(t, created.ID, snapshot[1].ID)
}

func TestDelete_ResyncFailureRemovesFromCache(t *testing.T) {
	remote := testutil.NewFakeRemote()
	a := remote.AddTask(testutil.DefaultListID, "a")
	b := remote.AddTask(testutil.DefaultListID, "b")
	f := newFixture(t, remote)
	ctx := context.Background()

	_, err := f.gw.List(ctx)
	require.NoError(t, err)
	remote.FailNext(testutil.OpListTasks, service.NetworkError("list", assert.AnError))

	_, err = f.gw.Delete(ctx, a)
	require.NoError(t, err)

	snapshot, ok := f.cache.Read(ctx)
	require.True(t, ok)
	require.Len(t, snapshot, 1)
	assert.Equal(t, b, snapshot[0].ID)
}

func TestToTask_Mapping(t *testing.T) {
	got := toTask(service.RemoteTask{
		ID:        "x",
		Title:     "T",
		Status:    service.StatusCompleted,
		Completed: "2026-10-16T08:00:00.000Z",
		Due:       "2026-10-20T00:00:00.000Z",
		Updated:   "2026-10-16T08:00:01.000Z",
	})
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Due)
	assert.Equal(t, 20, got.Due.Day())
	assert.Equal(t, got.UpdatedAt, got.CreatedAt)

	open := toTask(service.RemoteTask{ID: "y", Title: "U", Status: service.StatusNeedsAction, Due: "not a date"})
	assert.False(t, open.Completed)
	assert.Nil(t, open.Due)
	assert.True(t, open.UpdatedAt.IsZero())
}
