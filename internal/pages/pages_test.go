package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/config"
	"github.com/ashureev/scripture-chat/internal/domain"
	"github.com/ashureev/scripture-chat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	mu         sync.Mutex
	next       int
	createErr  error
	deleteErrs map[string]error
	deleted    []string
}

func (s *stubClient) CreateAgent(context.Context, agent.CreateAgentRequest) (*agent.CreateAgentResponse, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("agent-%d", s.next)
	return &agent.CreateAgentResponse{AgentID: id, Raw: []byte(`{"agent_id":"` + id + `"}`)}, nil
}

func (s *stubClient) Chat(_ context.Context, req agent.ChatRequest) (*agent.ChatResponse, error) {
	return &agent.ChatResponse{Response: "echo " + req.Message, Raw: []byte(`{}`)}, nil
}

func (s *stubClient) DeleteObject(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErrs[id]; err != nil {
		return "", err
	}
	s.deleted = append(s.deleted, id)
	return "deleted", nil
}

func (s *stubClient) deletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testPersona() config.Persona {
	return config.Persona{
		Name:          "Helper",
		Instructions:  "Help.",
		Greeting:      "Hi there",
		InitErrorText: "init failed",
		TurnErrorText: "turn failed",
	}
}

func newTestRegistry(client agent.Client, clock *fakeClock) *Registry {
	return NewRegistry(Options{
		Client:  client,
		Persona: testPersona(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     clock.Now,
	})
}

func TestOpenInitializesPage(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&stubClient{}, &fakeClock{now: time.Unix(1000, 0)})
	w := reg.Open(context.Background())

	assert.True(t, w.Session().IsReady())
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get(w.ID())
	require.NoError(t, err)
	assert.Same(t, w, got)
}

func TestOpenKeepsPageWhenInitializationFails(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&stubClient{createErr: errors.New("boom")}, &fakeClock{now: time.Unix(1000, 0)})
	w := reg.Open(context.Background())

	assert.Equal(t, domain.SessionFailed, w.Session().Status)
	msgs := w.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleSystemError, msgs[0].Role)
	assert.Equal(t, "init failed", msgs[0].Content)
	assert.Equal(t, 1, reg.Len())
}

func TestPagesAreIsolated(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&stubClient{}, &fakeClock{now: time.Unix(1000, 0)})
	a := reg.Open(context.Background())
	b := reg.Open(context.Background())
	require.NotEqual(t, a.ID(), b.ID())
	require.NotEqual(t, a.Session().AgentID, b.Session().AgentID)

	require.True(t, a.Submit(context.Background(), "only on a"))
	assert.Len(t, a.Messages(), 3)
	assert.Len(t, b.Messages(), 1)
}

func TestGetUnknownPage(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&stubClient{}, &fakeClock{now: time.Unix(1000, 0)})
	_, err := reg.Get("page_missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestCloseDeletesAgentAndForgetsPage(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	reg := newTestRegistry(client, &fakeClock{now: time.Unix(1000, 0)})
	w := reg.Open(context.Background())
	agentID := w.Session().AgentID

	result, err := reg.Close(context.Background(), w.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []string{agentID}, client.deletedIDs())
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Close(context.Background(), w.ID())
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestCloseWithCancelledContextStillDeletesAgent(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	reg := newTestRegistry(client, &fakeClock{now: time.Unix(1000, 0)})
	w := reg.Open(context.Background())
	agentID := w.Session().AgentID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := reg.Close(ctx, w.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []string{agentID}, client.deletedIDs())
}

func TestExpireRemovesIdlePagesOnly(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	reg := newTestRegistry(client, clock)

	idle := reg.Open(context.Background())
	idleAgent := idle.Session().AgentID
	clock.Advance(30 * time.Minute)
	active := reg.Open(context.Background())
	clock.Advance(20 * time.Minute)
	_, err := reg.Get(active.ID())
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)

	n := reg.Expire(context.Background(), time.Hour)
	assert.Equal(t, 1, n)

	_, err = reg.Get(idle.ID())
	assert.ErrorIs(t, err, ErrPageNotFound)
	_, err = reg.Get(active.ID())
	assert.NoError(t, err)
	assert.Equal(t, []string{idleAgent}, client.deletedIDs())
	assert.Equal(t, domain.SessionUninitialized, idle.Session().Status)
}

func TestCloseAll(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	reg := newTestRegistry(client, &fakeClock{now: time.Unix(1000, 0)})
	reg.Open(context.Background())
	reg.Open(context.Background())

	assert.Equal(t, 2, reg.CloseAll(context.Background()))
	assert.Equal(t, 0, reg.Len())
	assert.Len(t, client.deletedIDs(), 2)
}

func TestRunTTLWorkerStopsOnCancel(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&stubClient{}, &fakeClock{now: time.Unix(1000, 0)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunTTLWorker(ctx, reg, time.Hour, 10*time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("TTL worker did not stop")
	}
}

type fakeOrphanJournal struct {
	objects   []store.PageObject
	listErr   error
	untracked map[string][]string
}

func (f *fakeOrphanJournal) ListAllObjects(context.Context) ([]store.PageObject, error) {
	return f.objects, f.listErr
}

func (f *fakeOrphanJournal) UntrackObjects(_ context.Context, pageID string, objectIDs []string) error {
	if f.untracked == nil {
		f.untracked = make(map[string][]string)
	}
	f.untracked[pageID] = append(f.untracked[pageID], objectIDs...)
	return nil
}

func TestSweepOrphansKeepsFailedDeletionsJournaled(t *testing.T) {
	t.Parallel()

	client := &stubClient{deleteErrs: map[string]error{"agent-b": errors.New("gone")}}
	journal := &fakeOrphanJournal{objects: []store.PageObject{
		{PageID: "page_1", Ref: domain.CreatedObjectRef{Type: domain.ObjectTypeAgent, ID: "agent-a"}},
		{PageID: "page_2", Ref: domain.CreatedObjectRef{Type: domain.ObjectTypeAgent, ID: "agent-b"}},
		{PageID: "page_2", Ref: domain.CreatedObjectRef{Type: "file", ID: "file-1"}},
	}}

	result, err := SweepOrphans(context.Background(), client, journal, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"agent-b"}, result.FailedIDs)
	assert.Equal(t, []string{"agent-a"}, client.deletedIDs())
	assert.Equal(t, map[string][]string{
		"page_1": {"agent-a"},
		"page_2": {"file-1"},
	}, journal.untracked)
}

func TestSweepOrphansIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	journal := &fakeOrphanJournal{objects: []store.PageObject{
		{PageID: "page_1", Ref: domain.CreatedObjectRef{Type: domain.ObjectTypeAgent, ID: "agent-a"}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := SweepOrphans(ctx, client, journal, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, []string{"agent-a"}, client.deletedIDs())
	assert.Equal(t, map[string][]string{"page_1": {"agent-a"}}, journal.untracked)
}

func TestSweepOrphansListError(t *testing.T) {
	t.Parallel()

	journal := &fakeOrphanJournal{listErr: errors.New("db down")}
	_, err := SweepOrphans(context.Background(), &stubClient{}, journal, nil)
	require.Error(t, err)
	assert.Empty(t, journal.untracked)
}
