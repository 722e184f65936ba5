package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/chepyr/go-kanban/internal/db"
	"github.com/chepyr/go-kanban/internal/models"
	"github.com/chepyr/go-kanban/internal/ordering"
	"github.com/chepyr/go-kanban/internal/store"
)

// failingStore wraps a real store and makes subtask inserts inside
// transactions fail while failSubtasks is set.
type failingStore struct {
	store.Store
	failSubtasks bool
}

func (f *failingStore) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.Transaction(ctx, func(tx store.Tx) error {
		return fn(failingTx{Tx: tx, fail: f.failSubtasks})
	})
}

type failingTx struct {
	store.Tx
	fail bool
}

func (t failingTx) Subtasks() store.Subtasks {
	return failingSubtasks{Subtasks: t.Tx.Subtasks(), fail: t.fail}
}

type failingSubtasks struct {
	store.Subtasks
	fail bool
}

func (f failingSubtasks) Create(ctx context.Context, s *models.Subtask) error {
	if f.fail {
		return errors.New("disk I/O error")
	}
	return f.Subtasks.Create(ctx, s)
}

type countingCache struct {
	views       map[uuid.UUID]*models.BoardView
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{views: map[uuid.UUID]*models.BoardView{}}
}

func (c *countingCache) Get(_ context.Context, id uuid.UUID) (*models.BoardView, bool) {
	v, ok := c.views[id]
	return v, ok
}

func (c *countingCache) Set(_ context.Context, v *models.BoardView) { c.views[v.Board.ID] = v }

func (c *countingCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.invalidated++
	delete(c.views, id)
}

type env struct {
	ctx    context.Context
	store  *failingStore
	svc    *Service
	hook   *test.Hook
	spans  *tracetest.SpanRecorder
	cache  *countingCache
	author uuid.UUID
	board  *models.Board
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	cache := newCountingCache()

	st := &failingStore{Store: db.NewStore(conn)}
	svc := New(st, WithLogger(logger), WithTracerProvider(tp), WithCache(cache))

	author := uuid.New()
	board, err := svc.CreateBoard(ctx, author, BoardInput{Title: "Roadmap"})
	require.NoError(t, err)

	return &env{ctx: ctx, store: st, svc: svc, hook: hook, spans: spans, cache: cache, author: author, board: board}
}

func (e *env) createTask(t *testing.T, title string, status models.TaskStatus, subtasks ...string) *models.TaskDetails {
	t.Helper()
	details, err := e.svc.CreateTask(e.ctx, e.author, TaskInput{
		BoardID: e.board.ID, Title: title, Status: status, Subtasks: subtasks,
	})
	require.NoError(t, err)
	return details
}

func (e *env) column(t *testing.T, status models.TaskStatus) []string {
	t.Helper()
	tasks, err := e.store.Tasks().ListColumn(e.ctx, e.board.ID, status)
	require.NoError(t, err)
	titles := make([]string, 0, len(tasks))
	for i, task := range tasks {
		require.Equal(t, i, task.Order, "column %s is not dense", status)
		titles = append(titles, task.Title)
	}
	return titles
}

func ptr[T any](v T) *T { return &v }

func TestCreateTask_AppendsToColumn(t *testing.T) {
	e := setup(t)

	first := e.createTask(t, "first", "")
	second := e.createTask(t, "second", models.TaskStatusToDo)
	other := e.createTask(t, "other", models.TaskStatusDone)

	assert.Equal(t, models.TaskStatusToDo, first.Status)
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)
	assert.Equal(t, 0, other.Order)
	assert.Equal(t, e.author, first.AuthorID)
}

func TestCreateTask_WithSubtasks(t *testing.T) {
	e := setup(t)

	details := e.createTask(t, "task", models.TaskStatusToDo, "a", " b ", "c")

	require.Len(t, details.Subtasks, 3)
	for i, s := range details.Subtasks {
		assert.Equal(t, i, s.Order)
	}
	assert.Equal(t, "b", details.Subtasks[1].Description)

	got, err := e.svc.GetTask(e.ctx, e.author, details.ID)
	require.NoError(t, err)
	assert.Len(t, got.Subtasks, 3)
}

func TestCreateTask_Validation(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name string
		in   TaskInput
	}{
		{"empty title", TaskInput{BoardID: e.board.ID, Title: "  "}},
		{"bad status", TaskInput{BoardID: e.board.ID, Title: "t", Status: "blocked"}},
		{"blank subtask", TaskInput{BoardID: e.board.ID, Title: "t", Subtasks: []string{"ok", ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CreateTask(e.ctx, e.author, tt.in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	assert.Empty(t, e.column(t, models.TaskStatusToDo))
}

func TestCreateTask_NotAMember(t *testing.T) {
	e := setup(t)

	_, err := e.svc.CreateTask(e.ctx, uuid.New(), TaskInput{BoardID: e.board.ID, Title: "t"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = e.svc.CreateTask(e.ctx, e.author, TaskInput{BoardID: uuid.New(), Title: "t"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateTask_PartialFailure(t *testing.T) {
	e := setup(t)
	e.store.failSubtasks = true

	details, err := e.svc.CreateTask(e.ctx, e.author, TaskInput{
		BoardID: e.board.ID, Title: "half done", Subtasks: []string{"a", "b"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrPartialFailure)
	assert.ErrorIs(t, err, models.ErrStoreFailure)
	var pf *models.PartialFailureError
	require.ErrorAs(t, err, &pf)

	require.NotNil(t, details)
	assert.Equal(t, pf.TaskID, details.ID)
	assert.Empty(t, details.Subtasks)

	e.store.failSubtasks = false
	stored, err := e.svc.GetTask(e.ctx, e.author, details.ID)
	require.NoError(t, err)
	assert.Equal(t, "half done", stored.Title)
	assert.Empty(t, stored.Subtasks)

	var warned bool
	for _, entry := range e.hook.AllEntries() {
		if entry.Level == log.WarnLevel && entry.Data["task"] == details.ID {
			warned = true
		}
	}
	assert.True(t, warned, "partial failure should be logged")
}

func TestEditTask_Errors(t *testing.T) {
	e := setup(t)
	task := e.createTask(t, "task", models.TaskStatusToDo)

	_, err := e.svc.EditTask(e.ctx, e.author, task.ID, TaskEdit{})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.svc.EditTask(e.ctx, e.author, uuid.New(), TaskEdit{Title: ptr("x")})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = e.svc.EditTask(e.ctx, uuid.New(), task.ID, TaskEdit{Title: ptr("x")})
	assert.ErrorIs(t, err, models.ErrForbidden)

	bad := models.TaskStatus("archived")
	_, err = e.svc.EditTask(e.ctx, e.author, task.ID, TaskEdit{Status: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestEditTask_Fields(t *testing.T) {
	e := setup(t)
	task := e.createTask(t, "task", models.TaskStatusToDo)

	got, err := e.svc.EditTask(e.ctx, e.author, task.ID, TaskEdit{
		Title:       ptr(" renamed "),
		Description: ptr("details"),
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "details", got.Description)
	assert.Equal(t, 0, got.Order)
	assert.Equal(t, models.TaskStatusToDo, got.Status)
}

func TestEditTask_SameColumnMove(t *testing.T) {
	e := setup(t)
	e.createTask(t, "A", models.TaskStatusToDo)
	e.createTask(t, "B", models.TaskStatusToDo)
	c := e.createTask(t, "C", models.TaskStatusToDo)

	got, err := e.svc.EditTask(e.ctx, e.author, c.ID, TaskEdit{Order: ptr(0)})
	require.NoError(t, err)

	assert.Equal(t, 0, got.Order)
	assert.Equal(t, []string{"C", "A", "B"}, e.column(t, models.TaskStatusToDo))
}

func TestEditTask_StatusChangeAppends(t *testing.T) {
	e := setup(t)
	e.createTask(t, "A", models.TaskStatusToDo)
	b := e.createTask(t, "B", models.TaskStatusToDo)
	e.createTask(t, "C", models.TaskStatusToDo)
	e.createTask(t, "X", models.TaskStatusInProgress)

	got, err := e.svc.EditTask(e.ctx, e.author, b.ID, TaskEdit{Status: ptr(models.TaskStatusInProgress)})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusInProgress, got.Status)
	assert.Equal(t, 1, got.Order)
	assert.Equal(t, []string{"A", "C"}, e.column(t, models.TaskStatusToDo))
	assert.Equal(t, []string{"X", "B"}, e.column(t, models.TaskStatusInProgress))
}

func TestEditTask_StatusChangeWithOrder(t *testing.T) {
	e := setup(t)
	a := e.createTask(t, "A", models.TaskStatusToDo)
	e.createTask(t, "X", models.TaskStatusDone)
	e.createTask(t, "Y", models.TaskStatusDone)

	got, err := e.svc.EditTask(e.ctx, e.author, a.ID, TaskEdit{
		Status: ptr(models.TaskStatusDone),
		Order:  ptr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, got.Order)
	assert.Empty(t, e.column(t, models.TaskStatusToDo))
	assert.Equal(t, []string{"A", "X", "Y"}, e.column(t, models.TaskStatusDone))
}

func TestEditTask_Subtasks(t *testing.T) {
	e := setup(t)
	task := e.createTask(t, "task", models.TaskStatusToDo, "one", "two", "three")
	one, two := task.Subtasks[0], task.Subtasks[1]

	got, err := e.svc.EditTask(e.ctx, e.author, task.ID, TaskEdit{
		Subtasks: []ordering.SubtaskInput{
			{ID: &one.ID, Finished: ptr(true)},
			{ID: &two.ID, Description: ptr("ignored")},
			{Description: ptr("four")},
		},
		SubtasksToRemove: []uuid.UUID{two.ID},
	})
	require.NoError(t, err)

	require.Len(t, got.Subtasks, 3)
	var descs []string
	for i, s := range got.Subtasks {
		assert.Equal(t, i, s.Order)
		descs = append(descs, s.Description)
	}
	assert.Equal(t, []string{"one", "three", "four"}, descs)
	assert.True(t, got.Subtasks[0].Finished)
}

func TestEditTask_IsAtomic(t *testing.T) {
	e := setup(t)
	e.createTask(t, "A", models.TaskStatusToDo)
	b := e.createTask(t, "B", models.TaskStatusToDo, "sub")

	_, err := e.svc.EditTask(e.ctx, e.author, b.ID, TaskEdit{
		Title:    ptr("renamed"),
		Status:   ptr(models.TaskStatusDone),
		Subtasks: []ordering.SubtaskInput{{Finished: ptr(true)}},
	})
	require.ErrorIs(t, err, models.ErrValidation)

	got, err := e.svc.GetTask(e.ctx, e.author, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)
	assert.Equal(t, models.TaskStatusToDo, got.Status)
	assert.Equal(t, []string{"A", "B"}, e.column(t, models.TaskStatusToDo))
	assert.Len(t, got.Subtasks, 1)
}

func TestDeleteTask_CompactsColumn(t *testing.T) {
	e := setup(t)
	e.createTask(t, "A", models.TaskStatusToDo)
	b := e.createTask(t, "B", models.TaskStatusToDo, "sub")
	e.createTask(t, "C", models.TaskStatusToDo)

	require.NoError(t, e.svc.DeleteTask(e.ctx, e.author, b.ID))

	assert.Equal(t, []string{"A", "C"}, e.column(t, models.TaskStatusToDo))
	_, err := e.svc.GetTask(e.ctx, e.author, b.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteTask(e.ctx, e.author, b.ID), models.ErrNotFound)
}

func TestBoards_Lifecycle(t *testing.T) {
	e := setup(t)
	member := uuid.New()

	boards, err := e.svc.ListBoards(e.ctx, e.author)
	require.NoError(t, err)
	require.Len(t, boards, 1)

	_, err = e.svc.GetBoard(e.ctx, member, e.board.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, e.svc.AddMember(e.ctx, e.author, e.board.ID, member))
	assert.ErrorIs(t, e.svc.AddMember(e.ctx, e.author, e.board.ID, member), models.ErrConflict)

	view, err := e.svc.GetBoard(e.ctx, member, e.board.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{e.author, member}, view.Members)

	assert.ErrorIs(t, e.svc.RemoveMember(e.ctx, member, e.board.ID, e.author), models.ErrForbidden)
	assert.ErrorIs(t, e.svc.DeleteBoard(e.ctx, member, e.board.ID), models.ErrForbidden)

	require.NoError(t, e.svc.DeleteBoard(e.ctx, e.author, e.board.ID))
	_, err = e.svc.GetBoard(e.ctx, e.author, e.board.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateBoard_Validation(t *testing.T) {
	e := setup(t)

	_, err := e.svc.CreateBoard(e.ctx, e.author, BoardInput{Title: ""})
	assert.ErrorIs(t, err, models.ErrValidation)

	long := make([]byte, maxBoardDescriptionLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = e.svc.CreateBoard(e.ctx, e.author, BoardInput{Title: "ok", Description: string(long)})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGetBoard_ColumnsAndCache(t *testing.T) {
	e := setup(t)
	e.createTask(t, "A", models.TaskStatusToDo)
	e.createTask(t, "B", models.TaskStatusDone)

	view, err := e.svc.GetBoard(e.ctx, e.author, e.board.ID)
	require.NoError(t, err)
	require.Len(t, view.Columns, 3)
	assert.Equal(t, models.TaskStatusToDo, view.Columns[0].Status)
	assert.Len(t, view.Columns[0].Tasks, 1)
	assert.Empty(t, view.Columns[1].Tasks)
	assert.Len(t, view.Columns[2].Tasks, 1)

	cached, err := e.svc.GetBoard(e.ctx, e.author, e.board.ID)
	require.NoError(t, err)
	assert.Same(t, view, cached)

	before := e.cache.invalidated
	e.createTask(t, "C", models.TaskStatusToDo)
	assert.Greater(t, e.cache.invalidated, before)

	fresh, err := e.svc.GetBoard(e.ctx, e.author, e.board.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Columns[0].Tasks, 2)
}

func TestAssignUser(t *testing.T) {
	e := setup(t)
	task := e.createTask(t, "task", models.TaskStatusToDo)
	member := uuid.New()

	err := e.svc.AssignUser(e.ctx, e.author, task.ID, member)
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, e.svc.AddMember(e.ctx, e.author, e.board.ID, member))
	require.NoError(t, e.svc.AssignUser(e.ctx, e.author, task.ID, member))

	got, err := e.svc.GetTask(e.ctx, e.author, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{member}, got.Assignees)

	require.NoError(t, e.svc.RemoveMember(e.ctx, e.author, e.board.ID, member))
	got, err = e.svc.GetTask(e.ctx, e.author, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Assignees)

	assert.ErrorIs(t, e.svc.UnassignUser(e.ctx, e.author, task.ID, member), models.ErrNotFound)
}

func TestTracing_RecordsSpans(t *testing.T) {
	e := setup(t)
	task := e.createTask(t, "task", models.TaskStatusToDo)
	_, err := e.svc.EditTask(e.ctx, e.author, task.ID, TaskEdit{})
	require.Error(t, err)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range e.spans.Ended() {
		byName[s.Name()] = s
	}
	require.Contains(t, byName, "boards.create")
	require.Contains(t, byName, "tasks.create")
	require.Contains(t, byName, "tasks.edit")

	assert.Equal(t, codes.Unset, byName["tasks.create"].Status().Code)
	assert.Equal(t, codes.Error, byName["tasks.edit"].Status().Code)
}

func TestStoreErr(t *testing.T) {
	err := storeErr("op", errors.New("connection reset"))
	assert.ErrorIs(t, err, models.ErrStoreFailure)
	assert.Contains(t, err.Error(), "connection reset")

	err = storeErr("op", models.ErrNotFound)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NotErrorIs(t, err, models.ErrStoreFailure)
}

func TestWithClock(t *testing.T) {
	e := setup(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e.svc.now = func() time.Time { return fixed }

	task := e.createTask(t, "task", models.TaskStatusToDo)
	assert.True(t, task.CreatedAt.Equal(fixed))

	WithClock(time.Now)(e.svc)
	assert.NotNil(t, e.svc.now)
}
