package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/notification/models"
	"civicdesk/internal/notification/service"
	"civicdesk/internal/notification/store/memory"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/testutil"
)

type fixture struct {
	router  chi.Router
	service *service.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := service.New(memory.NewInMemory())
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return &fixture{router: r, service: svc}
}

func (f *fixture) seed(t *testing.T, userID id.UserID, n int) []*models.Notification {
	t.Helper()
	out := make([]*models.Notification, 0, n)
	for range n {
		created, err := f.service.Create(context.Background(), models.CreateRequest{
			UserID:  userID,
			Type:    models.TypeComplaintResolved,
			Title:   "Complaint Resolved",
			Message: `Your complaint "Streetlight out" has been resolved`,
		})
		require.NoError(t, err)
		out = append(out, created)
		time.Sleep(time.Millisecond)
	}
	return out
}

func TestListNotifications(t *testing.T) {
	f := newFixture(t)
	owner := id.NewUserID()
	f.seed(t, owner, 3)
	f.seed(t, id.NewUserID(), 1)

	req := testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/api/notifications?limit=2"), owner, testutil.RoleCitizen)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	res := testutil.UnmarshalResponse[models.ListResult](t, rr)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.UnreadCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Notifications, 2)
}

func TestListNotifications_FilterByReadState(t *testing.T) {
	f := newFixture(t)
	owner := id.NewUserID()
	seeded := f.seed(t, owner, 2)
	_, err := f.service.MarkRead(context.Background(), seeded[0].ID, owner)
	require.NoError(t, err)

	req := testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/api/notifications?isRead=true"), owner, testutil.RoleCitizen)
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	res := testutil.UnmarshalResponse[models.ListResult](t, rr)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, seeded[0].ID, res.Notifications[0].ID)
	assert.Equal(t, 1, res.UnreadCount)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	owner := id.NewUserID()
	n := f.seed(t, owner, 1)[0]
	path := "/api/notifications/" + n.ID.String() + "/read"

	t.Run("unauthenticated", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodPut, path))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("other user sees not found", func(t *testing.T) {
		req, _ := testutil.AsNewUser(testutil.NewRequest(t, http.MethodPut, path), testutil.RoleCitizen)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.AsUser(testutil.NewRequest(t, http.MethodPut, "/api/notifications/nope/read"), owner, testutil.RoleCitizen)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("owner marks read", func(t *testing.T) {
		req := testutil.AsUser(testutil.NewRequest(t, http.MethodPut, path), owner, testutil.RoleCitizen)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[models.Notification](t, rr)
		assert.True(t, got.IsRead)
		assert.NotNil(t, got.ReadAt)
	})
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	owner := id.NewUserID()
	f.seed(t, owner, 2)

	do := func() map[string]int {
		req := testutil.AsUser(testutil.NewRequest(t, http.MethodPut, "/api/notifications/read-all"), owner, testutil.RoleCitizen)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		return *testutil.UnmarshalResponse[map[string]int](t, rr)
	}

	assert.Equal(t, 2, do()["modifiedCount"])
	assert.Equal(t, 0, do()["modifiedCount"])
}

func TestDeleteNotification(t *testing.T) {
	f := newFixture(t)
	owner := id.NewUserID()
	n := f.seed(t, owner, 1)[0]
	path := "/api/notifications/" + n.ID.String()

	req := testutil.AsUser(testutil.NewRequest(t, http.MethodDelete, path), owner, testutil.RoleCitizen)
	testutil.AssertStatus(t, testutil.DoRequest(f.router, req), http.StatusNoContent)

	req = testutil.AsUser(testutil.NewRequest(t, http.MethodDelete, path), owner, testutil.RoleCitizen)
	testutil.AssertStatusAndError(t, testutil.DoRequest(f.router, req), http.StatusNotFound, "not_found")
}
