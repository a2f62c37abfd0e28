package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicdesk/internal/directory/models"
	"civicdesk/internal/directory/store/memory"
	id "civicdesk/pkg/domain"
	"civicdesk/pkg/testutil"
)

type stubRenderer struct {
	got []MonthlyData
	err error
}

func (r *stubRenderer) GenerateMonthlyReport(_ context.Context, data MonthlyData) (Artifact, error) {
	if r.err != nil {
		return Artifact{}, r.err
	}
	r.got = append(r.got, data)
	return Artifact{
		FileName:     "monthly-report-1717200000000.pdf",
		FilePath:     "/var/reports/monthly-report-1717200000000.pdf",
		RelativePath: "/reports/monthly-report-1717200000000.pdf",
	}, nil
}

type fixture struct {
	router     chi.Router
	resources  *memory.Resources
	complaints *memory.Complaints
	renderer   *stubRenderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		resources:  memory.NewResources(),
		complaints: memory.NewComplaints(),
		renderer:   &stubRenderer{},
	}
	h := NewHandler(f.resources, f.complaints, f.renderer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	f.router = chi.NewRouter()
	h.Register(f.router)
	return f
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)
	res := &models.Resource{
		ID:           id.NewResourceID(),
		Type:         models.ResourceElectricity,
		Name:         "Transformer 4",
		Capacity:     models.Measure{Value: 1000, Unit: "kWh"},
		CurrentUsage: models.Measure{Value: 950, Unit: "kWh"},
		Status:       models.ResourceActive,
	}
	require.NoError(t, f.resources.Save(t.Context(), res))

	t.Run("scores the resource", func(t *testing.T) {
		req, _ := testutil.AsNewUser(testutil.NewRequest(t, http.MethodGet, "/api/resources/"+res.ID.String()+"/health"), testutil.RoleOfficer)
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusOK)

		got := testutil.UnmarshalResponse[Health](t, rec)
		assert.Equal(t, 70, got.Score)
		assert.Equal(t, HealthWarning, got.Status)
		assert.InDelta(t, 95, got.UtilizationRate, 0.001)
	})

	t.Run("citizens are forbidden", func(t *testing.T) {
		req, _ := testutil.AsNewUser(testutil.NewRequest(t, http.MethodGet, "/api/resources/"+res.ID.String()+"/health"), testutil.RoleCitizen)
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
	})

	t.Run("unknown resource", func(t *testing.T) {
		req, _ := testutil.AsNewUser(testutil.NewRequest(t, http.MethodGet, "/api/resources/"+id.NewResourceID().String()+"/health"), testutil.RoleAdmin)
		testutil.AssertStatus(t, testutil.DoRequest(f.router, req), http.StatusNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		req, _ := testutil.AsNewUser(testutil.NewRequest(t, http.MethodGet, "/api/resources/nope/health"), testutil.RoleAdmin)
		testutil.AssertStatus(t, testutil.DoRequest(f.router, req), http.StatusBadRequest)
	})
}

func TestHandler_Monthly(t *testing.T) {
	t.Run("renders the requested month", func(t *testing.T) {
		f := newFixture(t)
		ctx := t.Context()
		may := time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC)
		for _, c := range []*models.Complaint{
			{ID: id.NewComplaintID(), Title: "Burst main", Category: models.CategoryWater, Priority: models.PriorityCritical, Status: models.StatusResolved, CreatedAt: may},
			{ID: id.NewComplaintID(), Title: "Flicker", Category: models.CategoryElectricity, Priority: models.PriorityLow, Status: models.StatusPending, CreatedAt: may},
			{ID: id.NewComplaintID(), Title: "June pothole", Category: models.CategoryInfrastructure, Priority: models.PriorityHigh, Status: models.StatusPending, CreatedAt: may.AddDate(0, 1, 0)},
		} {
			require.NoError(t, f.complaints.Create(ctx, c))
		}
		tank := &models.Resource{
			ID:       id.NewResourceID(),
			Type:     models.ResourceWater,
			Name:     "North Tank",
			Capacity: models.Measure{Value: 10000, Unit: "liters"},
			Status:   models.ResourceActive,
		}
		require.NoError(t, f.resources.Save(ctx, tank))
		require.NoError(t, f.resources.LogUsage(ctx, models.UsageLog{
			ID:           uuid.New(),
			ResourceID:   tank.ID,
			ResourceType: models.ResourceWater,
			Usage:        models.Measure{Value: 1200, Unit: "liters"},
			Timestamp:    may,
		}))

		req, _ := testutil.AsNewUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/reports/monthly",
			MonthlyRequest{Year: 2024, Month: 5}), testutil.RoleOfficer)
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusOK)

		got := testutil.UnmarshalResponse[MonthlyResponse](t, rec)
		assert.True(t, got.Success)
		assert.Equal(t, "/reports/monthly-report-1717200000000.pdf", got.Report.RelativePath)

		require.Len(t, f.renderer.got, 1)
		data := f.renderer.got[0]
		assert.Equal(t, "May 2024", data.MonthLabel)
		assert.Equal(t, "2024-05-01 to 2024-05-31", data.Period)
		assert.Equal(t, 2, data.Complaints.Total)
		assert.InDelta(t, 50, data.Complaints.ResolutionRate, 0.001)
		require.NotEmpty(t, data.Resources)
		assert.Equal(t, models.ResourceWater, data.Resources[0].Type)
		assert.InDelta(t, 1200, data.Resources[0].Total, 0.001)
	})

	t.Run("citizens are forbidden", func(t *testing.T) {
		f := newFixture(t)
		req, _ := testutil.AsNewUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/reports/monthly",
			MonthlyRequest{Year: 2024, Month: 5}), testutil.RoleCitizen)
		testutil.AssertStatusAndError(t, testutil.DoRequest(f.router, req), http.StatusForbidden, "forbidden")
		assert.Empty(t, f.renderer.got)
	})

	t.Run("month out of range", func(t *testing.T) {
		f := newFixture(t)
		req, _ := testutil.AsNewUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/reports/monthly",
			MonthlyRequest{Year: 2024, Month: 13}), testutil.RoleAdmin)
		testutil.AssertStatusAndError(t, testutil.DoRequest(f.router, req), http.StatusBadRequest, "validation_error")
	})

	t.Run("render failure", func(t *testing.T) {
		f := newFixture(t)
		f.renderer.err = errors.New("disk full")
		req, _ := testutil.AsNewUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/reports/monthly",
			MonthlyRequest{Year: 2024, Month: 5}), testutil.RoleAdmin)
		rec := testutil.DoRequest(f.router, req)
		assert.NotContains(t, rec.Body.String(), "disk full")
		testutil.AssertStatusAndError(t, rec, http.StatusInternalServerError, "internal_error")
	})
}
