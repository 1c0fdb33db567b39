package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/services"
)

func deliveryRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/deliveries", New(d).ListDeliveries)
	return r
}

func TestClampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query    string
		wantPage int
		wantSize int
	}{
		{"", 1, 20},
		{"page=3&page_size=50", 3, 50},
		{"page=0&page_size=0", 1, 1},
		{"page=-2&page_size=-5", 1, 1},
		{"page=abc&page_size=xyz", 1, 20},
		{"page_size=1000", 1, 100},
	}

	for _, tc := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/deliveries?"+tc.query, nil)

		page, size := clampPagination(c)
		if page != tc.wantPage || size != tc.wantSize {
			t.Fatalf("query %q: got (%d,%d), want (%d,%d)", tc.query, page, size, tc.wantPage, tc.wantSize)
		}
	}
}

func TestListDeliveries_PaginationMath(t *testing.T) {
	d := baseDeps()
	d.Notify = stubNotify{list: func(_ context.Context, patientID string, page, pageSize int) ([]domain.Delivery, int64, error) {
		if patientID != "p1" || page != 2 || pageSize != 10 {
			t.Fatalf("args: patient=%q page=%d size=%d", patientID, page, pageSize)
		}
		rows := make([]domain.Delivery, 10)
		for i := range rows {
			rows[i] = domain.Delivery{PatientID: "p1", Recipient: "patient", DrugName: "Aspirin", Status: "sent"}
		}
		return rows, 25, nil
	}}
	r := deliveryRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deliveries?patientChatId=p1&page=2&page_size=10", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200. body=%s", w.Code, w.Body.String())
	}
	var res ListDeliveriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	p := res.Pagination
	if p.Page != 2 || p.PageSize != 10 || p.Total != 25 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination: %+v", p)
	}
	if len(res.Deliveries) != 10 {
		t.Fatalf("deliveries=%d, want 10", len(res.Deliveries))
	}
}

func TestListDeliveries_LastPageHasNoNext(t *testing.T) {
	d := baseDeps()
	d.Notify = stubNotify{list: func(context.Context, string, int, int) ([]domain.Delivery, int64, error) {
		return []domain.Delivery{{PatientID: "p1"}}, 21, nil
	}}
	r := deliveryRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deliveries?patientChatId=p1&page=2", nil)
	r.ServeHTTP(w, req)

	var res ListDeliveriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Pagination.TotalPages != 2 || res.Pagination.HasNext {
		t.Fatalf("pagination: %+v", res.Pagination)
	}
}

func TestListDeliveries_MissingPatient400(t *testing.T) {
	d := baseDeps()
	d.Notify = stubNotify{list: func(context.Context, string, int, int) ([]domain.Delivery, int64, error) {
		return nil, 0, services.ErrMissingPatient
	}}
	r := deliveryRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deliveries", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestListDeliveries_InternalError500(t *testing.T) {
	d := baseDeps()
	d.Notify = stubNotify{list: func(context.Context, string, int, int) ([]domain.Delivery, int64, error) {
		return nil, 0, context.DeadlineExceeded
	}}
	r := deliveryRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deliveries?patientChatId=p1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}
