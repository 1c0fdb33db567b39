package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pillwise/go-reminder-backend/internal/config"
)

func TestCronFromHHMM(t *testing.T) {
	cases := map[string]string{
		"07:30": "30 7 * * *",
		"00:00": "0 0 * * *",
		"23:59": "59 23 * * *",
		"12:05": "5 12 * * *",
	}
	for in, want := range cases {
		got, err := CronFromHHMM(in)
		if err != nil {
			t.Errorf("CronFromHHMM(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("CronFromHHMM(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestCronFromHHMM_Rejections(t *testing.T) {
	for _, in := range []string{"", "7:30", "24:00", "12:60", "noon", "07:30:00", "0730"} {
		if _, err := CronFromHHMM(in); err == nil {
			t.Errorf("CronFromHHMM(%q): expected error", in)
		}
	}
}

func newTestSchedClient(baseURL string) *Client {
	return NewClient(config.SchedulerConfig{
		Token:   "sched-token",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	})
}

func TestCreate_SendsCronAndPayload(t *testing.T) {
	var gotAuth, gotCron, gotPath string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCron = r.Header.Get("Upstash-Cron")
		gotPath = r.RequestURI
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"scheduleId": "sch_123"})
	}))
	defer srv.Close()

	id, err := newTestSchedClient(srv.URL).Create(
		context.Background(), "30 7 * * *", "https://app.example.com/webhooks/notify", []byte(`{"drugName":"x"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "sch_123" {
		t.Errorf("schedule id = %q", id)
	}
	if gotAuth != "Bearer sched-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotCron != "30 7 * * *" {
		t.Errorf("Upstash-Cron = %q", gotCron)
	}
	if gotPath != "/v2/schedules/https:%2F%2Fapp.example.com%2Fwebhooks%2Fnotify" {
		t.Errorf("path = %q", gotPath)
	}
	if string(gotBody) != `{"drugName":"x"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestCreate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestSchedClient(srv.URL).Create(context.Background(), "0 9 * * *", "https://x", nil); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestCreate_EmptyScheduleID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	if _, err := newTestSchedClient(srv.URL).Create(context.Background(), "0 9 * * *", "https://x", nil); err == nil {
		t.Fatal("expected error on empty schedule id")
	}
}

func TestDelete_OK(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestSchedClient(srv.URL).Delete(context.Background(), "sch_123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v2/schedules/sch_123" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDelete_NotFoundIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := newTestSchedClient(srv.URL).Delete(context.Background(), "gone"); err != nil {
		t.Fatalf("Delete of unknown id should succeed: %v", err)
	}
}

func TestDelete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := newTestSchedClient(srv.URL).Delete(context.Background(), "sch_123"); err == nil {
		t.Fatal("expected error on 500")
	}
}
