package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// ----- Fake trigger client -----

type createdTrigger struct {
	cron        string
	destination string
	payload     domain.NotifyPayload
}

type fakeTriggers struct {
	created []createdTrigger
	deleted []string

	createErrOn map[string]error // keyed by "drug@time"
	deleteErr   error
	nextID      int
}

func (f *fakeTriggers) Create(_ context.Context, cronSpec, destination string, payload []byte) (string, error) {
	var p domain.NotifyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", err
	}
	if err := f.createErrOn[p.DrugName+"@"+p.ScheduleTime]; err != nil {
		return "", err
	}
	f.created = append(f.created, createdTrigger{cron: cronSpec, destination: destination, payload: p})
	f.nextID++
	return fmt.Sprintf("sched-%d", f.nextID), nil
}

func (f *fakeTriggers) Delete(_ context.Context, scheduleID string) error {
	f.deleted = append(f.deleted, scheduleID)
	return f.deleteErr
}

func med(simple, dose string, times ...string) domain.Medication {
	return domain.Medication{DrugName: simple + " full", DrugNameSimple: simple, Dosage: dose, AlertTimes: times}
}

// ----- Tests -----

func TestReplace_CreatesOneTriggerPerPair(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "https://app.example.com/webhooks/notify")
	ctx := context.Background()

	res, err := svc.Replace(ctx, "p1", "Alex", []domain.Medication{
		med("drugA", "1 tablet", "07:30", "18:30"),
		med("drugB", "2 tablets", "21:00"),
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !res.Registered || res.Created != 3 || len(res.ScheduleIDs) != 3 {
		t.Fatalf("result = %+v", res)
	}
	if len(triggers.created) != 3 {
		t.Fatalf("created %d triggers", len(triggers.created))
	}

	first := triggers.created[0]
	if first.cron != "30 7 * * *" {
		t.Errorf("cron = %q", first.cron)
	}
	if first.destination != "https://app.example.com/webhooks/notify" {
		t.Errorf("destination = %q", first.destination)
	}
	p := first.payload
	if p.PatientChatID != "p1" || p.PatientName != "Alex" || p.DrugName != "drugA" ||
		p.Dose != "1 tablet" || p.ScheduleTime != "07:30" || p.AlertType != domain.AlertMedication {
		t.Errorf("payload = %+v", p)
	}

	if ids, _ := svc.List(ctx, "p1"); len(ids) != 3 {
		t.Errorf("persisted ids = %v", ids)
	}
}

func TestReplace_SupersedesOldSet(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "https://app.example.com/webhooks/notify")
	ctx := context.Background()

	// First registration: 2 medications x 2 times = 4 triggers.
	if _, err := svc.Replace(ctx, "p1", "", []domain.Medication{
		med("drugA", "1", "07:30", "18:30"),
		med("drugB", "1", "08:00", "20:00"),
	}); err != nil {
		t.Fatalf("first Replace: %v", err)
	}
	firstIDs, _ := svc.List(ctx, "p1")
	if len(firstIDs) != 4 {
		t.Fatalf("first set = %v", firstIDs)
	}

	// Re-registration with a single pair must delete all four old ids.
	res, err := svc.Replace(ctx, "p1", "", []domain.Medication{med("drugC", "1", "09:00")})
	if err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	if len(triggers.deleted) != 4 {
		t.Fatalf("deleted = %v", triggers.deleted)
	}
	for i, id := range firstIDs {
		if triggers.deleted[i] != id {
			t.Errorf("deleted[%d] = %q, want %q", i, triggers.deleted[i], id)
		}
	}

	finalIDs, _ := svc.List(ctx, "p1")
	if len(finalIDs) != 1 || finalIDs[0] != res.ScheduleIDs[0] {
		t.Errorf("final set = %v", finalIDs)
	}
	for _, old := range firstIDs {
		if old == finalIDs[0] {
			t.Errorf("old id %q survived replacement", old)
		}
	}
}

func TestReplace_DuplicatePairsKept(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "url")

	res, err := svc.Replace(context.Background(), "p1", "", []domain.Medication{
		med("drugA", "1", "07:30", "07:30"),
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if res.Created != 2 {
		t.Fatalf("duplicate pairs must not be merged, created = %d", res.Created)
	}
}

func TestReplace_PartialCreateFailure(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{
		createErrOn: map[string]error{"drugA@18:30": errors.New("quota")},
	}
	svc := NewScheduleService(store, triggers, "url")
	ctx := context.Background()

	res, err := svc.Replace(ctx, "p1", "", []domain.Medication{
		med("drugA", "1", "07:30", "18:30"),
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if res.Registered {
		t.Error("Registered must be false on partial failure")
	}
	if res.Created != 1 || len(res.ScheduleIDs) != 1 {
		t.Fatalf("result = %+v", res)
	}
	// Stored set contains exactly the triggers that exist externally.
	if ids, _ := svc.List(ctx, "p1"); len(ids) != 1 {
		t.Errorf("persisted ids = %v", ids)
	}
}

func TestReplace_InvalidAlertTimeSkipped(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "url")

	res, err := svc.Replace(context.Background(), "p1", "", []domain.Medication{
		med("drugA", "1", "7:30", "25:00", "18:30"),
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if res.Created != 1 || res.Registered {
		t.Fatalf("result = %+v", res)
	}
	if triggers.created[0].payload.ScheduleTime != "18:30" {
		t.Errorf("created = %+v", triggers.created)
	}
}

func TestReplace_ZeroMedications(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "url")
	ctx := context.Background()

	if _, err := svc.Replace(ctx, "p1", "", []domain.Medication{med("drugA", "1", "07:30")}); err != nil {
		t.Fatalf("seed Replace: %v", err)
	}

	res, err := svc.Replace(ctx, "p1", "", nil)
	if err != nil {
		t.Fatalf("empty Replace: %v", err)
	}
	if !res.Registered || res.Created != 0 {
		t.Fatalf("result = %+v", res)
	}
	// The old trigger is still deleted and the stored set goes empty.
	if len(triggers.deleted) != 1 {
		t.Errorf("deleted = %v", triggers.deleted)
	}
	if ids, _ := svc.List(ctx, "p1"); len(ids) != 0 {
		t.Errorf("final set = %v", ids)
	}
}

func TestReplace_BakesGuardianIntoPayload(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "url")
	ctx := context.Background()

	if err := store.SaveGuardianLink(ctx, "p1", &domain.GuardianLink{GuardianChatID: "g1", Alerts: []string{"medication"}}); err != nil {
		t.Fatalf("SaveGuardianLink: %v", err)
	}

	if _, err := svc.Replace(ctx, "p1", "", []domain.Medication{med("drugA", "1", "07:30")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := triggers.created[0].payload.GuardianChatID; got != "g1" {
		t.Errorf("payload guardian = %q", got)
	}
}

func TestReplace_MissingPatient(t *testing.T) {
	store, _ := newTestStore()
	svc := NewScheduleService(store, &fakeTriggers{}, "url")

	if _, err := svc.Replace(context.Background(), " ", "", nil); !errors.Is(err, ErrMissingPatient) {
		t.Fatalf("expected ErrMissingPatient, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{}
	svc := NewScheduleService(store, triggers, "url")
	ctx := context.Background()

	if n, err := svc.Cancel(ctx, "p1"); err != nil || n != 0 {
		t.Fatalf("empty cancel = %d, %v", n, err)
	}

	if _, err := svc.Replace(ctx, "p1", "", []domain.Medication{med("drugA", "1", "07:30", "18:30")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	n, err := svc.Cancel(ctx, "p1")
	if err != nil || n != 2 {
		t.Fatalf("Cancel = %d, %v", n, err)
	}
	if len(triggers.deleted) != 2 {
		t.Errorf("deleted = %v", triggers.deleted)
	}
	if ids, _ := svc.List(ctx, "p1"); len(ids) != 0 {
		t.Errorf("final set = %v", ids)
	}
}

func TestCancel_DeleteFailureStillResets(t *testing.T) {
	store, _ := newTestStore()
	triggers := &fakeTriggers{deleteErr: errors.New("boom")}
	svc := NewScheduleService(store, triggers, "url")
	ctx := context.Background()

	if _, err := svc.Replace(ctx, "p1", "", []domain.Medication{med("drugA", "1", "07:30")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if n, err := svc.Cancel(ctx, "p1"); err != nil || n != 1 {
		t.Fatalf("Cancel = %d, %v", n, err)
	}
	if ids, _ := svc.List(ctx, "p1"); len(ids) != 0 {
		t.Errorf("final set = %v", ids)
	}
}
