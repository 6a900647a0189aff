package memory

import (
	"context"
	"testing"

	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/session"
)

func TestGetMissingSession(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "51999888777")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("Get on empty store: err = %v, want KindNotFound", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.Create(ctx, "51999888777")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.State != domain.StateIdle {
		t.Errorf("new session state = %s, want IDLE", created.State)
	}

	got, err := s.Get(ctx, "51999888777")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Key != "51999888777" || got.State != domain.StateIdle {
		t.Errorf("Get returned %+v", got)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Create(ctx, "k"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := s.Update(ctx, "k", domain.StateAwaitingPhone, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := s.Create(ctx, "k")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if again.State != domain.StateAwaitingPhone {
		t.Errorf("second Create reset state to %s", again.State)
	}
}

func TestUpdatePatchSemantics(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Create(ctx, "k")

	err := s.Update(ctx, "k", domain.StateAwaitingRegDNI, map[string]string{
		domain.CtxRegName: "Ana Torres",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Empty value deletes, other keys survive.
	err = s.Update(ctx, "k", domain.StateIdle, map[string]string{
		domain.CtxRegName:  "",
		domain.CtxClientID: "42",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Get(ctx, "k")
	if _, ok := got.Context[domain.CtxRegName]; ok {
		t.Error("empty patch value should delete the key")
	}
	if got.Context[domain.CtxClientID] != "42" {
		t.Errorf("client id = %q, want 42", got.Context[domain.CtxClientID])
	}
}

func TestHistoryBoundedAndOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Create(ctx, "k")

	for i := 0; i < maxHistory+10; i++ {
		s.AppendHistory(ctx, "k", domain.Turn{Role: domain.RoleCustomer, Text: "m"})
	}
	s.AppendHistory(ctx, "k", domain.Turn{Role: domain.RoleAssistant, Text: "last"})

	recent, err := s.RecentHistory(ctx, "k", 3)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3", len(recent))
	}
	if recent[2].Text != "last" {
		t.Errorf("most recent turn = %q, want last", recent[2].Text)
	}

	all, _ := s.RecentHistory(ctx, "k", 0)
	if len(all) > maxHistory {
		t.Errorf("history grew to %d, bound is %d", len(all), maxHistory)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Create(ctx, "k")

	got, _ := s.Get(ctx, "k")
	got.Context["mutated"] = "outside"

	fresh, _ := s.Get(ctx, "k")
	if _, ok := fresh.Context["mutated"]; ok {
		t.Error("mutating a returned session leaked into the store")
	}
}

var _ session.Store = (*Store)(nil)
