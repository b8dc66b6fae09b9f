package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/testutil"
)

func newAdminFixture(t *testing.T) (*sessionFixture, *AdminService, *AuthService) {
	t.Helper()
	f := newSessionFixture(t, 3, 6)
	cfg := testutil.Config(3)
	auth := NewAuthService(cfg, f.timer.rdb)
	admin := NewAdminService(f.cfg, f.store.Candidates(), f.timer, auth, zerolog.Nop())
	return f, admin, auth
}

func TestWhitelist(t *testing.T) {
	ctx := context.Background()
	_, admin, _ := newAdminFixture(t)

	c, created, err := admin.Whitelist(ctx, " New@Example.com")
	if err != nil || !created {
		t.Fatalf("Whitelist: created=%v err=%v", created, err)
	}
	if c.Email != "new@example.com" || c.Status != model.CandidateStatusNotStarted {
		t.Fatalf("candidate = %+v", c)
	}

	again, created, err := admin.Whitelist(ctx, "new@example.com")
	if err != nil || created || again.ID != c.ID {
		t.Fatalf("re-whitelist: %+v created=%v err=%v", again, created, err)
	}
}

func TestListCandidatesPagination(t *testing.T) {
	ctx := context.Background()
	f, admin, _ := newAdminFixture(t)
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"} {
		f.store.AddCandidate(e)
	}

	list, page, err := admin.ListCandidates(ctx, nil, 2, 2)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(list) != 2 || list[0].Email != "c@x.io" {
		t.Fatalf("page 2 = %+v", list)
	}
	if page.TotalItems != 5 || page.TotalPages != 3 || page.Page != 2 || page.PerPage != 2 {
		t.Fatalf("pagination = %+v", page)
	}

	blocked := model.CandidateStatusBlocked
	list, page, err = admin.ListCandidates(ctx, &blocked, 0, 0)
	if err != nil {
		t.Fatalf("ListCandidates(blocked): %v", err)
	}
	if list == nil || len(list) != 0 || page.TotalItems != 0 || page.Page != 1 || page.PerPage != 20 {
		t.Fatalf("blocked list = %+v %+v", list, page)
	}
}

func TestRemoveFromWhitelist(t *testing.T) {
	ctx := context.Background()
	f, admin, _ := newAdminFixture(t)
	f.store.AddCandidate("idle@example.com")
	f.started(t, "busy@example.com")

	if err := admin.RemoveFromWhitelist(ctx, "IDLE@example.com"); err != nil {
		t.Fatalf("RemoveFromWhitelist: %v", err)
	}
	if err := admin.RemoveFromWhitelist(ctx, "idle@example.com"); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("second remove err = %v, want ErrCandidateNotFound", err)
	}
	if err := admin.RemoveFromWhitelist(ctx, "busy@example.com"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("started remove err = %v, want ErrInvalidState", err)
	}
}

func TestBlockEndsSession(t *testing.T) {
	ctx := context.Background()
	f, admin, auth := newAdminFixture(t)
	id := f.started(t, "a@example.com")
	if _, err := f.session.GetQuestion(ctx, id, 1); err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	token, _ := auth.GenerateCandidateToken(ctx, id, "a@example.com")
	claims, _ := auth.ValidateToken(token)

	if err := admin.Block(ctx, id); err != nil {
		t.Fatalf("Block: %v", err)
	}
	c, _ := f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusBlocked {
		t.Fatalf("status = %s", c.Status)
	}
	if err := auth.ValidateCandidateSession(ctx, id, claims.ID); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("session after block err = %v", err)
	}
	if keys := f.mr.Keys(); len(keys) != 0 {
		t.Fatalf("redis keys after block: %v", keys)
	}

	if err := admin.Block(ctx, id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second block err = %v, want ErrInvalidState", err)
	}
	if err := admin.Reset(ctx, id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("reset blocked err = %v, want ErrInvalidState", err)
	}
	if _, err := f.session.GetQuestion(ctx, id, 2); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("question after block err = %v, want ErrInvalidState", err)
	}
}

func TestResetAllowsRestart(t *testing.T) {
	ctx := context.Background()
	f, admin, _ := newAdminFixture(t)
	id := f.started(t, "a@example.com")
	f.advance(5 * time.Second)
	if _, err := f.session.CompleteTest(ctx, id, model.CompletionReasonCandidate); err != nil {
		t.Fatalf("CompleteTest: %v", err)
	}

	if err := admin.Reset(ctx, id); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	c, _ := f.store.Candidates().GetByID(ctx, id)
	if c.Status != model.CandidateStatusNotStarted || c.StartedAt != nil || c.CompletedAt != nil || c.WarningCount != 0 {
		t.Fatalf("candidate after reset = %+v", c)
	}
	if len(f.store.SlotsOf(id)) != 0 {
		t.Fatal("slots survived reset")
	}
	if _, err := f.session.StartTest(ctx, id); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := admin.Reset(ctx, 999); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("reset unknown err = %v", err)
	}
}
