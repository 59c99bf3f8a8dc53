package service

import (
	"context"
	"errors"
	"testing"

	"learngate/internal/model"

	"github.com/shopspring/decimal"
)

func mustCreatePlan(t *testing.T, h *harness, name string, quiz, topic int) *model.Plan {
	t.Helper()
	p, err := h.plans.CreatePlan(context.Background(), PlanInput{
		Name:            name,
		DailyQuizLimit:  quiz,
		DailyTopicLimit: topic,
		MonthlyCost:     decimal.RequireFromString("4.50"),
	})
	if err != nil {
		t.Fatalf("CreatePlan(%s): %v", name, err)
	}
	return p
}

func TestGetActivePlanFallsBackToLazyFreemium(t *testing.T) {
	h := newHarness(AttemptOptions{})
	plan, err := h.plans.GetActivePlan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetActivePlan: %v", err)
	}
	if !plan.IsDefault || plan.Name != "Freemium" {
		t.Fatalf("expected Freemium default plan, got %+v", plan)
	}
	if plan.DailyQuizLimit != 1 || plan.DailyTopicLimit != 1 || !plan.MonthlyCost.IsZero() {
		t.Fatalf("expected 1/1/0 Freemium limits, got %d/%d/%s", plan.DailyQuizLimit, plan.DailyTopicLimit, plan.MonthlyCost)
	}

	again, err := h.plans.GetActivePlan(context.Background(), "u2")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != plan.ID {
		t.Fatalf("expected the same Freemium plan to be reused, got %s and %s", plan.ID, again.ID)
	}
}

func TestAssignIsExclusive(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()
	p1 := mustCreatePlan(t, h, "Basic", 3, 3)
	p2 := mustCreatePlan(t, h, "Pro", 10, 10)

	if _, err := h.plans.Assign(ctx, "u1", p1.ID, nil); err != nil {
		t.Fatal(err)
	}
	admin := "admin-1"
	a, err := h.plans.Assign(ctx, "u1", p2.ID, &admin)
	if err != nil {
		t.Fatal(err)
	}
	if a.AssignedBy == nil || *a.AssignedBy != admin {
		t.Fatalf("expected assigned_by %s, got %v", admin, a.AssignedBy)
	}

	active, err := h.plans.GetActivePlan(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != p2.ID {
		t.Fatalf("expected plan %s after reassignment, got %s", p2.ID, active.ID)
	}
	for uid, row := range h.plansRepo.assignments {
		if uid == "u1" && row.PlanID == p1.ID {
			t.Fatal("residual assignment to the previous plan remains")
		}
	}
}

func TestAssignValidatesPlan(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()

	if _, err := h.plans.Assign(ctx, "u1", "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := mustCreatePlan(t, h, "Retired", 2, 2)
	inactive := model.PlanStatusInactive
	if _, err := h.plans.UpdatePlan(ctx, p.ID, PlanPatch{Status: &inactive}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.plans.Assign(ctx, "u1", p.ID, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for inactive plan, got %v", err)
	}
}

func TestInactiveAssignedPlanFallsBackToFreemium(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()
	p := mustCreatePlan(t, h, "Basic", 3, 3)
	if _, err := h.plans.Assign(ctx, "u1", p.ID, nil); err != nil {
		t.Fatal(err)
	}
	removed, err := h.plans.DeletePlan(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("expected a referenced plan to be deactivated, not removed")
	}

	active, err := h.plans.GetActivePlan(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !active.IsDefault {
		t.Fatalf("expected Freemium fallback, got %s", active.Name)
	}
}

func TestDeleteUnreferencedPlanRemovesIt(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()
	p := mustCreatePlan(t, h, "Trial", 1, 1)

	removed, err := h.plans.DeletePlan(ctx, p.ID)
	if err != nil || !removed {
		t.Fatalf("expected removal, removed=%v err=%v", removed, err)
	}
	if _, err := h.plans.GetPlan(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFreemiumIsProtected(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()
	freemium, err := h.plans.EnsureFreemium(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.plans.DeletePlan(ctx, freemium.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState deleting Freemium, got %v", err)
	}
	inactive := model.PlanStatusInactive
	if _, err := h.plans.UpdatePlan(ctx, freemium.ID, PlanPatch{Status: &inactive}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState deactivating Freemium, got %v", err)
	}

	limit := 3
	updated, err := h.plans.UpdatePlan(ctx, freemium.ID, PlanPatch{DailyQuizLimit: &limit})
	if err != nil {
		t.Fatalf("expected Freemium limits to be editable: %v", err)
	}
	if updated.DailyQuizLimit != 3 {
		t.Fatalf("expected quiz limit 3, got %d", updated.DailyQuizLimit)
	}
}

func TestCreatePlanValidation(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()

	cases := []struct {
		name string
		in   PlanInput
		want error
	}{
		{"blank name", PlanInput{Name: "  ", DailyQuizLimit: 1}, ErrInvalidInput},
		{"negative quiz limit", PlanInput{Name: "X", DailyQuizLimit: -1}, ErrInvalidInput},
		{"negative topic limit", PlanInput{Name: "X", DailyTopicLimit: -1}, ErrInvalidInput},
		{"negative cost", PlanInput{Name: "X", MonthlyCost: decimal.NewFromInt(-1)}, ErrInvalidInput},
		{"unknown status", PlanInput{Name: "X", Status: "paused"}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.plans.CreatePlan(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	mustCreatePlan(t, h, "Dup", 1, 1)
	if _, err := h.plans.CreatePlan(ctx, PlanInput{Name: "Dup"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for duplicate name, got %v", err)
	}
}

func TestZeroLimitPlanIsValid(t *testing.T) {
	h := newHarness(AttemptOptions{})
	p := mustCreatePlan(t, h, "No quizzes", 0, 5)
	if p.DailyQuizLimit != 0 {
		t.Fatalf("expected zero quiz limit, got %d", p.DailyQuizLimit)
	}
}

func TestRegisterUserAndUnassign(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()

	a, err := h.plans.RegisterUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	freemium, _ := h.plans.EnsureFreemium(ctx)
	if a.PlanID != freemium.ID {
		t.Fatalf("expected Freemium assignment, got %s", a.PlanID)
	}

	p := mustCreatePlan(t, h, "Pro", 5, 5)
	if _, err := h.plans.Assign(ctx, "u1", p.ID, nil); err != nil {
		t.Fatal(err)
	}
	again, err := h.plans.RegisterUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.PlanID != p.ID {
		t.Fatalf("registration must not override an existing plan, got %s", again.PlanID)
	}

	if err := h.plans.Unassign(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.plans.GetAssignment(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no assignment after unassign, got %v", err)
	}
	active, _ := h.plans.GetActivePlan(ctx, "u1")
	if !active.IsDefault {
		t.Fatalf("expected Freemium after unassign, got %s", active.Name)
	}
}

func TestGetActivePlanPropagatesStorageErrors(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()
	p := mustCreatePlan(t, h, "Basic", 3, 3)
	if _, err := h.plans.Assign(ctx, "u1", p.ID, nil); err != nil {
		t.Fatal(err)
	}
	h.plansRepo.failGet = errBoom
	if _, err := h.plans.GetActivePlan(ctx, "u1"); !errors.Is(err, errBoom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestEnsureFreemiumReportsNameClash(t *testing.T) {
	h := newHarness(AttemptOptions{})
	ctx := context.Background()
	mustCreatePlan(t, h, "Freemium", 5, 5)

	if _, err := h.plans.EnsureFreemium(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState when a non-default plan holds the name, got %v", err)
	}
	if _, err := h.plansRepo.GetDefault(ctx); err == nil {
		t.Fatal("expected no default plan to be created")
	}
}
