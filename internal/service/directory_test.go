package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/volunteer-scheduling/internal/model"
)

func TestCreateUserDefaults(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Users.CreateUser(context.Background(), model.CreateUserRequest{Username: "  ana "})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Username != "ana" || u.Role != model.RoleUser || u.MonthlyQuota != model.DefaultMonthlyQuota || !u.Active {
		t.Fatalf("unexpected defaults: %+v", u)
	}

	if _, err := f.svc.Users.CreateUser(context.Background(), model.CreateUserRequest{Username: "ana"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	neg := -1
	cases := []struct {
		name string
		req  model.CreateUserRequest
	}{
		{"blank username", model.CreateUserRequest{Username: " "}},
		{"unknown role", model.CreateUserRequest{Username: "ana", Role: "owner"}},
		{"negative quota", model.CreateUserRequest{Username: "ana", MonthlyQuota: &neg}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Users.CreateUser(context.Background(), tc.req)
			if !errors.Is(err, ErrInvalidUserData) {
				t.Fatalf("expected ErrInvalidUserData, got %v", err)
			}
		})
	}
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	u := f.user("ana", 2, false)

	quota, eligible, active := 4, true, false
	got, err := f.svc.Users.UpdateUser(context.Background(), u.ID, model.UpdateUserRequest{
		MonthlyQuota: &quota, CompanionEligible: &eligible, Active: &active,
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.MonthlyQuota != 4 || !got.CompanionEligible || got.Active {
		t.Fatalf("unexpected user: %+v", got)
	}

	stored, _ := f.svc.Users.GetUser(context.Background(), u.ID)
	if stored.MonthlyQuota != 4 {
		t.Fatalf("update not persisted: %+v", stored)
	}
	if _, err := f.svc.Users.UpdateUser(context.Background(), 999, model.UpdateUserRequest{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
