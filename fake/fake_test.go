package fake_test

import (
	"context"
	"testing"

	"github.com/dugoutlabs/auth-go"
	"github.com/dugoutlabs/auth-go/fake"
)

func TestLoginLogoutRoundTrip(t *testing.T) {
	user := auth.User{ID: "u1", Username: "slugger", Email: "slugger@example.com", Role: "user"}
	b := fake.New(fake.WithUser(user, "hunter2"))
	ctx := context.Background()

	res, err := b.API.Login(ctx, "slugger", "hunter2")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if res.User != user {
		t.Errorf("user = %+v, want %+v", res.User, user)
	}

	got, err := b.API.CurrentUser(auth.WithToken(ctx, res.Token))
	if err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("CurrentUser = %+v, want %+v", got, user)
	}

	if err := b.API.Logout(auth.WithToken(ctx, res.Token)); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := b.API.CurrentUser(auth.WithToken(ctx, res.Token)); auth.KindOf(err) != auth.KindUnauthenticated {
		t.Errorf("kind after logout = %v, want unauthenticated", auth.KindOf(err))
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	b := fake.New(fake.WithUser(auth.User{ID: "u1", Username: "slugger"}, "hunter2"))

	_, err := b.API.Login(context.Background(), "slugger", "wrong")
	if auth.KindOf(err) != auth.KindRejected {
		t.Fatalf("kind = %v, want rejected", auth.KindOf(err))
	}
	if b.API.LoginCalls() != 1 {
		t.Errorf("LoginCalls = %d, want 1", b.API.LoginCalls())
	}
}

func TestRegister_NewAccountCanLogIn(t *testing.T) {
	b := fake.New()
	ctx := context.Background()

	res, err := b.API.Register(ctx, "rookie", "rookie@example.com", "pw")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if res.User.Username != "rookie" || res.Token == "" {
		t.Errorf("result = %+v, want a usable session", res)
	}

	if _, err := b.API.Login(ctx, "rookie", "pw"); err != nil {
		t.Errorf("Login() after register error: %v", err)
	}
}

func TestStore_CountsAndClears(t *testing.T) {
	b := fake.New()
	ctx := context.Background()

	if err := b.Store.Save(ctx, "tok", auth.User{ID: "u1"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if b.Store.Empty() {
		t.Error("store should hold a record after Save")
	}
	if err := b.Store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if !b.Store.Empty() || b.Store.ClearCalls() != 1 {
		t.Errorf("store state after clear: empty=%v clears=%d", b.Store.Empty(), b.Store.ClearCalls())
	}
}
