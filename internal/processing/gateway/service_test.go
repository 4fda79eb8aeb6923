package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gateway"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/users"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage/memory"
)

func newGateway(t *testing.T, accounts ...model.User) (*gateway.Service, *storage.Store) {
	t.Helper()
	backend := memory.New()
	raw, _ := json.Marshal(accounts)
	backend.Put(storage.KeyUsers, raw)

	store := storage.New(backend, model.DefaultSettings())
	linkSvc := links.NewService(store, links.NewCryptoSlugger(), 6, "https://sho.rt")
	userSvc := users.NewService(store, users.NewHandoff(""))
	return gateway.NewService(userSvc, linkSvc), store
}

func TestCreateLinkViaToken(t *testing.T) {
	gw, store := newGateway(t,
		model.User{ID: "u1", APIKey: "tok-1", Plan: model.PlanPro},
		model.User{ID: "u2", APIKey: "tok-2", Plan: model.PlanPro, IsSuspended: true},
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		token   string
		url     string
		wantErr error
	}{
		{"missing token", "", "https://example.com", gateway.ErrParam},
		{"missing url", "tok-1", "", gateway.ErrParam},
		{"missing both with unknown token", "", "", gateway.ErrParam},
		{"unknown token", "nope", "https://example.com", gateway.ErrAuth},
		{"suspended owner", "tok-2", "https://example.com", gateway.ErrAuth},
		{"bad url", "tok-1", "ftp://example.com", gateway.ErrParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := gw.CreateLinkViaToken(ctx, tt.token, tt.url); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
	if n := len(store.Links(ctx)); n != 0 {
		t.Fatalf("failed calls created %d links", n)
	}

	short, err := gw.CreateLinkViaToken(ctx, "tok-1", "https://example.com/x")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(short, "https://sho.rt/") || len(short) != len("https://sho.rt/")+6 {
		t.Errorf("unexpected short url %q", short)
	}
	if ls := store.Links(ctx); len(ls) != 1 || ls[0].UserID != "u1" {
		t.Errorf("link not owned by token holder: %+v", ls)
	}
}

func TestCreateLinkViaToken_FreeQuota(t *testing.T) {
	gw, _ := newGateway(t, model.User{ID: "free", APIKey: "tok", Plan: model.PlanFree})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := gw.CreateLinkViaToken(ctx, "tok", fmt.Sprintf("https://example.com/%d", i)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := gw.CreateLinkViaToken(ctx, "tok", "https://example.com/6"); !errors.Is(err, gateway.ErrQuota) {
		t.Fatalf("6th link on FREE: got %v, want ErrQuota", err)
	}
}
