package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tournament-registration/models"
	"tournament-registration/testutil"

	"github.com/goccy/go-json"
)

type fakeUploader struct {
	key         string
	body        []byte
	contentType string
	err         error
}

func (u *fakeUploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key, u.body, u.contentType = key, body, contentType
	return "https://cdn.example.com/" + key, nil
}

func TestExportWritesSnapshot(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserService(db)
	configs := NewConfigService(db)
	ctx := context.Background()

	if _, err := configs.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, id := range []ExternalIdentity{
		{ExternalID: 1, Username: "one", PP: 500},
		{ExternalID: 2, Username: "two", PP: 700},
		{ExternalID: 3, Username: "gone", PP: 900},
	} {
		if _, err := users.CreateOrUpdateUser(ctx, id); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	deleted := models.UserStateDeleted
	if _, err := users.UpdateProfile(ctx, 3, UserPatch{UserState: &deleted}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	approved := true
	if _, err := users.UpdateProfile(ctx, 1, UserPatch{Approved: &approved}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	up := &fakeUploader{}
	svc := NewExportService(users, configs, up)
	svc.Now = func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }

	res, err := svc.Export(ctx, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(res.Key, "exports/astar-cup/S1/20240601T083000Z-") || !strings.HasSuffix(res.Key, ".json") {
		t.Fatalf("unexpected key %q", res.Key)
	}
	if res.URL != "https://cdn.example.com/"+res.Key || res.Players != 2 || up.contentType != "application/json" {
		t.Fatalf("unexpected result %+v", res)
	}

	var snap RegistrationSnapshot
	if err := json.Unmarshal(up.body, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Tournament != "Astar Cup" || len(snap.Players) != 2 || snap.Players[0].Username != "two" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	res, err = svc.Export(ctx, true)
	if err != nil {
		t.Fatalf("Export approved: %v", err)
	}
	if res.Players != 1 {
		t.Fatalf("expected 1 approved player, got %d", res.Players)
	}
}

func TestExportErrors(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserService(db)
	configs := NewConfigService(db)
	ctx := context.Background()

	_, err := NewExportService(users, configs, nil).Export(ctx, false)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError without uploader, got %v", err)
	}

	_, err = NewExportService(users, configs, &fakeUploader{}).Export(ctx, false)
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError without config, got %v", err)
	}

	if _, err := configs.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, err = NewExportService(users, configs, &fakeUploader{err: errors.New("bucket gone")}).Export(ctx, false)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError on upload failure, got %v", err)
	}
}
