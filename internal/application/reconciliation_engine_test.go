package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/infrastructure/guard"
	"pagebot-core-console/internal/infrastructure/repository"
	"pagebot-core-console/internal/ports"

	"github.com/rs/zerolog"
)

type engineFixture struct {
	engine   *ReconciliationEngine
	provider *fakeProvider
	backend  *fakeBackend
	registry *ConfigRegistry
	drafts   *DraftStore
	events   *eventRecorder
	audit    *repository.MemoryCommandRepository
}

func newEngineFixture(t *testing.T, timeout time.Duration) *engineFixture {
	t.Helper()
	f := &engineFixture{
		provider: &fakeProvider{
			login: &domain.ProviderLogin{
				AccessToken: "fb-token",
				UserID:      "u1",
				Name:        "Ann",
				Pages:       []domain.PageAsset{{PageID: "1", Name: "Shop A", PageAccessToken: "page-tok-1"}},
			},
		},
		backend: newFakeBackend(),
		events:  &eventRecorder{},
		audit:   repository.NewMemoryCommandRepository(100),
	}
	logger := zerolog.Nop()
	gateway := NewIdentityGateway(f.provider, f.backend, timeout, logger)
	f.registry = NewConfigRegistry(f.backend, f.events, timeout, logger)
	f.drafts = NewDraftStore(logger)
	f.engine = NewReconciliationEngine(gateway, f.registry, f.drafts, f.backend, guard.NewMemoryGuard(), f.events, f.audit, timeout, logger)
	return f
}

func (f *engineFixture) login(t *testing.T) {
	t.Helper()
	if _, err := f.engine.Login(context.Background(), ports.ProviderCredential{AccessToken: "fb-token"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func (f *engineFixture) setAll(t *testing.T, pageID string) {
	t.Helper()
	for field, value := range map[domain.Field]string{
		domain.FieldWebhookURL: "https://x",
		domain.FieldShopLink:   "https://y",
		domain.FieldField:      "shoes",
		domain.FieldLocation:   "NYC",
	} {
		if err := f.engine.SetField(pageID, field, value); err != nil {
			t.Fatalf("SetField(%s): %v", field, err)
		}
	}
}

func (f *engineFixture) viewModel(t *testing.T, pageID string) domain.PageViewModel {
	t.Helper()
	vm, err := f.engine.ViewModel(context.Background(), pageID)
	if err != nil {
		t.Fatalf("ViewModel: %v", err)
	}
	return vm
}

func TestEngine_EndToEnd(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.backend.saveToken = "echo-token"
	f.login(t)

	if f.backend.listCount() != 1 {
		t.Fatalf("login should refresh once, got %d", f.backend.listCount())
	}
	vm := f.viewModel(t, "1")
	if vm.IsInstalled || !vm.CanInstall || vm.CanSave {
		t.Fatalf("before install: %+v", vm)
	}

	if _, err := f.engine.Install(context.Background(), "1", ""); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(f.backend.installs) != 1 {
		t.Fatalf("installs = %d", len(f.backend.installs))
	}
	want := ports.InstallRequest{PageAccessToken: "page-tok-1", PageID: "1", UserID: "u1"}
	if f.backend.installs[0] != want {
		t.Errorf("install payload = %+v, want %+v", f.backend.installs[0], want)
	}
	if f.backend.listCount() != 2 {
		t.Errorf("install should trigger a refresh, list calls = %d", f.backend.listCount())
	}

	vm = f.viewModel(t, "1")
	if !vm.IsInstalled || vm.CanInstall || vm.CanSave {
		t.Fatalf("after install: %+v", vm)
	}

	f.setAll(t, "1")
	vm = f.viewModel(t, "1")
	if !vm.CanSave || !vm.HasDraft {
		t.Fatalf("after edits: %+v", vm)
	}

	result, err := f.engine.SaveConfig(context.Background(), "1")
	if err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if result.Token != "echo-token" || !result.DraftCleared {
		t.Errorf("result = %+v", result)
	}
	wantSave := ports.SaveConfigRequest{
		PageWebhookURL: "https://x",
		PageID:         "1",
		Location:       "NYC",
		Field:          "shoes",
		ShopLink:       "https://y",
	}
	if len(f.backend.saves) != 1 || f.backend.saves[0] != wantSave {
		t.Fatalf("save payload = %+v", f.backend.saves)
	}
	if _, ok := f.drafts.Get("1"); ok {
		t.Error("draft should be cleared after a successful save")
	}
	if f.backend.listCount() != 3 {
		t.Errorf("save should trigger a refresh, list calls = %d", f.backend.listCount())
	}

	vm = f.viewModel(t, "1")
	if vm.EffectiveWebhookURL != "https://x" || vm.HasDraft || !vm.CanSave {
		t.Errorf("after save, values should come from the refreshed record: %+v", vm)
	}

	for _, s := range f.backend.sessions {
		if s.BearerToken != "bearer-1" {
			t.Errorf("backend call without the session bearer: %+v", s)
		}
	}
	if len(f.events.ofType(domain.EventPageInstalled)) != 1 || len(f.events.ofType(domain.EventPageConfigSaved)) != 1 {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestEngine_DoubleInstallSubmitsOnce(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.login(t)

	f.backend.installStarted = make(chan struct{})
	f.backend.installGate = make(chan struct{})
	started := f.backend.installStarted

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.engine.Install(context.Background(), "1", "")
		firstErr <- err
	}()
	<-started

	_, err := f.engine.Install(context.Background(), "1", "")
	if !errors.Is(err, domain.ErrCommandInFlight) {
		t.Fatalf("second install err = %v, want CommandInFlight", err)
	}
	vm := f.viewModel(t, "1")
	if !vm.InFlight || vm.CanInstall {
		t.Errorf("while in flight: %+v", vm)
	}

	close(f.backend.installGate)
	if err := <-firstErr; err != nil {
		t.Fatalf("first install: %v", err)
	}

	_, err = f.engine.Install(context.Background(), "1", "")
	if !errors.Is(err, domain.ErrAlreadyInstalled) {
		t.Fatalf("third install err = %v, want AlreadyInstalled", err)
	}
	if n := f.backend.installCount(); n != 1 {
		t.Errorf("backend install calls = %d, want 1", n)
	}
}

func TestEngine_SaveThenRefreshWithoutRecordUninstalls(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.backend.put(domain.ConfigRecord{PageID: "1"})
	f.login(t)
	if !f.viewModel(t, "1").IsInstalled {
		t.Fatal("page 1 should start installed")
	}

	f.setAll(t, "1")
	f.backend.dropOnRefresh = []string{"1"}
	if _, err := f.engine.SaveConfig(context.Background(), "1"); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	if _, ok := f.drafts.Get("1"); ok {
		t.Error("draft should be cleared")
	}
	vm := f.viewModel(t, "1")
	if vm.IsInstalled || !vm.CanInstall || vm.CanSave {
		t.Errorf("refresh omitting page 1 must make it uninstalled: %+v", vm)
	}
}

func TestEngine_SaveFailureKeepsDraft(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.backend.put(domain.ConfigRecord{PageID: "1"})
	f.login(t)
	f.setAll(t, "1")

	f.backend.saveErr = errBoom
	_, err := f.engine.SaveConfig(context.Background(), "1")
	if !errors.Is(err, domain.ErrMutationFailed) {
		t.Fatalf("err = %v, want MutationFailed", err)
	}
	d, ok := f.drafts.Get("1")
	if !ok || d.WebhookURL != "https://x" {
		t.Errorf("draft should survive a failed save, got %+v", d)
	}
	if f.backend.listCount() != 1 {
		t.Errorf("a failed save must not refresh, list calls = %d", f.backend.listCount())
	}
	if failed := f.events.ofType(domain.EventCommandFailed); len(failed) != 1 || failed[0].ErrorKind != domain.KindMutationFailed {
		t.Errorf("command.failed events = %+v", failed)
	}
}

func TestEngine_SaveTimeout(t *testing.T) {
	f := newEngineFixture(t, 50*time.Millisecond)
	f.backend.put(domain.ConfigRecord{PageID: "1"})
	f.login(t)
	f.setAll(t, "1")

	f.backend.blockSave = true
	_, err := f.engine.SaveConfig(context.Background(), "1")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want Timeout", err)
	}
	if _, ok := f.drafts.Get("1"); !ok {
		t.Error("draft should survive a timed out save")
	}
	if f.viewModel(t, "1").InFlight {
		t.Error("guard must be released after a timeout")
	}
}

func TestEngine_SaveGuards(t *testing.T) {
	tests := []struct {
		name    string
		install bool
		fields  map[domain.Field]string
		record  domain.PageFields
		want    *domain.Error
	}{
		{
			name: "not installed",
			fields: map[domain.Field]string{
				domain.FieldWebhookURL: "https://x", domain.FieldShopLink: "https://y",
				domain.FieldField: "shoes", domain.FieldLocation: "NYC",
			},
			want: domain.ErrNotInstalled,
		},
		{
			name:    "one field missing",
			install: true,
			fields: map[domain.Field]string{
				domain.FieldWebhookURL: "https://x", domain.FieldShopLink: "https://y", domain.FieldField: "shoes",
			},
			want: domain.ErrConfigIncomplete,
		},
		{
			name:    "nothing set",
			install: true,
			want:    domain.ErrConfigIncomplete,
		},
		{
			name:    "record fills the gap",
			install: true,
			record:  domain.PageFields{Location: "LA"},
			fields: map[domain.Field]string{
				domain.FieldWebhookURL: "https://x", domain.FieldShopLink: "https://y", domain.FieldField: "shoes",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, time.Second)
			if tt.install {
				f.backend.put(domain.ConfigRecord{PageID: "1", PageFields: tt.record})
			}
			f.login(t)
			for field, v := range tt.fields {
				if err := f.engine.SetField("1", field, v); err != nil {
					t.Fatalf("SetField: %v", err)
				}
			}

			_, err := f.engine.SaveConfig(context.Background(), "1")
			if tt.want == nil {
				if err != nil {
					t.Fatalf("SaveConfig: %v", err)
				}
				if f.backend.saves[0].Location != "LA" {
					t.Errorf("payload = %+v", f.backend.saves[0])
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(f.backend.saves) != 0 {
				t.Error("a rejected save must not reach the backend")
			}
		})
	}
}

func TestEngine_InstallFailureAndUnknownPage(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.login(t)

	if _, err := f.engine.Install(context.Background(), "9", ""); !errors.Is(err, domain.ErrUnknownPage) {
		t.Errorf("unknown page err = %v", err)
	}
	if err := f.engine.SetField("9", domain.FieldField, "x"); !errors.Is(err, domain.ErrUnknownPage) {
		t.Errorf("SetField on unknown page err = %v", err)
	}

	f.backend.installErr = errBoom
	if _, err := f.engine.Install(context.Background(), "1", ""); !errors.Is(err, domain.ErrMutationFailed) {
		t.Fatalf("err = %v, want MutationFailed", err)
	}
	if f.viewModel(t, "1").IsInstalled {
		t.Error("failed install must not mark the page installed")
	}

	f.backend.installErr = nil
	if _, err := f.engine.Install(context.Background(), "1", "explicit-token"); err != nil {
		t.Fatalf("retry install: %v", err)
	}
	if got := f.backend.installs[len(f.backend.installs)-1].PageAccessToken; got != "explicit-token" {
		t.Errorf("page token = %q, want the explicit one", got)
	}
}

func TestEngine_RefreshFailureAfterMutationDoesNotFailCommand(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.login(t)

	f.backend.listErr = errBoom
	if _, err := f.engine.Install(context.Background(), "1", ""); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if f.engine.Status().LastError == "" {
		t.Error("the failed follow-up refresh should show in Status")
	}
	if f.viewModel(t, "1").IsInstalled {
		t.Error("installed state comes only from a refresh")
	}
}

func TestEngine_RequiresSession(t *testing.T) {
	f := newEngineFixture(t, time.Second)

	if _, err := f.engine.Install(context.Background(), "1", ""); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("Install err = %v", err)
	}
	if _, err := f.engine.SaveConfig(context.Background(), "1"); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("SaveConfig err = %v", err)
	}
	if err := f.engine.Refresh(context.Background()); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("Refresh err = %v", err)
	}
	if _, err := f.engine.ViewModels(context.Background()); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("ViewModels err = %v", err)
	}
}

func TestEngine_LoginRefreshFailureKeepsSession(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.backend.listErr = errBoom

	f.login(t)
	if _, err := f.engine.Session(); err != nil {
		t.Fatalf("session should exist: %v", err)
	}
	vms, err := f.engine.ViewModels(context.Background())
	if err != nil || len(vms) != 1 || vms[0].IsInstalled {
		t.Fatalf("view models = %+v, %v", vms, err)
	}
	if f.engine.Status().LastError == "" {
		t.Error("the failed eager refresh should show in Status")
	}
}

func TestEngine_LogoutDropsState(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.backend.put(domain.ConfigRecord{PageID: "1"})
	f.login(t)
	_ = f.engine.SetField("1", domain.FieldField, "shoes")

	f.engine.Logout()
	if _, err := f.engine.Session(); !errors.Is(err, domain.ErrNoSession) {
		t.Error("session should be gone")
	}
	if f.registry.Has("1") || f.drafts.Len() != 0 {
		t.Error("registry and drafts should be empty after logout")
	}
}

func TestEngine_RefreshOfReplacedSessionIsDropped(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.provider.login.Pages = []domain.PageAsset{{PageID: "1", Name: "Shop A"}, {PageID: "2", Name: "Shop B"}}
	f.backend.userRecords = map[string][]domain.ConfigRecord{
		"u1": {{PageID: "1", PageFields: domain.PageFields{WebhookURL: "https://u1"}}},
	}
	f.login(t)
	if !f.viewModel(t, "1").IsInstalled {
		t.Fatal("page 1 should be installed for u1")
	}

	f.backend.installStarted = make(chan struct{})
	f.backend.installGate = make(chan struct{})
	started := f.backend.installStarted
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.engine.Install(context.Background(), "2", "")
		firstErr <- err
	}()
	<-started

	u2 := *f.provider.login
	u2.UserID = "u2"
	f.provider.login = &u2
	f.login(t)
	if f.viewModel(t, "1").IsInstalled {
		t.Fatal("u2 has no records right after login")
	}

	close(f.backend.installGate)
	if err := <-firstErr; err != nil {
		t.Fatalf("u1 install: %v", err)
	}

	vm := f.viewModel(t, "1")
	if vm.IsInstalled || vm.EffectiveWebhookURL != "" {
		t.Fatalf("u1 records leaked into u2's registry: %+v", vm)
	}
	if _, err := f.engine.Install(context.Background(), "1", ""); errors.Is(err, domain.ErrAlreadyInstalled) {
		t.Errorf("u2 install of page 1 rejected with %v", err)
	}
	if s, _ := f.engine.Session(); s.UserID != "u2" {
		t.Errorf("session user = %q", s.UserID)
	}
}

func TestEngine_EditDuringSaveSurvives(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.backend.put(domain.ConfigRecord{PageID: "1"})
	f.login(t)
	f.setAll(t, "1")

	f.backend.saveStarted = make(chan struct{})
	f.backend.saveGate = make(chan struct{})
	started := f.backend.saveStarted
	type outcome struct {
		result *SaveResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := f.engine.SaveConfig(context.Background(), "1")
		done <- outcome{result, err}
	}()
	<-started

	if err := f.engine.SetField("1", domain.FieldLocation, "LA"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	close(f.backend.saveGate)

	out := <-done
	if out.err != nil {
		t.Fatalf("SaveConfig: %v", out.err)
	}
	if out.result.DraftCleared {
		t.Error("an edit made during the save must keep the draft")
	}
	if f.backend.saves[0].Location != "NYC" {
		t.Errorf("saved location = %q, want the value at submit time", f.backend.saves[0].Location)
	}
	rec, _ := f.registry.Get("1")
	vm := f.viewModel(t, "1")
	if rec.Location != "NYC" || vm.EffectiveLocation != "LA" || !vm.HasDraft {
		t.Errorf("record %q, effective %q, draft %v: the newer edit should win", rec.Location, vm.EffectiveLocation, vm.HasDraft)
	}
}

func TestEngine_HistoryKeepsEveryOutcome(t *testing.T) {
	f := newEngineFixture(t, time.Second)
	f.login(t)

	f.backend.installErr = errBoom
	attempts := 40
	for i := 0; i < attempts; i++ {
		if _, err := f.engine.Install(context.Background(), "1", ""); !errors.Is(err, domain.ErrMutationFailed) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	f.backend.installErr = nil
	if _, err := f.engine.Install(context.Background(), "1", ""); err != nil {
		t.Fatalf("Install: %v", err)
	}

	history, err := f.engine.History(context.Background(), "1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != attempts+1 {
		t.Fatalf("history has %d outcomes, want %d", len(history), attempts+1)
	}
	if !history[0].Succeeded || history[0].Command != domain.CommandInstall || history[0].UserID != "u1" {
		t.Errorf("newest outcome = %+v", history[0])
	}
	if history[1].Succeeded || history[1].ErrorKind != domain.KindMutationFailed {
		t.Errorf("failed outcome = %+v", history[1])
	}
}
