package application

import (
	"context"
	"errors"
	"sync"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"
)

type fakeProvider struct {
	login    *domain.ProviderLogin
	loginErr error
	pages    []domain.PageAsset
	pagesErr error
	creds    []ports.ProviderCredential
}

func (p *fakeProvider) Login(_ context.Context, cred ports.ProviderCredential) (*domain.ProviderLogin, error) {
	p.creds = append(p.creds, cred)
	if p.loginErr != nil {
		return nil, p.loginErr
	}
	cp := *p.login
	return &cp, nil
}

func (p *fakeProvider) ListPages(_ context.Context, _ string) ([]domain.PageAsset, error) {
	if p.pagesErr != nil {
		return nil, p.pagesErr
	}
	return p.pages, nil
}

// fakeBackend behaves like the real backend: installs add a record, saves update it.
type fakeBackend struct {
	mu sync.Mutex

	token       string
	exchangeErr error

	records   map[string]domain.ConfigRecord
	order     []string
	// userRecords, when set, answers list calls per user instead of records
	userRecords map[string][]domain.ConfigRecord
	listErr   error
	listCalls int

	installs   []ports.InstallRequest
	installErr error
	// installStarted is closed when the first install arrives; install then waits on installGate
	installStarted chan struct{}
	installGate    chan struct{}

	saves     []ports.SaveConfigRequest
	saveErr   error
	saveToken string
	blockSave bool
	// saveStarted is closed when the first save arrives; save then waits on saveGate
	saveStarted chan struct{}
	saveGate    chan struct{}

	// dropOnRefresh removes records on the next list call, simulating a server-side removal
	dropOnRefresh []string

	sessions []domain.Session
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token:   "bearer-1",
		records: map[string]domain.ConfigRecord{},
	}
}

func (b *fakeBackend) put(rec domain.ConfigRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putLocked(rec)
}

func (b *fakeBackend) putLocked(rec domain.ConfigRecord) {
	if _, ok := b.records[rec.PageID]; !ok {
		b.order = append(b.order, rec.PageID)
	}
	b.records[rec.PageID] = rec
}

func (b *fakeBackend) ExchangeToken(_ context.Context, _ string) (string, error) {
	if b.exchangeErr != nil {
		return "", b.exchangeErr
	}
	return b.token, nil
}

func (b *fakeBackend) ListConfigs(_ context.Context, session domain.Session) ([]domain.ConfigRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	b.sessions = append(b.sessions, session)
	if b.listErr != nil {
		return nil, b.listErr
	}
	if b.userRecords != nil {
		return b.userRecords[session.UserID], nil
	}
	for _, id := range b.dropOnRefresh {
		delete(b.records, id)
	}
	b.dropOnRefresh = nil

	var out []domain.ConfigRecord
	for _, id := range b.order {
		if rec, ok := b.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (b *fakeBackend) InstallPage(ctx context.Context, session domain.Session, req ports.InstallRequest) error {
	b.mu.Lock()
	b.installs = append(b.installs, req)
	b.sessions = append(b.sessions, session)
	started, gate := b.installStarted, b.installGate
	b.installStarted = nil
	installErr := b.installErr
	b.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if installErr != nil {
		return installErr
	}
	b.put(domain.ConfigRecord{PageID: req.PageID})
	return nil
}

func (b *fakeBackend) SaveConfig(ctx context.Context, session domain.Session, req ports.SaveConfigRequest) (*ports.SaveConfigResponse, error) {
	b.mu.Lock()
	b.saves = append(b.saves, req)
	b.sessions = append(b.sessions, session)
	saveErr, block := b.saveErr, b.blockSave
	started, gate := b.saveStarted, b.saveGate
	b.saveStarted = nil
	b.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if saveErr != nil {
		return nil, saveErr
	}
	b.put(domain.ConfigRecord{
		PageID: req.PageID,
		PageFields: domain.PageFields{
			WebhookURL: req.PageWebhookURL,
			ShopLink:   req.ShopLink,
			Field:      req.Field,
			Location:   req.Location,
		},
	})
	return &ports.SaveConfigResponse{Token: b.saveToken}, nil
}

func (b *fakeBackend) installCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.installs)
}

func (b *fakeBackend) listCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.PageEvent
}

func (r *eventRecorder) Publish(event *domain.PageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
}

func (r *eventRecorder) ofType(t domain.PageEventType) []domain.PageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PageEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var errBoom = errors.New("boom")
