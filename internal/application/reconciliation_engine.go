package application

import (
	"context"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SaveResult is the outcome of a successful saveConfig
type SaveResult struct {
	CommandID    string `json:"command_id"`
	Token        string `json:"token"`
	DraftCleared bool   `json:"draft_cleared"`
}

// InstallResult is the outcome of a successful install
type InstallResult struct {
	CommandID string `json:"command_id"`
}

// ReconciliationEngine merges provider pages, backend records and drafts into page view
// models and runs the install and saveConfig commands.
type ReconciliationEngine struct {
	gateway  *IdentityGateway
	registry *ConfigRegistry
	drafts   *DraftStore
	backend  ports.BackendClient
	guard    ports.InFlightGuard
	events   ports.EventPublisher
	audit    ports.CommandRepository
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewReconciliationEngine creates a new engine. audit may be nil.
func NewReconciliationEngine(
	gateway *IdentityGateway,
	registry *ConfigRegistry,
	drafts *DraftStore,
	backend ports.BackendClient,
	guard ports.InFlightGuard,
	events ports.EventPublisher,
	audit ports.CommandRepository,
	timeout time.Duration,
	logger zerolog.Logger,
) *ReconciliationEngine {
	return &ReconciliationEngine{
		gateway:  gateway,
		registry: registry,
		drafts:   drafts,
		backend:  backend,
		guard:    guard,
		events:   events,
		audit:    audit,
		timeout:  timeout,
		logger:   logger,
	}
}

// Login creates the session and runs the eager refresh.
// A failed refresh does not undo the login; it shows up in Status.
func (e *ReconciliationEngine) Login(ctx context.Context, cred ports.ProviderCredential) (*domain.Session, error) {
	session, err := e.gateway.Login(ctx, cred)
	if err != nil {
		return nil, err
	}

	e.registry.Reset(session.Generation)
	e.drafts.Reset()

	if _, err := e.registry.Refresh(ctx, *session); err != nil {
		e.logger.Warn().Err(err).Str("userId", session.UserID).Msg("Initial refresh failed after login")
	}
	return session, nil
}

// Logout drops the session and every piece of per-session state
func (e *ReconciliationEngine) Logout() {
	e.gateway.Logout()
	e.registry.Reset(0)
	e.drafts.Reset()
	e.logger.Info().Msg("Operator logged out")
}

// Refresh re-fetches the backend records for the session user
func (e *ReconciliationEngine) Refresh(ctx context.Context) error {
	session, err := e.gateway.Session()
	if err != nil {
		return err
	}
	_, err = e.registry.Refresh(ctx, session)
	return err
}

// ReloadPages re-fetches the provider page list
func (e *ReconciliationEngine) ReloadPages(ctx context.Context) ([]domain.PageAsset, error) {
	return e.gateway.ReloadPages(ctx)
}

// SetField records a draft edit for a page granted to the session
func (e *ReconciliationEngine) SetField(pageID string, field domain.Field, value string) error {
	if _, err := e.gateway.Page(pageID); err != nil {
		return err
	}
	return e.drafts.SetField(pageID, field, value)
}

// Session returns the current session
func (e *ReconciliationEngine) Session() (domain.Session, error) {
	return e.gateway.Session()
}

// Status returns the registry freshness
func (e *ReconciliationEngine) Status() RegistryStatus {
	return e.registry.Status()
}

// ViewModels derives the view model of every page in provider order
func (e *ReconciliationEngine) ViewModels(ctx context.Context) ([]domain.PageViewModel, error) {
	pages, err := e.gateway.Pages()
	if err != nil {
		return nil, err
	}
	out := make([]domain.PageViewModel, 0, len(pages))
	for _, asset := range pages {
		out = append(out, e.viewModel(ctx, asset))
	}
	return out, nil
}

// ViewModel derives the view model of one page
func (e *ReconciliationEngine) ViewModel(ctx context.Context, pageID string) (domain.PageViewModel, error) {
	asset, err := e.gateway.Page(pageID)
	if err != nil {
		return domain.PageViewModel{}, err
	}
	return e.viewModel(ctx, asset), nil
}

func (e *ReconciliationEngine) viewModel(ctx context.Context, asset domain.PageAsset) domain.PageViewModel {
	var record *domain.ConfigRecord
	if rec, ok := e.registry.Get(asset.PageID); ok {
		record = &rec
	}
	var draft *domain.Draft
	if d, ok := e.drafts.Get(asset.PageID); ok {
		draft = &d
	}
	inFlight := e.guard.Held(ctx, guardKey(asset.PageID))
	return domain.BuildPageViewModel(asset, record, draft, inFlight)
}

// History returns the audited command outcomes of a page, newest first
func (e *ReconciliationEngine) History(ctx context.Context, pageID string, limit int64) ([]*domain.CommandRecord, error) {
	if _, err := e.gateway.Page(pageID); err != nil {
		return nil, err
	}
	if e.audit == nil {
		return []*domain.CommandRecord{}, nil
	}
	records, err := e.audit.ListByPage(ctx, pageID, limit)
	if err != nil {
		return nil, domain.Classify(domain.KindFetchError, pageID, err)
	}
	return records, nil
}

// Install associates a page with the backend. An empty pageAccessToken falls back to
// the token the provider returned for the page.
func (e *ReconciliationEngine) Install(ctx context.Context, pageID, pageAccessToken string) (*InstallResult, error) {
	session, err := e.gateway.Session()
	if err != nil {
		return nil, err
	}
	asset, err := e.gateway.Page(pageID)
	if err != nil {
		return nil, err
	}
	if pageAccessToken == "" {
		pageAccessToken = asset.PageAccessToken
	}
	if e.registry.Has(pageID) {
		return nil, domain.NewError(domain.KindAlreadyInstalled, pageID, nil)
	}

	release, err := e.acquire(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer release()

	// a command that finished while we waited may have installed the page
	if e.registry.Has(pageID) {
		return nil, domain.NewError(domain.KindAlreadyInstalled, pageID, nil)
	}

	commandID := uuid.NewString()
	ctx = domain.WithCommandID(ctx, commandID)
	start := time.Now()

	req := ports.InstallRequest{
		PageAccessToken: pageAccessToken,
		PageID:          pageID,
		UserID:          session.UserID,
	}
	if err := e.call(ctx, func(ctx context.Context) error {
		return e.backend.InstallPage(ctx, session, req)
	}); err != nil {
		err = domain.Classify(domain.KindMutationFailed, pageID, err)
		e.commandFailed(ctx, domain.CommandInstall, commandID, pageID, session.UserID, start, err)
		return nil, err
	}

	e.refreshAfter(ctx, session, pageID)
	e.commandSucceeded(ctx, domain.EventPageInstalled, domain.CommandInstall, commandID, pageID, session.UserID, start)

	return &InstallResult{CommandID: commandID}, nil
}

// SaveConfig submits the four effective fields of an installed page.
// On failure the draft is kept.
func (e *ReconciliationEngine) SaveConfig(ctx context.Context, pageID string) (*SaveResult, error) {
	session, err := e.gateway.Session()
	if err != nil {
		return nil, err
	}
	if _, err := e.gateway.Page(pageID); err != nil {
		return nil, err
	}
	if _, _, err := e.savePayload(pageID); err != nil {
		return nil, err
	}

	release, err := e.acquire(ctx, pageID)
	if err != nil {
		return nil, err
	}
	defer release()

	// effective values may have moved since the caller rendered the page
	req, revision, err := e.savePayload(pageID)
	if err != nil {
		return nil, err
	}

	commandID := uuid.NewString()
	ctx = domain.WithCommandID(ctx, commandID)
	start := time.Now()

	var resp *ports.SaveConfigResponse
	if err := e.call(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.backend.SaveConfig(ctx, session, req)
		return callErr
	}); err != nil {
		err = domain.Classify(domain.KindMutationFailed, pageID, err)
		e.commandFailed(ctx, domain.CommandSaveConfig, commandID, pageID, session.UserID, start, err)
		return nil, err
	}

	// drafts belong to whoever is logged in now; leave them alone after a re-login
	cleared := false
	if e.registry.Current(session) {
		cleared = e.drafts.ClearIfRevision(pageID, revision)
	}
	e.refreshAfter(ctx, session, pageID)
	e.commandSucceeded(ctx, domain.EventPageConfigSaved, domain.CommandSaveConfig, commandID, pageID, session.UserID, start)

	result := &SaveResult{CommandID: commandID, DraftCleared: cleared}
	if resp != nil {
		result.Token = resp.Token
	}
	return result, nil
}

// savePayload builds the save request from the current effective values and returns the
// draft revision it was built from.
func (e *ReconciliationEngine) savePayload(pageID string) (ports.SaveConfigRequest, uint64, error) {
	record, ok := e.registry.Get(pageID)
	if !ok {
		return ports.SaveConfigRequest{}, 0, domain.NewError(domain.KindNotInstalled, pageID, nil)
	}
	var draftPtr *domain.Draft
	var revision uint64
	if d, ok := e.drafts.Get(pageID); ok {
		draftPtr = &d
		revision = d.Revision
	}
	eff := domain.EffectiveFields(&record, draftPtr)
	if !domain.CanSave(true, eff) {
		return ports.SaveConfigRequest{}, 0, domain.Errorf(domain.KindConfigIncomplete, pageID, "missing fields %v", eff.Missing())
	}
	return ports.SaveConfigRequest{
		PageWebhookURL: eff.WebhookURL,
		PageID:         pageID,
		Location:       eff.Location,
		Field:          eff.Field,
		ShopLink:       eff.ShopLink,
	}, revision, nil
}

func (e *ReconciliationEngine) acquire(ctx context.Context, pageID string) (func(), error) {
	release, ok, err := e.guard.Acquire(ctx, guardKey(pageID))
	if err != nil {
		e.logger.Error().Err(err).Str("pageId", pageID).Msg("Failed to acquire page guard")
		return nil, domain.Classify(domain.KindMutationFailed, pageID, err)
	}
	if !ok {
		return nil, domain.NewError(domain.KindCommandInFlight, pageID, nil)
	}
	return release, nil
}

func (e *ReconciliationEngine) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// refreshAfter runs the follow-up refresh of a successful mutation. Its failure does not
// fail the command.
func (e *ReconciliationEngine) refreshAfter(ctx context.Context, session domain.Session, pageID string) {
	if _, err := e.registry.Refresh(ctx, session); err != nil {
		e.logger.Warn().
			Err(err).
			Str("pageId", pageID).
			Str("commandId", domain.GetCommandIDFromContext(ctx)).
			Msg("Refresh after command failed, view may be stale")
	}
}

func (e *ReconciliationEngine) commandSucceeded(
	ctx context.Context,
	eventType domain.PageEventType,
	command domain.CommandName,
	commandID, pageID, userID string,
	start time.Time,
) {
	duration := time.Since(start)
	commandsTotal.WithLabelValues(string(command), "success").Inc()
	commandDuration.WithLabelValues(string(command)).Observe(duration.Seconds())

	e.logger.Info().
		Str("command", string(command)).
		Str("commandId", commandID).
		Str("pageId", pageID).
		Dur("duration", duration).
		Msg("Page command succeeded")

	e.record(ctx, &domain.CommandRecord{
		CommandID: commandID,
		Command:   command,
		PageID:    pageID,
		UserID:    userID,
		Succeeded: true,
		Duration:  duration,
	})
	e.publish(&domain.PageEvent{
		Type:      eventType,
		PageID:    pageID,
		CommandID: commandID,
		Command:   command,
		UserID:    userID,
		Duration:  duration,
	})
}

func (e *ReconciliationEngine) commandFailed(
	ctx context.Context,
	command domain.CommandName,
	commandID, pageID, userID string,
	start time.Time,
	err error,
) {
	duration := time.Since(start)
	commandsTotal.WithLabelValues(string(command), outcomeLabel(err)).Inc()
	commandDuration.WithLabelValues(string(command)).Observe(duration.Seconds())

	e.logger.Error().
		Err(err).
		Str("command", string(command)).
		Str("commandId", commandID).
		Str("pageId", pageID).
		Msg("Page command failed")

	e.record(ctx, &domain.CommandRecord{
		CommandID: commandID,
		Command:   command,
		PageID:    pageID,
		UserID:    userID,
		ErrorKind: domain.KindOf(err),
		Error:     err.Error(),
		Duration:  duration,
	})
	e.publish(&domain.PageEvent{
		Type:      domain.EventCommandFailed,
		PageID:    pageID,
		CommandID: commandID,
		Command:   command,
		UserID:    userID,
		Error:     err.Error(),
		ErrorKind: domain.KindOf(err),
		Duration:  duration,
	})
}

// record stores a command outcome before the command returns. A storage failure is
// logged and does not change the command result.
func (e *ReconciliationEngine) record(ctx context.Context, rec *domain.CommandRecord) {
	if e.audit == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	rec.OccurredAt = time.Now()
	if err := e.audit.Record(ctx, rec); err != nil {
		e.logger.Error().
			Err(err).
			Str("commandId", rec.CommandID).
			Str("pageId", rec.PageID).
			Msg("Failed to record command outcome")
	}
}

func (e *ReconciliationEngine) publish(event *domain.PageEvent) {
	if e.events == nil {
		return
	}
	event.OccurredAt = time.Now()
	e.events.Publish(event)
}

func guardKey(pageID string) string {
	return "page:" + pageID
}
