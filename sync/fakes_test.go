// ABOUTME: In-memory fakes for the sync pipeline's ports
// ABOUTME: Records every store call and can inject failures per operation
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/networkgpt/networkgpt/models"
	"google.golang.org/api/people/v1"
)

var errInjected = errors.New("injected failure")

type fakeStore struct {
	mu       gosync.Mutex
	contacts []*models.Contact
	links    map[uuid.UUID][]models.SocialLink
	calls    []string

	listErr   error
	failOn    map[string]int // operation name -> 1-based call number that fails
	callCount map[string]int
	panicOn   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		links:     make(map[uuid.UUID][]models.SocialLink),
		failOn:    make(map[string]int),
		callCount: make(map[string]int),
	}
}

func (f *fakeStore) record(op string) error {
	f.calls = append(f.calls, op)
	f.callCount[op]++
	if op == f.panicOn {
		panic("malformed record")
	}
	if n, ok := f.failOn[op]; ok && n == f.callCount[op] {
		return errInjected
	}
	return nil
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount[op]
}

func (f *fakeStore) seed(accountID int64, externalID string, c models.Contact) *models.Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uuid.New()
	c.AccountID = accountID
	if externalID != "" {
		id := externalID
		c.ExternalID = &id
	}
	f.contacts = append(f.contacts, &c)
	return &c
}

func (f *fakeStore) FindByExternalID(_ context.Context, accountID int64, externalID string) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("find"); err != nil {
		return nil, err
	}
	for _, c := range f.contacts {
		if c.AccountID == accountID && c.ExternalID != nil && *c.ExternalID == externalID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListForAccount(_ context.Context, accountID int64) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Contact
	for _, c := range f.contacts {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, accountID int64, attrs models.ContactAttrs) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create"); err != nil {
		return nil, err
	}
	now := time.Now()
	c := &models.Contact{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      attrs.Name,
		Email:     attrs.Email,
		Phone:     attrs.Phone,
		Company:   attrs.Company,
		Position:  attrs.Position,
		Notes:     attrs.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if attrs.ExternalID != "" {
		id := attrs.ExternalID
		c.ExternalID = &id
	}
	f.contacts = append(f.contacts, c)
	cp := *c
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, contactID uuid.UUID, changes models.ContactChanges) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update"); err != nil {
		return err
	}
	for _, c := range f.contacts {
		if c.ID == contactID {
			changes.Apply(c)
			return nil
		}
	}
	return errors.New("contact not found")
}

func (f *fakeStore) ListSocialLinks(_ context.Context, contactID uuid.UUID) ([]models.SocialLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("links"); err != nil {
		return nil, err
	}
	return append([]models.SocialLink(nil), f.links[contactID]...), nil
}

func (f *fakeStore) AddSocialLink(_ context.Context, contactID uuid.UUID, platform, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("add_link"); err != nil {
		return err
	}
	for _, l := range f.links[contactID] {
		if l.URL == url {
			return nil
		}
	}
	f.links[contactID] = append(f.links[contactID], models.SocialLink{
		ID:        uuid.New(),
		ContactID: contactID,
		Platform:  platform,
		URL:       url,
	})
	return nil
}

func (f *fakeStore) byExternalID(externalID string) *models.Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts {
		if c.ExternalID != nil && *c.ExternalID == externalID {
			cp := *c
			return &cp
		}
	}
	return nil
}

type fakeRuns struct {
	mu       gosync.Mutex
	opened   int
	closed   int
	openErr  error
	lastRun  *models.SyncRun
	stats    models.SyncStats
	runErr   error
	closeCtx context.Context
}

func (f *fakeRuns) OpenRun(_ context.Context, accountID int64) (*models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	f.lastRun = &models.SyncRun{ID: "run-1", AccountID: accountID, StartedAt: time.Now()}
	return f.lastRun, nil
}

func (f *fakeRuns) CloseRun(ctx context.Context, run *models.SyncRun, stats models.SyncStats, runErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.stats = stats
	f.runErr = runErr
	f.closeCtx = ctx
	now := time.Now()
	run.FinishedAt = &now
	run.Success = runErr == nil
	run.SyncStats = stats
	return nil
}

type fakeSource struct {
	persons []*people.Person
	err     error
	calls   int
	onFetch func()
}

func (f *fakeSource) FetchAll(_ context.Context, _ *models.Account) ([]*people.Person, error) {
	f.calls++
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.persons, f.err
}

func authorizedAccount() *models.Account {
	return &models.Account{ID: 7, TelegramID: 1001, GoogleAccessToken: "access", GoogleRefreshToken: "refresh"}
}
