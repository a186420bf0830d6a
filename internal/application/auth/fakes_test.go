package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mohammadpnp/wiki-auth/internal/config"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RemoteAPIURL = "https://remote.example/w/api.php"
	cfg.ServerURL = "https://local.example"
	return cfg
}

type remoteCall struct {
	params url.Values
	form   url.Values
}

// scriptedClient replays canned JSON bodies in call order and records every
// request it sees.
type scriptedClient struct {
	t         *testing.T
	responses []string
	calls     []remoteCall
	err       error
}

func (c *scriptedClient) Get(ctx context.Context, params url.Values, out any) error {
	c.calls = append(c.calls, remoteCall{params: cloneValues(params)})
	return c.reply(out)
}

func (c *scriptedClient) PostForm(ctx context.Context, params, form url.Values, out any) error {
	c.calls = append(c.calls, remoteCall{params: cloneValues(params), form: cloneValues(form)})
	return c.reply(out)
}

func (c *scriptedClient) reply(out any) error {
	if c.err != nil {
		return c.err
	}
	if len(c.responses) == 0 {
		c.t.Fatal("remote client called with no scripted response left")
	}
	body := c.responses[0]
	c.responses = c.responses[1:]
	return json.Unmarshal([]byte(body), out)
}

func cloneValues(in url.Values) url.Values {
	out := url.Values{}
	for k, vs := range in {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

type emailWrite struct {
	email         string
	authenticated *time.Time
}

type fakeAccountStore struct {
	accounts map[string]*domain.Account
	nextID   int64

	passwordHashes  map[int64]string
	emails          map[int64]emailWrite
	statsEditCount  int64
	statsRegistered *time.Time
	statsCalled     bool
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts:       map[string]*domain.Account{},
		nextID:         1,
		passwordHashes: map[int64]string{},
		emails:         map[int64]emailWrite{},
	}
}

func (f *fakeAccountStore) add(account domain.Account) *domain.Account {
	if account.ID == 0 {
		account.ID = f.nextID
		f.nextID++
	}
	f.accounts[account.Name] = &account
	return &account
}

func (f *fakeAccountStore) FindByName(ctx context.Context, name string) (*domain.Account, error) {
	account, ok := f.accounts[name]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountStore) Create(ctx context.Context, name string) (*domain.Account, error) {
	return f.add(domain.Account{Name: name}), nil
}

func (f *fakeAccountStore) SetPasswordHash(ctx context.Context, accountID int64, hash string) error {
	f.passwordHashes[accountID] = hash
	return nil
}

func (f *fakeAccountStore) SetAuthenticatedEmail(ctx context.Context, accountID int64, email string, authenticatedAt time.Time) error {
	f.emails[accountID] = emailWrite{email: email, authenticated: &authenticatedAt}
	return nil
}

func (f *fakeAccountStore) SetPendingEmail(ctx context.Context, accountID int64, email string) error {
	f.emails[accountID] = emailWrite{email: email}
	return nil
}

func (f *fakeAccountStore) UpdateImportedStats(ctx context.Context, accountID int64, editCount int64, registeredAt *time.Time) error {
	f.statsCalled = true
	f.statsEditCount = editCount
	f.statsRegistered = registeredAt
	return nil
}

type membershipWrite struct {
	group  string
	expiry *time.Time
}

type fakeGroupStore struct {
	memberships []membershipWrite
}

func (f *fakeGroupStore) AddMembership(ctx context.Context, accountID int64, group string, expiry *time.Time) error {
	f.memberships = append(f.memberships, membershipWrite{group: group, expiry: expiry})
	return nil
}

type fakeOptionStore struct {
	current map[string]string
	writes  map[string]string
}

func newFakeOptionStore(current map[string]string) *fakeOptionStore {
	return &fakeOptionStore{current: current, writes: map[string]string{}}
}

func (f *fakeOptionStore) CurrentOptions(ctx context.Context, accountID int64) (map[string]string, error) {
	return f.current, nil
}

func (f *fakeOptionStore) SetOption(ctx context.Context, accountID int64, key, value string) error {
	f.writes[key] = value
	return nil
}

type fakeJobEnqueuer struct {
	batches [][]domain.JobDescriptor
}

func (f *fakeJobEnqueuer) EnqueueBatch(ctx context.Context, jobs []domain.JobDescriptor) error {
	batch := make([]domain.JobDescriptor, len(jobs))
	copy(batch, jobs)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeJobEnqueuer) all() []domain.JobDescriptor {
	var out []domain.JobDescriptor
	for _, batch := range f.batches {
		out = append(out, batch...)
	}
	return out
}

type fakeActorSource struct {
	pairs map[string][]domain.ActorMigrationPair
}

func (f *fakeActorSource) MigrationPairs(ctx context.Context, username string) ([]domain.ActorMigrationPair, error) {
	return f.pairs[username], nil
}

type fakeReattributionStore struct {
	ids     map[string][]string
	logIDs  []string
	queried []string
}

func (f *fakeReattributionStore) SelectIDs(ctx context.Context, table domain.ContentTable, oldActorIDs []int64) ([]string, error) {
	f.queried = append(f.queried, table.Name)
	return f.ids[table.Name], nil
}

func (f *fakeReattributionStore) SelectLogSearchIDs(ctx context.Context, oldActorIDs []int64) ([]string, error) {
	f.queried = append(f.queried, domain.LogSearchTable)
	return f.logIDs, nil
}

type fakeWatchlistStore struct {
	entries []domain.WatchlistEntry
}

func (f *fakeWatchlistStore) AddEntries(ctx context.Context, accountID int64, entries []domain.WatchlistEntry) (int64, error) {
	f.entries = append(f.entries, entries...)
	return int64(len(entries)), nil
}

type applierCall struct {
	table string
	ids   []string
	pairs []domain.ActorMigrationPair
}

type fakeApplier struct {
	calls []applierCall
}

func (f *fakeApplier) Reattribute(ctx context.Context, table domain.ContentTable, ids []string, pairs []domain.ActorMigrationPair) (int64, error) {
	f.calls = append(f.calls, applierCall{table: table.Name, ids: ids, pairs: pairs})
	return int64(len(ids)), nil
}

func (f *fakeApplier) ReattributeLogSearch(ctx context.Context, ids []string, pairs []domain.ActorMigrationPair) (int64, error) {
	f.calls = append(f.calls, applierCall{table: domain.LogSearchTable, ids: ids, pairs: pairs})
	return int64(len(ids)), nil
}
