package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammadpnp/wiki-auth/internal/config"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// watchlisttoken is an internal remote token, never importable regardless of
// the configured skip list.
const implicitSkipOption = "watchlisttoken"

var infiniteExpiryTokens = map[string]struct{}{
	"infinite":   {},
	"indefinite": {},
	"infinity":   {},
	"never":      {},
}

// Importer populates a freshly materialized local account from the remote
// profile: credential, groups, email, preferences, watchlist jobs, and edit
// reattribution jobs. Every step is independently best-effort; once the user
// has authenticated, partial enrichment is preferred over denying access.
type Importer struct {
	cfg       *config.Config
	accounts  domain.AccountStore
	groups    domain.GroupStore
	options   domain.OptionStore
	jobs      domain.JobEnqueuer
	stash     *CredentialStash
	scheduler *ReattributionScheduler
	logger    logrus.FieldLogger
}

func NewImporter(
	cfg *config.Config,
	accounts domain.AccountStore,
	groups domain.GroupStore,
	options domain.OptionStore,
	jobs domain.JobEnqueuer,
	stash *CredentialStash,
	scheduler *ReattributionScheduler,
	logger logrus.FieldLogger,
) *Importer {
	return &Importer{
		cfg:       cfg,
		accounts:  accounts,
		groups:    groups,
		options:   options,
		jobs:      jobs,
		stash:     stash,
		scheduler: scheduler,
		logger:    logger,
	}
}

// CompleteAccountCreation finishes materializing an account after a remote
// PASS. The stashed credential is applied first and erased unconditionally,
// so the account stays loginable locally even if everything after fails.
func (im *Importer) CompleteAccountCreation(ctx context.Context, client RemoteClient, account *domain.Account) error {
	if cred, ok := im.stash.Take(account.Name); ok {
		if err := im.applyCredential(ctx, account, cred); err != nil {
			im.logger.WithField("username", account.Name).WithError(err).
				Error("unable to apply imported credential")
		}
	}

	info, err := im.ImportProfile(ctx, client, account)
	if err != nil {
		im.logger.WithField("username", account.Name).WithError(err).
			Error("profile import failed")
	}

	if im.cfg.ReattributeEdits {
		if err := im.scheduler.Schedule(ctx, account.Name); err != nil {
			im.logger.WithField("username", account.Name).WithError(err).
				Error("unable to schedule edit reattribution")
		}
	}

	// Edit count and registration date live directly on the account row;
	// they are not part of the generic profile mutation surface.
	if info != nil {
		registered := parseRemoteTimestamp(info.RegistrationDate)
		if err := im.accounts.UpdateImportedStats(ctx, account.ID, info.EditCount, registered); err != nil {
			return fmt.Errorf("update imported account stats: %w", err)
		}
	}

	return nil
}

func (im *Importer) applyCredential(ctx context.Context, account *domain.Account, cred domain.RemoteCredential) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cred.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash imported password: %w", err)
	}
	return im.accounts.SetPasswordHash(ctx, account.ID, string(hash))
}

// ImportProfile fetches the remote profile and applies groups, email, and
// preferences. When the remote call reports an API-level error the
// profile-derived mutations are skipped entirely but the login stands;
// (nil, nil) is returned in that case.
func (im *Importer) ImportProfile(ctx context.Context, client RemoteClient, account *domain.Account) (*domain.RemoteUserInfo, error) {
	var resp userInfoResponse
	if err := client.Get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"userinfo"},
		"uiprop": {"blockinfo|hasmsg|editcount|groups|groupmemberships|options|email|realname|registrationdate"},
		"assert": {"user"},
	}, &resp); err != nil {
		return nil, err
	}

	if im.cfg.ImportWatchlist {
		if err := im.importWatchlist(ctx, client, account.Name); err != nil {
			im.logger.WithField("username", account.Name).WithError(err).
				Error("watchlist import failed")
		}
	}

	if resp.Error != nil {
		im.logger.WithFields(logrus.Fields{
			"username": account.Name,
			"code":     resp.Error.Code,
			"info":     resp.Error.Info,
		}).Error("unable to load remote user information due to error in remote API")
		return nil, nil
	}

	info := toRemoteUserInfo(&resp)

	// There is no local notification bridge for remote talk pages, so unread
	// messages are surfaced to operators in the log.
	if info.HasNewMessages {
		im.logger.WithField("username", account.Name).
			Info("remote account has unread talk page messages")
	}

	im.applyGroups(ctx, account, info)
	im.applyEmail(ctx, account, info)
	im.applyOptions(ctx, account, info)

	return info, nil
}

// importWatchlist pages through the remote watchlist, flushing every full
// batch to the job queue as it fills. Only one page plus one accumulating
// batch is ever resident.
func (im *Importer) importWatchlist(ctx context.Context, client RemoteClient, username string) error {
	pagesPerJob := im.cfg.PagesPerJob(im.logger)

	params := url.Values{
		"action":  {"query"},
		"list":    {"watchlistraw"},
		"wrprop":  {"changed"},
		"wrlimit": {"max"},
		"assert":  {"user"},
	}

	batch := make([]domain.WatchlistEntry, 0, pagesPerJob)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		pages := make([]domain.WatchlistEntry, len(batch))
		copy(pages, batch)
		err := im.jobs.EnqueueBatch(ctx, []domain.JobDescriptor{{
			Kind:    domain.JobPopulateWatchlist,
			Payload: domain.WatchlistBatchPayload{Username: username, Pages: pages},
		}})
		if err != nil {
			return fmt.Errorf("enqueue watchlist batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for {
		var resp watchlistRawResponse
		if err := client.Get(ctx, params, &resp); err != nil {
			return err
		}

		if resp.Error != nil {
			im.logger.WithFields(logrus.Fields{
				"username": username,
				"code":     resp.Error.Code,
				"info":     resp.Error.Info,
			}).Error("unable to load remote user watchlist due to error in remote API")
			break
		}

		for _, row := range resp.WatchlistRaw {
			batch = append(batch, domain.WatchlistEntry{
				Namespace: row.NS,
				Title:     row.Title,
				Changed:   row.Changed,
			})
			if len(batch) >= pagesPerJob {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		cont, ok := resp.continuation()
		if !ok {
			break
		}
		params.Set("wrcontinue", cont)
	}

	return flush()
}

func (im *Importer) applyGroups(ctx context.Context, account *domain.Account, info *domain.RemoteUserInfo) {
	valid := map[string]struct{}{}
	for _, g := range im.cfg.ValidGroups() {
		valid[g] = struct{}{}
	}
	if len(valid) == 0 {
		return
	}

	// groupmemberships carries expiries but only exists on newer remotes;
	// fall back to the bare group list when absent.
	if info.GroupMemberships != nil {
		for _, m := range info.GroupMemberships {
			if _, ok := valid[m.Group]; !ok {
				continue
			}
			expiry := im.normalizeExpiry(account.Name, m.Expiry)
			if err := im.groups.AddMembership(ctx, account.ID, m.Group, expiry); err != nil {
				im.logger.WithFields(logrus.Fields{
					"username": account.Name,
					"group":    m.Group,
				}).WithError(err).Error("unable to import group membership")
			}
		}
		return
	}

	for _, g := range info.Groups {
		if _, ok := valid[g]; !ok {
			continue
		}
		if err := im.groups.AddMembership(ctx, account.ID, g, nil); err != nil {
			im.logger.WithFields(logrus.Fields{
				"username": account.Name,
				"group":    g,
			}).WithError(err).Error("unable to import group membership")
		}
	}
}

func (im *Importer) normalizeExpiry(username, raw string) *time.Time {
	if _, infinite := infiniteExpiryTokens[raw]; infinite || raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		im.logger.WithFields(logrus.Fields{
			"username": username,
			"expiry":   raw,
		}).Warn("unparseable group expiry, importing without one")
		return nil
	}
	return &ts
}

func (im *Importer) applyEmail(ctx context.Context, account *domain.Account, info *domain.RemoteUserInfo) {
	if info.Email == "" {
		return
	}

	if info.EmailAuthenticated != "" {
		if ts := parseRemoteTimestamp(info.EmailAuthenticated); ts != nil {
			if err := im.accounts.SetAuthenticatedEmail(ctx, account.ID, info.Email, *ts); err != nil {
				im.logger.WithField("username", account.Name).WithError(err).
					Error("unable to import authenticated email")
			}
			return
		}
	}

	// No usable authentication timestamp: the address goes in pending local
	// re-confirmation.
	if err := im.accounts.SetPendingEmail(ctx, account.ID, info.Email); err != nil {
		im.logger.WithField("username", account.Name).WithError(err).
			Error("unable to import email")
	}
}

func (im *Importer) applyOptions(ctx context.Context, account *domain.Account, info *domain.RemoteUserInfo) {
	if len(info.Options) == 0 {
		return
	}

	current, err := im.options.CurrentOptions(ctx, account.ID)
	if err != nil {
		im.logger.WithField("username", account.Name).WithError(err).
			Error("unable to load current options")
		return
	}

	importAll := false
	importSet := map[string]struct{}{}
	for _, key := range im.cfg.ImportOptions {
		if key == "*" {
			importAll = true
			continue
		}
		importSet[key] = struct{}{}
	}

	skip := map[string]struct{}{implicitSkipOption: {}}
	for _, key := range im.cfg.SkipOptions {
		skip[key] = struct{}{}
	}

	allowedSkins := map[string]struct{}{}
	for _, s := range im.cfg.AllowedSkins {
		allowedSkins[s] = struct{}{}
	}

	for key, raw := range info.Options {
		if _, skipped := skip[key]; skipped {
			continue
		}
		if !importAll {
			if _, ok := importSet[key]; !ok {
				continue
			}
		}
		// only keys that already exist locally are valid option keys
		cur, known := current[key]
		if !known {
			continue
		}

		value := optionValueString(raw)
		if key == "skin" {
			if _, ok := allowedSkins[value]; !ok {
				continue
			}
		}
		if cur == value {
			continue
		}

		if err := im.options.SetOption(ctx, account.ID, key, value); err != nil {
			im.logger.WithFields(logrus.Fields{
				"username": account.Name,
				"option":   key,
			}).WithError(err).Error("unable to import option")
		}
	}
}

func toRemoteUserInfo(resp *userInfoResponse) *domain.RemoteUserInfo {
	ui := resp.Query.UserInfo

	info := &domain.RemoteUserInfo{
		Name:               ui.Name,
		Groups:             ui.Groups,
		Email:              ui.Email,
		EmailAuthenticated: ui.EmailAuthenticated,
		Options:            ui.Options,
		EditCount:          ui.EditCount,
		RegistrationDate:   ui.RegistrationDate,
		HasNewMessages:     ui.Messages,
	}

	if ui.GroupMemberships != nil {
		info.GroupMemberships = make([]domain.GroupMembership, 0, len(ui.GroupMemberships))
		for _, m := range ui.GroupMemberships {
			info.GroupMemberships = append(info.GroupMemberships, domain.GroupMembership{
				Group:  m.Group,
				Expiry: m.Expiry,
			})
		}
	}

	return info
}

// optionValueString renders a remote option value the way the local option
// store keeps it: MediaWiki serializes booleans and numbers as strings.
func optionValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func parseRemoteTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &ts
}
