package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/mohammadpnp/wiki-auth/internal/config"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// RemoteClient is the session-scoped API client used for one login attempt.
type RemoteClient interface {
	Get(ctx context.Context, params url.Values, out any) error
	PostForm(ctx context.Context, params, form url.Values, out any) error
}

// ClientFactory builds a fresh session client (with its own cookie jar) for
// each negotiation, so remote session cookies never leak across users.
type ClientFactory func() (RemoteClient, error)

type AuthStatus int

const (
	// StatusAbstain means this request is not ours to judge: another
	// mechanism may handle it. Never treated as a failure.
	StatusAbstain AuthStatus = iota
	// StatusFail means the remote wiki rejected the credential.
	StatusFail
	// StatusPass means the remote wiki accepted the credential.
	StatusPass
)

type LoginRequest struct {
	Username string
	Password string
}

// PasswordReset describes the post-login reset prompt. Hard resets are
// mandatory; they are forced by bot-credential logins and by import-only
// mode, where the local account otherwise keeps an unusable credential.
type PasswordReset struct {
	Required bool
	Hard     bool
}

type Result struct {
	Status        AuthStatus
	Username      string
	Message       string
	PasswordReset PasswordReset

	// Session is the authenticated remote session. Valid only on PASS;
	// account materialization reuses it so profile calls carry the remote
	// login cookies.
	Session RemoteClient

	// StubImported reports that the login activated a pre-existing stub
	// account and the import already ran synchronously.
	StubImported bool
}

const (
	existenceCacheSize = 4096
	existenceCacheTTL  = time.Minute

	loginResultSuccess   = "Success"
	loginResultNeedToken = "NeedToken"
	clientLoginPass      = "PASS"
)

var remoteVersionCutoff = domain.Version{Major: 1, Minor: 27}

// Negotiator drives the remote-authentication protocol: it decides which of
// the three login dialects to speak based on the remote software version and
// the credential shape, and hands successful logins off to the importer.
type Negotiator struct {
	cfg       *config.Config
	newClient ClientFactory
	accounts  domain.AccountStore
	stash     *CredentialStash
	importer  *Importer
	existence *expirable.LRU[string, bool]
	logger    logrus.FieldLogger
}

func NewNegotiator(
	cfg *config.Config,
	newClient ClientFactory,
	accounts domain.AccountStore,
	stash *CredentialStash,
	importer *Importer,
	logger logrus.FieldLogger,
) *Negotiator {
	return &Negotiator{
		cfg:       cfg,
		newClient: newClient,
		accounts:  accounts,
		stash:     stash,
		importer:  importer,
		existence: expirable.NewLRU[string, bool](existenceCacheSize, nil, existenceCacheTTL),
		logger:    logger,
	}
}

// BeginAuthentication authenticates a credential against the remote wiki.
// Protocol-level rejections (bad password, unsupported interactive steps on
// the remote side) map to StatusFail; transport and protocol errors from the
// remote client are returned as hard errors and never attributed to the
// user.
func (n *Negotiator) BeginAuthentication(ctx context.Context, req LoginRequest) (Result, error) {
	abstain := Result{Status: StatusAbstain}

	if req.Username == "" || req.Password == "" {
		return abstain, nil
	}

	// A username of the form name@botname selects bot-credential login.
	rawName := req.Username
	botName := ""
	if name, bot, found := strings.Cut(rawName, "@"); found {
		rawName = name
		botName = bot
	}

	username, err := domain.CanonicalizeUsername(rawName)
	if err != nil {
		return abstain, nil
	}

	existing, err := n.accounts.FindByName(ctx, username)
	if err != nil {
		return Result{}, fmt.Errorf("resolve local account: %w", err)
	}

	if n.cfg.DisableAccountCreation {
		// Import-only mode: only activate pre-existing stub accounts that
		// still carry an unusable credential.
		if existing == nil || existing.CanAuthenticate() {
			return abstain, nil
		}
	} else if existing != nil {
		// Create-new mode: never touch accounts that already exist locally.
		return abstain, nil
	}

	client, err := n.newClient()
	if err != nil {
		return Result{}, err
	}

	exists, err := n.testUserExistsRemote(ctx, client, username)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		return abstain, nil
	}

	// Stash the plaintext password: the framework separates authentication
	// from account materialization, and the materialization step needs it to
	// give the local account a usable credential.
	n.stash.Put(domain.RemoteCredential{
		Username: username,
		Password: req.Password,
		BotName:  botName,
	})

	// Import-only mode leaves the local account with an unusable credential
	// unless the user completes a reset, so the reset is mandatory there.
	reset := PasswordReset{Hard: n.cfg.DisableAccountCreation}

	var siteInfo siteInfoResponse
	if err := client.Get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"general"},
	}, &siteInfo); err != nil {
		return Result{}, err
	}

	remoteVersion, err := domain.ParseGenerator(siteInfo.Query.General.Generator)
	if err != nil {
		return Result{}, fmt.Errorf("detect remote version from %q: %w", siteInfo.Query.General.Generator, err)
	}

	var failMessage string
	switch {
	case remoteVersion.Before(remoteVersionCutoff):
		failMessage, err = n.legacyLogin(ctx, client, username, req.Password, remoteVersion)
	case botName != "":
		// Bot-credential logins always force a reset: the bot password is
		// not a credential the user should keep using locally.
		reset.Hard = true
		failMessage, err = n.botLogin(ctx, client, username, botName, req.Password, remoteVersion)
	default:
		failMessage, err = n.clientLogin(ctx, client, username, req.Password, remoteVersion)
	}
	if err != nil {
		return Result{}, err
	}
	if failMessage != "" {
		n.stash.Drop(username)
		return Result{Status: StatusFail, Username: username, Message: failMessage}, nil
	}

	reset.Required = n.cfg.AllowPasswordChange || reset.Hard

	result := Result{
		Status:        StatusPass,
		Username:      username,
		PasswordReset: reset,
		Session:       client,
	}

	// A pre-existing stub account is materialized synchronously within the
	// auth step; new accounts go through the host's creation callback.
	if existing != nil {
		if err := n.importer.CompleteAccountCreation(ctx, client, existing); err != nil {
			n.logger.WithFields(logrus.Fields{
				"username": username,
			}).WithError(err).Error("stub account import failed")
		}
		result.StubImported = true
	}

	return result, nil
}

// legacyLogin speaks the pre-1.27 single action=login dialect. A NeedToken
// response is retried exactly once with the returned token attached.
func (n *Negotiator) legacyLogin(ctx context.Context, client RemoteClient, username, password string, remoteVersion domain.Version) (string, error) {
	params := url.Values{"action": {"login"}}
	form := url.Values{
		"lgname":     {username},
		"lgpassword": {password},
	}

	var resp loginResponse
	if err := client.PostForm(ctx, params, form, &resp); err != nil {
		return "", err
	}

	if resp.Login.Result == loginResultNeedToken {
		form.Set("lgtoken", resp.Login.Token)
		resp = loginResponse{}
		if err := client.PostForm(ctx, params, form, &resp); err != nil {
			return "", err
		}
	}

	if resp.Login.Result != loginResultSuccess {
		n.logger.WithFields(logrus.Fields{
			"remoteVersion": remoteVersion,
			"username":      username,
			"reason":        resp.Login.Result,
		}).Info("authentication against legacy remote API failed")
		return authFailMessage, nil
	}

	return "", nil
}

// botLogin fetches a login token and authenticates with name@botname
// credentials through action=login.
func (n *Negotiator) botLogin(ctx context.Context, client RemoteClient, username, botName, password string, remoteVersion domain.Version) (string, error) {
	token, err := n.fetchLoginToken(ctx, client)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := client.PostForm(ctx, url.Values{"action": {"login"}}, url.Values{
		"lgname":     {username + "@" + botName},
		"lgpassword": {password},
		"lgtoken":    {token},
	}, &resp); err != nil {
		return "", err
	}

	if resp.Login.Result != loginResultSuccess {
		n.logger.WithFields(logrus.Fields{
			"remoteVersion": remoteVersion,
			"username":      username,
			"reason":        resp.Login.Result,
		}).Info("authentication against BotPassword remote API failed")
		return authFailMessage, nil
	}

	return "", nil
}

// clientLogin speaks the modern multi-step action=clientlogin dialect.
// Remote flows that inject extra steps (OAuth, two-factor, CAPTCHA) are not
// supported and surface as failure.
func (n *Negotiator) clientLogin(ctx context.Context, client RemoteClient, username, password string, remoteVersion domain.Version) (string, error) {
	token, err := n.fetchLoginToken(ctx, client)
	if err != nil {
		return "", err
	}

	var resp clientLoginResponse
	if err := client.PostForm(ctx, url.Values{
		"action":      {"clientlogin"},
		"errorformat": {"raw"},
	}, url.Values{
		"loginreturnurl": {n.cfg.ServerURL},
		"logintoken":     {token},
		"username":       {username},
		"password":       {password},
	}, &resp); err != nil {
		return "", err
	}

	if len(resp.Errors) > 0 {
		first := resp.Errors[0]
		n.logger.WithFields(logrus.Fields{
			"remoteVersion": remoteVersion,
			"username":      username,
			"reason":        first.Code,
		}).Info("authentication against modern remote API failed")
		if first.Text != "" {
			return fmt.Sprintf("%s: %s", authFailMessage, first.Text), nil
		}
		return fmt.Sprintf("%s: %s", authFailMessage, first.Code), nil
	}

	if resp.ClientLogin.Status != clientLoginPass {
		n.logger.WithFields(logrus.Fields{
			"remoteVersion": remoteVersion,
			"username":      username,
			"reason":        resp.ClientLogin.Status,
		}).Info("authentication against modern remote API failed")
		return authFailMessage, nil
	}

	return "", nil
}

func (n *Negotiator) fetchLoginToken(ctx context.Context, client RemoteClient) (string, error) {
	var resp loginTokenResponse
	if err := client.Get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {"login"},
	}, &resp); err != nil {
		return "", err
	}
	return resp.Query.Tokens.LoginToken, nil
}

// testUserExistsRemote checks the remote allusers list for an exact name
// match. Some remote wikis return near-matches even when queried with both
// aufrom and auto, so the equality check after the call is mandatory. The
// result is memoized briefly; the cache is an optimization, never
// authoritative.
func (n *Negotiator) testUserExistsRemote(ctx context.Context, client RemoteClient, username string) (bool, error) {
	if exists, ok := n.existence.Get(username); ok {
		return exists, nil
	}

	var resp allUsersResponse
	if err := client.Get(ctx, url.Values{
		"action":  {"query"},
		"list":    {"allusers"},
		"aufrom":  {username},
		"auto":    {username},
		"aulimit": {"1"},
	}, &resp); err != nil {
		return false, err
	}

	exists := len(resp.Query.AllUsers) == 1 && resp.Query.AllUsers[0].Name == username

	n.existence.Add(username, exists)
	return exists, nil
}

// TestUserExists reports whether a username is claimed by the remote wiki,
// used by the host to prevent local registration of names that would collide
// with importable remote accounts. In import-only mode local registration is
// already impossible, so the check short-circuits.
func (n *Negotiator) TestUserExists(ctx context.Context, username string) (bool, error) {
	if n.cfg.DisableAccountCreation {
		return false, nil
	}

	canonical, err := domain.CanonicalizeUsername(username)
	if err != nil {
		return false, nil
	}

	client, err := n.newClient()
	if err != nil {
		return false, err
	}
	return n.testUserExistsRemote(ctx, client, canonical)
}

// RevokeAccess is a no-op: this provider has no notion of revoking access,
// as it does not handle authentication once a local account exists.
func (n *Negotiator) RevokeAccess(username string) {}

// ChangeCredential is a no-op: credential changes are owned by the local
// credential store once the account has been imported.
func (n *Negotiator) ChangeCredential(ctx context.Context, username, password string) error {
	return nil
}
