package auth

// Wire shapes for the remote wiki API calls this package issues. Only the
// fields we consume are declared.

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type allUsersResponse struct {
	Query struct {
		AllUsers []struct {
			Name string `json:"name"`
		} `json:"allusers"`
	} `json:"query"`
}

type siteInfoResponse struct {
	Query struct {
		General struct {
			Generator string `json:"generator"`
		} `json:"general"`
	} `json:"query"`
}

type loginTokenResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
		} `json:"tokens"`
	} `json:"query"`
}

type loginResponse struct {
	Login struct {
		Result string `json:"result"`
		Token  string `json:"token"`
	} `json:"login"`
}

type clientLoginResponse struct {
	Errors []struct {
		Code string `json:"code"`
		Text string `json:"text"`
		Key  string `json:"key"`
	} `json:"errors"`
	ClientLogin struct {
		Status string `json:"status"`
	} `json:"clientlogin"`
}

type userInfoResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		UserInfo struct {
			Name             string `json:"name"`
			Groups           []string `json:"groups"`
			GroupMemberships []struct {
				Group  string `json:"group"`
				Expiry string `json:"expiry"`
			} `json:"groupmemberships"`
			Options            map[string]any `json:"options"`
			Email              string         `json:"email"`
			EmailAuthenticated string         `json:"emailauthenticated"`
			EditCount          int64          `json:"editcount"`
			RegistrationDate   string         `json:"registrationdate"`
			Messages           bool           `json:"messages"`
		} `json:"userinfo"`
	} `json:"query"`
}

type watchlistRawResponse struct {
	Error        *apiError `json:"error"`
	WatchlistRaw []struct {
		NS      int    `json:"ns"`
		Title   string `json:"title"`
		Changed string `json:"changed"`
	} `json:"watchlistraw"`
	// Modern continuation format.
	Continue *struct {
		WrContinue string `json:"wrcontinue"`
	} `json:"continue"`
	// Pre-1.26 continuation format, still emitted by older remotes.
	QueryContinue *struct {
		WatchlistRaw struct {
			WrContinue string `json:"wrcontinue"`
		} `json:"watchlistraw"`
	} `json:"query-continue"`
}

func (r *watchlistRawResponse) continuation() (string, bool) {
	if r.Continue != nil && r.Continue.WrContinue != "" {
		return r.Continue.WrContinue, true
	}
	if r.QueryContinue != nil && r.QueryContinue.WatchlistRaw.WrContinue != "" {
		return r.QueryContinue.WatchlistRaw.WrContinue, true
	}
	return "", false
}
