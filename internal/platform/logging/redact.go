package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/m-mizutani/masq"
)

var (
	bearerValue = regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+$`)
	jwtValue    = regexp.MustCompile(`^eyJ[\w-]*\.eyJ[\w-]*\.[\w-]*$`)
)

// redactedFields are attribute or struct field names whose values never reach a log sink.
var redactedFields = []string{
	"password",
	"token",
	"api_key",
	"apiKey",
	"authorization",
	"cookie",
	"set-cookie",
	"credentials",
}

// RedactOptions are the masq rules shared by every handler.
func RedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(redactedFields)+3)
	for _, name := range redactedFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(bearerValue),
		masq.WithRegex(jwtValue),
	)
}

// NewReplaceAttr builds the ReplaceAttr hook used by every handler. Besides
// the masq rules it strips user info from URL-shaped strings, since the
// remote base URL may embed credentials and is logged at startup.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	mask := masq.New(append(RedactOptions(), extra...)...)

	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Value.Kind() == slog.KindString {
			if clean, ok := stripUserInfo(a.Value.String()); ok {
				a.Value = slog.StringValue(clean)
			}
		}

		return mask(groups, a)
	}
}

// stripUserInfo reports whether s is an absolute URL with credentials and
// returns it with the password replaced.
func stripUserInfo(s string) (string, bool) {
	if !strings.Contains(s, "://") || !strings.Contains(s, "@") {
		return s, false
	}

	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s, false
	}

	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	} else {
		u.User = url.User("xxxxx")
	}

	return u.String(), true
}
