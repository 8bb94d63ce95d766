package podcasts

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidURL is returned for feed URLs that can't be normalized.
var ErrInvalidURL = errors.New("invalid feed url")

// NormalizeURL canonicalizes a feed or episode URL so the same resource
// always maps to the same record. The scheme and host are lowercased,
// default ports are stripped, and the fragment is dropped. Only http
// and https URLs with a host are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.Wrap(ErrInvalidURL, "empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(ErrInvalidURL, err.Error())
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", errors.Wrapf(ErrInvalidURL, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Wrap(ErrInvalidURL, "missing host")
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)

	// Default ports carry no information.
	if scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	} else {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	return u.String(), nil
}
