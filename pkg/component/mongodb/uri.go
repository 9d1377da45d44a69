package mongodb

import (
	"net/url"
	"strconv"
	"strings"
)

// BuildURI returns opts.URI when set, otherwise a mongodb:// URI built from
// the host, credential and topology fields.
func BuildURI(opts *Options) string {
	if opts.URI != "" {
		return opts.URI
	}

	u := url.URL{Scheme: "mongodb", Host: opts.Host, Path: "/" + opts.Database}
	if opts.Port != 0 {
		u.Host += ":" + strconv.Itoa(opts.Port)
	}
	if opts.Username != "" {
		if opts.Password != "" {
			u.User = url.UserPassword(opts.Username, opts.Password)
		} else {
			u.User = url.User(opts.Username)
		}
	}

	params := url.Values{}
	if opts.AuthSource != "" && opts.AuthSource != "admin" {
		params.Set("authSource", opts.AuthSource)
	}
	if opts.ReplicaSet != "" {
		params.Set("replicaSet", opts.ReplicaSet)
	}
	if opts.Direct {
		params.Set("directConnection", "true")
	}
	u.RawQuery = params.Encode()

	return u.String()
}

const maskedPassword = "xxxxx"

// RedactURI masks the password of a connection string. When the string does
// not parse everything before the host is masked.
func RedactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		if at := strings.LastIndex(uri, "@"); at >= 0 {
			return "mongodb://" + maskedPassword + "@" + uri[at+1:]
		}
		return uri
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), maskedPassword)
	}
	return u.String()
}
