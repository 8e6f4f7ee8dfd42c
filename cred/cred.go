// Package cred implements the credential resolver support contract
// (spec §4.6, §6.4): a pluggable callback invoked by the remote
// filesystem on auth challenges, resolving a URL to a (username,
// password) pair by longest-prefix match against a credentials
// document.
//
// Grounded on the registry auth callback shape documented in the
// original implementation's registryfs.h (a PasswordCB taking a host
// and returning a credential pair); there is no teacher-side analogue,
// so this package follows the error-wrapping and JSON-config
// conventions the rest of this codebase uses (lsmerr, encoding/json).
package cred

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/liulanzheng/overlaybd/lsmerr"
)

// Entry is one credential document entry: either Auth (a base64
// "user:pass" token) or an explicit Username/Password pair (§6.4).
type Entry struct {
	Auth     string `json:"auth,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Document is the parsed credential document: host_or_prefix → Entry.
type Document map[string]Entry

// Parse decodes a credential document from JSON (§6.4).
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, lsmerr.Wrap(lsmerr.KindConfiguration, err, "parse credential document")
	}
	return doc, nil
}

// Resolver answers (username, password) lookups for a URL (§4.6).
type Resolver struct {
	doc Document
}

// NewResolver wraps a parsed Document.
func NewResolver(doc Document) *Resolver {
	return &Resolver{doc: doc}
}

// Lookup walks u's host/namespace/repository prefixes in order,
// matching the longest prefix present in the document, and decodes its
// credential. Returns empty strings (a valid "no credential" response)
// when no prefix matches (§4.6).
func (r *Resolver) Lookup(rawURL string) (username, password string, err error) {
	u, perr := url.Parse(rawURL)
	if perr != nil {
		return "", "", lsmerr.Wrap(lsmerr.KindAuth, perr, "parse url %s", rawURL)
	}

	key := prefixKey(u)
	entry, ok := r.longestMatch(key)
	if !ok {
		return "", "", nil
	}
	return decode(entry)
}

// prefixKey joins a URL's host and full path into the key that
// longestMatch shortens, e.g. "registry.example.com/ns/repo/blobs/sha256:..."
// from "https://registry.example.com/ns/repo/blobs/sha256:...".
func prefixKey(u *url.URL) string {
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	return u.Host + "/" + path
}

// longestMatch finds the document entry whose key is the longest
// prefix of key, splitting only on '/' boundaries (host, host/ns,
// host/ns/repo, ...).
func (r *Resolver) longestMatch(key string) (Entry, bool) {
	candidate := key
	for {
		if entry, ok := r.doc[candidate]; ok {
			return entry, true
		}
		idx := strings.LastIndexByte(candidate, '/')
		if idx < 0 {
			return Entry{}, false
		}
		candidate = candidate[:idx]
	}
}

// decode resolves an Entry to a concrete (username, password) pair,
// preferring the explicit fields and falling back to decoding Auth as
// base64("user:pass") (§4.6 "decoding either a base-64 user:pass token
// or an explicit username/password pair").
func decode(e Entry) (string, string, error) {
	if e.Username != "" || e.Password != "" {
		return e.Username, e.Password, nil
	}
	if e.Auth == "" {
		return "", "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(e.Auth)
	if err != nil {
		return "", "", lsmerr.Wrap(lsmerr.KindAuth, err, "decode auth token")
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", lsmerr.New(lsmerr.KindAuth, "malformed auth token")
	}
	return parts[0], parts[1], nil
}
