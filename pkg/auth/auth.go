// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package auth authenticates the HTTP surface with HTTP Basic Auth.
// Account provisioning (registration, token issuance) is out of scope:
// accounts are read from a JSON file at startup and edited out-of-band.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"compositor/pkg/eventlog"
)

// Account identifies the caller that owns artifacts it creates.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password []byte `json:"password"` // bcrypt hash.
}

// Response is the outcome of validating an Authorization header.
type Response struct {
	IsValid bool
	User    Account
}

// Authenticator validates HTTP Basic Auth credentials against a static,
// file-loaded account list.
type Authenticator struct {
	accounts  map[string]Account // keyed by username
	authCache map[string]Response

	hashCost int
	logger   *eventlog.Logger

	mu sync.Mutex
}

const defaultHashCost = 10

// Load reads accounts from a JSON file (a map of id to Account, Password
// already bcrypt-hashed) and returns an Authenticator.
func Load(path string, logger *eventlog.Logger) (*Authenticator, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var byID map[string]Account
	if err := json.Unmarshal(file, &byID); err != nil {
		return nil, err
	}

	a := &Authenticator{
		accounts:  make(map[string]Account),
		authCache: make(map[string]Response),
		hashCost:  defaultHashCost,
		logger:    logger,
	}
	for id, acc := range byID {
		acc.ID = id
		a.accounts[acc.Username] = acc
	}
	return a, nil
}

// ValidateAuth takes about the same amount of time whether or not the
// username or password is valid, to avoid leaking which one was wrong.
func (a *Authenticator) ValidateAuth(auth string) Response {
	a.mu.Lock()
	if cached, ok := a.authCache[auth]; ok {
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	name, pass := parseBasicAuth(auth)

	a.mu.Lock()
	user, found := a.accounts[name]
	a.mu.Unlock()

	var r Response
	if !found {
		bcrypt.GenerateFromPassword([]byte(name), a.hashCost) //nolint:errcheck
	} else if passwordsMatch(user.Password, pass) {
		r = Response{IsValid: true, User: user}
	}

	a.mu.Lock()
	a.authCache[auth] = r
	a.mu.Unlock()
	return r
}

func (a *Authenticator) logFailedLogin(r *http.Request) {
	if a.logger == nil {
		return
	}
	name, _ := parseBasicAuth(r.Header.Get("Authorization"))
	a.logger.Warn().Src("auth").Msgf("failed login: username=%q addr=%v", name, r.RemoteAddr)
}

// Modified from net/http request.go.
func parseBasicAuth(auth string) (username, password string) {
	const prefix = "Basic "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return
	}
	c, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return
	}
	cs := string(c)
	s := strings.IndexByte(cs, ':')
	if s < 0 {
		return
	}
	return cs[:s], cs[s+1:]
}

func passwordsMatch(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// User blocks unauthenticated requests.
func (a *Authenticator) User(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := a.ValidateAuth(r.Header.Get("Authorization"))
		if !auth.IsValid {
			if r.Header.Get("Authorization") != "" {
				a.logFailedLogin(r)
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="compositor"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := withCaller(r.Context(), auth.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
