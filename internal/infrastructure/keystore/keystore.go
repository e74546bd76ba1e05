// Package keystore resolves the journal signing key for each organization.
// A per-org environment override beats the configured default, so one shared
// config file can still give every org its own key.
package keystore

import (
	"os"
	"strings"
)

const envPrefix = "EXECDESK_SIGNING_KEY_FOR_ORG_"

// Store holds the default signing key plus per-org overrides.
type Store struct {
	defaultKey []byte
	perOrg     map[string][]byte
}

// New builds a store from the configured default key and the
// EXECDESK_SIGNING_KEY_FOR_ORG_<ORG> environment. An empty default with no
// overrides disables signing entirely.
func New(defaultKey string) *Store {
	s := &Store{perOrg: map[string][]byte{}}
	if defaultKey != "" {
		s.defaultKey = []byte(defaultKey)
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		kv := strings.SplitN(strings.TrimPrefix(env, envPrefix), "=", 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			continue
		}
		s.perOrg[strings.ToLower(kv[0])] = []byte(kv[1])
	}
	return s
}

// KeyFor returns the signing key for an org, nil when signing is disabled.
func (s *Store) KeyFor(org string) []byte {
	if k, ok := s.perOrg[strings.ToLower(org)]; ok {
		return k
	}
	return s.defaultKey
}
