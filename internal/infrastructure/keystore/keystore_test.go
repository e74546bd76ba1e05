package keystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFor(t *testing.T) {
	t.Run("default key applies to every org", func(t *testing.T) {
		s := New("shared-secret")
		assert.Equal(t, []byte("shared-secret"), s.KeyFor("acme"))
		assert.Equal(t, []byte("shared-secret"), s.KeyFor("globex"))
	})

	t.Run("empty default disables signing", func(t *testing.T) {
		s := New("")
		assert.Nil(t, s.KeyFor("acme"))
	})

	t.Run("env override beats the default", func(t *testing.T) {
		t.Setenv("EXECDESK_SIGNING_KEY_FOR_ORG_ACME", "acme-secret")
		s := New("shared-secret")
		assert.Equal(t, []byte("acme-secret"), s.KeyFor("acme"))
		assert.Equal(t, []byte("shared-secret"), s.KeyFor("globex"))
	})
}
