package journal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	ID      string            `json:"id"`
	At      string            `json:"at"`
	Kind    string            `json:"kind"`
	Text    string            `json:"text"`
	Context map[string]string `json:"context,omitempty"`
	Units   int               `json:"units,omitempty"`
}

func buildSignaturePayload(kind Kind, e *Entry) signaturePayload {
	return signaturePayload{
		ID:      e.ID.String(),
		At:      e.At.UTC().Format(time.RFC3339Nano),
		Kind:    string(kind),
		Text:    e.Text,
		Context: e.Context,
		Units:   e.Units,
	}
}

// Sign generates an HMAC signature for a journal entry.
func Sign(kind Kind, e *Entry, key []byte) ([]byte, error) {
	data, err := json.Marshal(buildSignaturePayload(kind, e))
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// Verify checks the HMAC signature of a journal entry.
func Verify(kind Kind, e *Entry, key []byte) (bool, error) {
	if len(e.Signature) == 0 {
		return false, nil
	}
	expected, err := Sign(kind, e, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, e.Signature), nil
}
