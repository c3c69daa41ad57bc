// Package federation turns the attribute maps returned by social login
// providers into a normalised Identity, and drives the OAuth2 authorization
// code exchange that produces those maps.
package federation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnsupportedProvider = errors.New("federation: unsupported provider")
	ErrMissingAttribute    = errors.New("federation: missing attribute")
)

// Supported provider names. They double as route segments and as the
// users.provider column value.
const (
	Google = "google"
	Naver  = "naver"
	Kakao  = "kakao"
)

// Identity is what the rest of the system needs from a provider.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// Username is the deterministic local username of a federated account.
func (i Identity) Username() string {
	return i.Provider + "_" + i.ProviderID
}

type extractor func(raw map[string]any) (Identity, error)

var extractors = map[string]extractor{
	Google: extractGoogle,
	Naver:  extractNaver,
	Kakao:  extractKakao,
}

// Supported reports whether name is one of the known providers.
func Supported(name string) bool {
	_, ok := extractors[name]
	return ok
}

// Extract reads the identity out of a provider's user info payload.
func Extract(provider string, raw map[string]any) (Identity, error) {
	fn, ok := extractors[provider]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	id, err := fn(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", provider, err)
	}
	if id.ProviderID == "" {
		return Identity{}, fmt.Errorf("%s: %w: id", provider, ErrMissingAttribute)
	}
	id.Provider = provider
	return id, nil
}

// Google returns a flat OpenID Connect userinfo document.
func extractGoogle(raw map[string]any) (Identity, error) {
	return Identity{
		ProviderID: stringAttr(raw, "sub"),
		Email:      stringAttr(raw, "email"),
		Name:       stringAttr(raw, "name"),
	}, nil
}

// Naver nests the profile under "response".
func extractNaver(raw map[string]any) (Identity, error) {
	resp, ok := raw["response"].(map[string]any)
	if !ok {
		return Identity{}, fmt.Errorf("%w: response", ErrMissingAttribute)
	}
	return Identity{
		ProviderID: stringAttr(resp, "id"),
		Email:      stringAttr(resp, "email"),
		Name:       stringAttr(resp, "name"),
	}, nil
}

// Kakao uses a numeric id and keeps the profile in kakao_account.
func extractKakao(raw map[string]any) (Identity, error) {
	account, _ := raw["kakao_account"].(map[string]any)
	profile, _ := account["profile"].(map[string]any)
	return Identity{
		ProviderID: stringAttr(raw, "id"),
		Email:      stringAttr(account, "email"),
		Name:       stringAttr(profile, "nickname"),
	}, nil
}

// stringAttr renders strings and JSON numbers as strings. Anything else,
// including a missing key, is empty.
func stringAttr(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
