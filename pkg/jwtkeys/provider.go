// Package jwtkeys resolves the HMAC keys used to verify access tokens.
package jwtkeys

import (
	"errors"
	"strings"
)

var ErrKeyNotFound = errors.New("jwt signing key not found")

// KeyProvider resolves a verification key by its "kid" header. LegacyKey is
// used for tokens without a kid.
type KeyProvider interface {
	ResolveKey(kid string) ([]byte, error)
	LegacyKey() []byte
}

// StaticProvider verifies every token with a single shared secret.
type StaticProvider struct {
	secret []byte
}

func NewStaticProvider(secret string) *StaticProvider {
	return &StaticProvider{secret: []byte(secret)}
}

func (p *StaticProvider) ResolveKey(string) ([]byte, error) {
	if len(p.secret) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.secret, nil
}

func (p *StaticProvider) LegacyKey() []byte { return p.secret }

// KeySetProvider holds several keys during a rotation window.
type KeySetProvider struct {
	keys   map[string][]byte
	legacy []byte
}

// ParseKeySet reads "kid1:secret1,kid2:secret2". Malformed entries are skipped.
func ParseKeySet(raw, legacy string) *KeySetProvider {
	p := &KeySetProvider{keys: make(map[string][]byte), legacy: []byte(legacy)}
	for _, pair := range strings.Split(raw, ",") {
		kid, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || kid == "" || secret == "" {
			continue
		}
		p.keys[kid] = []byte(secret)
	}
	return p
}

func (p *KeySetProvider) ResolveKey(kid string) ([]byte, error) {
	key, ok := p.keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (p *KeySetProvider) LegacyKey() []byte { return p.legacy }
