package utils

import (
	"errors"
	"sync"
	"time"
)

var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.Mutex
)

// BlacklistToken menolak token sampai masa berlakunya habis (logout).
func BlacklistToken(token string, expiresAt time.Time) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(TokenTTL)
	}
	blacklistedTokens[token] = expiresAt
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()

	expiry, exists := blacklistedTokens[token]
	if !exists {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}
	// token kadaluarsa tidak perlu disimpan lagi
	delete(blacklistedTokens, token)
	return false
}

// ValidateToken = ParseToken + cek blacklist. Dipakai oleh middleware HTTP dan websocket.
func ValidateToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, errors.New("token has been revoked")
	}
	return ParseToken(tokenString)
}
