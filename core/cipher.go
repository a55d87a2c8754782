package core

import (
	"encoding/base64"
	"fmt"
	"unicode/utf16"
)

// Obfuscate applies a password-derived keystream XOR to text and returns the
// result base64 encoded so it survives transport as text. The transform is
// involutive: Reveal performs the identical XOR after decoding.
//
// This is an obfuscation primitive, not real cryptography. The server's
// reveal endpoint interoperates with these exact semantics, so the algorithm
// must not be substituted for a stronger one.
func Obfuscate(text, password string) (string, error) {
	if password == "" {
		return "", ErrInvalidKey
	}
	out := keystreamXOR([]byte(text), deriveSeed(password))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Reveal undoes Obfuscate given the same password. A wrong password yields
// garbage rather than an error; the remote reveal endpoint is the
// authoritative judge of correctness.
func Reveal(token, password string) (string, error) {
	if password == "" {
		return "", ErrInvalidKey
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return string(keystreamXOR(raw, deriveSeed(password))), nil
}

// deriveSeed computes the 32-bit rolling hash of the password. It hashes
// UTF-16 code units because the browser client derives its key from
// charCodeAt and both sides must agree bit for bit. Negating MinInt32 wraps,
// which also matches the browser's 32-bit coercion of Math.abs.
func deriveSeed(password string) int32 {
	var seed int32
	for _, u := range utf16.Encode([]rune(password)) {
		seed = seed*31 + int32(u)
	}
	if seed < 0 {
		seed = -seed
	}
	return seed
}

func keystreamXOR(in []byte, seed int32) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		k := byte((seed >> (uint(i*7) % 32)) & 0xFF)
		out[i] = b ^ k
	}
	return out
}
