// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

package share

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// shareIDBytes is the entropy behind each identifier. 10 bytes gives 80
// bits, enough that collisions and guessing are both out of reach for
// link-sharing.
const shareIDBytes = 10

// NewShareID returns a securely random base62 identifier. Identifiers derive
// from nothing but the CSPRNG; they carry no query or timestamp information.
func NewShareID() (string, error) {
	buf := make([]byte, shareIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share id: %w", err)
	}
	return encodeBase62(buf), nil
}

func encodeBase62(data []byte) string {
	n := new(big.Int).SetBytes(data)
	if n.Sign() == 0 {
		return string(base62Alphabet[0])
	}

	base := big.NewInt(int64(len(base62Alphabet)))
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, base62Alphabet[mod.Int64()])
	}

	// Digits come out least-significant first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
