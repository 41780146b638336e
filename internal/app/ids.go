package app

import (
	"crypto/rand"
	"strings"
)

const (
	codeLen      = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// codeByteLimit is the largest multiple of the alphabet size that fits in
// a byte; bytes at or above it are redrawn so every letter is equally likely.
const codeByteLimit = 256 - 256%len(codeAlphabet)

// newCode generates a short join code of uppercase letters.
func newCode() string {
	var sb strings.Builder
	sb.Grow(codeLen)
	var b [2 * codeLen]byte
	for sb.Len() < codeLen {
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		for _, v := range b {
			if int(v) >= codeByteLimit || sb.Len() == codeLen {
				continue
			}
			sb.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
		}
	}
	return sb.String()
}

// normalizeCode upper-cases user input so codes match case-insensitively.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
