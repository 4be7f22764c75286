package siwe

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage(addr common.Address) Message {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return Message{
		Domain:         "example.com",
		Address:        addr,
		Statement:      "Sign in to Example.",
		URI:            "https://example.com/login",
		Version:        Version,
		ChainID:        1,
		Nonce:          "k3RQnaBVd9XbK2mTz",
		IssuedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ExpirationTime: &exp,
		RequestID:      "req-1",
		Resources:      []string{"ipfs://bafy", "https://example.com/terms"},
	}
}

func sign(t *testing.T, m Message) ([]byte, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	m.Address = addr
	sig, err := crypto.Sign(accounts.TextHash([]byte(m.String())), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return sig, addr
}

func TestMessageRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")

	full := sampleMessage(addr)
	bare := Message{
		Domain:   "localhost:3000",
		Address:  addr,
		URI:      "http://localhost:3000",
		Version:  Version,
		ChainID:  11155111,
		Nonce:    "abcdefgh",
		IssuedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	for name, m := range map[string]Message{"full": full, "bare": bare} {
		t.Run(name, func(t *testing.T) {
			parsed, err := ParseMessage(m.String())
			require.NoError(t, err)
			assert.Equal(t, m, *parsed)
			assert.Equal(t, m.String(), parsed.String())
		})
	}
}

func TestMessageText(t *testing.T) {
	m := sampleMessage(common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"))
	want := "example.com wants you to sign in with your Ethereum account:\n" +
		"0x71C7656EC7ab88b098defB751B7401B5f6d8976F\n\n" +
		"Sign in to Example.\n\n" +
		"URI: https://example.com/login\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: k3RQnaBVd9XbK2mTz\n" +
		"Issued At: 2024-05-01T12:00:00Z\n" +
		"Expiration Time: 2030-01-01T00:00:00Z\n" +
		"Request ID: req-1\n" +
		"Resources:\n" +
		"- ipfs://bafy\n" +
		"- https://example.com/terms"
	assert.Equal(t, want, m.String())
}

func TestParseMessageRejects(t *testing.T) {
	valid := sampleMessage(common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")).String()
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"bad header", "example.com wants you to sign in:\n0x71C7656EC7ab88b098defB751B7401B5f6d8976F\n\nURI: x"},
		{"bad address", "example.com wants you to sign in with your Ethereum account:\n0x1234\n\nURI: x"},
		{"short nonce", replaceLine(valid, "Nonce: k3RQnaBVd9XbK2mTz", "Nonce: abc")},
		{"bad version", replaceLine(valid, "Version: 1", "Version: 2")},
		{"bad chain", replaceLine(valid, "Chain ID: 1", "Chain ID: one")},
		{"unknown field", replaceLine(valid, "Request ID: req-1", "Color: blue")},
		{"missing nonce", replaceLine(valid, "Nonce: k3RQnaBVd9XbK2mTz\n", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage(tt.text)
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func replaceLine(text, old, repl string) string {
	return strings.Replace(text, old, repl, 1)
}

func TestGenerateNonce(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := GenerateNonce()
		require.NoError(t, err)
		assert.True(t, validNonce(n), n)
		assert.False(t, seen[n])
		seen[n] = true
	}
}

func TestVerify(t *testing.T) {
	m := sampleMessage(common.Address{})
	sig, addr := sign(t, m)
	m.Address = addr
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Verify(sig, VerifyOptions{Domain: "example.com", Nonce: m.Nonce, Time: now}))

	assert.ErrorIs(t, m.Verify(sig, VerifyOptions{Nonce: "otherNonce1"}), ErrNonceMismatch)
	assert.ErrorIs(t, m.Verify(sig, VerifyOptions{Domain: "evil.com"}), ErrDomainMismatch)
	assert.ErrorIs(t, m.Verify(sig, VerifyOptions{Time: time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)}), ErrExpired)

	notBefore := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	early := m
	early.NotBefore = &notBefore
	assert.ErrorIs(t, early.Verify(sig, VerifyOptions{Time: now}), ErrNotYetValid)

	other := m
	other.Address = common.HexToAddress("0x01")
	assert.ErrorIs(t, other.Verify(sig, VerifyOptions{Time: now}), ErrInvalidSignature)
	assert.ErrorIs(t, m.Verify(sig[:10], VerifyOptions{Time: now}), ErrInvalidSignature)
}

func TestVerifySignedWalletText(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	// browser wallets render times with milliseconds and may send the
	// address in lower case
	text := "example.com wants you to sign in with your Ethereum account:\n" +
		strings.ToLower(addr.Hex()) + "\n\n" +
		"Sign in to Example.\n\n" +
		"URI: https://example.com/login\n" +
		"Version: 1\n" +
		"Chain ID: 1\n" +
		"Nonce: k3RQnaBVd9XbK2mTz\n" +
		"Issued At: 2026-10-19T10:00:00.000Z\n" +
		"Expiration Time: 2026-10-19T12:30:00.000+02:00"
	sig, err := crypto.Sign(accounts.TextHash([]byte(text)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	m, err := ParseMessage(text)
	require.NoError(t, err)
	assert.Equal(t, addr, m.Address)
	assert.NotEqual(t, text, m.String())

	now := time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)
	opts := VerifyOptions{Domain: "example.com", Nonce: "k3RQnaBVd9XbK2mTz", Time: now}
	assert.NoError(t, m.VerifySigned(text, sig, opts))
	assert.ErrorIs(t, m.Verify(sig, opts), ErrInvalidSignature)

	opts.Time = time.Date(2026, 10, 19, 10, 31, 0, 0, time.UTC)
	assert.ErrorIs(t, m.VerifySigned(text, sig, opts), ErrExpired)
}
