// Package siwe implements Sign-In with Ethereum (EIP-4361): message
// building and parsing, nonce generation, signature verification and a
// wallet-side Authenticator.
package siwe

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	headerSuffix = " wants you to sign in with your Ethereum account:"
	// Version is the only message version defined by EIP-4361.
	Version = "1"
)

var (
	ErrInvalidMessage   = errors.New("invalid siwe message")
	ErrDomainMismatch   = errors.New("domain mismatch")
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrExpired          = errors.New("message expired")
	ErrNotYetValid      = errors.New("message not yet valid")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Message is an EIP-4361 sign-in request.
type Message struct {
	Domain         string
	Address        common.Address
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime *time.Time
	NotBefore      *time.Time
	RequestID      string
	Resources      []string
}

// String renders the canonical text that wallets sign.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Domain + headerSuffix + "\n")
	b.WriteString(m.Address.Hex() + "\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement + "\n\n")
	}

	version := m.Version
	if version == "" {
		version = Version
	}
	fields := []string{
		"URI: " + m.URI,
		"Version: " + version,
		"Chain ID: " + strconv.FormatInt(m.ChainID, 10),
		"Nonce: " + m.Nonce,
		"Issued At: " + formatTime(m.IssuedAt),
	}
	if m.ExpirationTime != nil {
		fields = append(fields, "Expiration Time: "+formatTime(*m.ExpirationTime))
	}
	if m.NotBefore != nil {
		fields = append(fields, "Not Before: "+formatTime(*m.NotBefore))
	}
	if m.RequestID != "" {
		fields = append(fields, "Request ID: "+m.RequestID)
	}
	if len(m.Resources) > 0 {
		fields = append(fields, "Resources:")
		for _, r := range m.Resources {
			fields = append(fields, "- "+r)
		}
	}
	b.WriteString(strings.Join(fields, "\n"))
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}

// ParseMessage parses the canonical text form.
func ParseMessage(text string) (*Message, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return nil, invalid("too short")
	}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" {
		return nil, invalid("bad header")
	}
	if !common.IsHexAddress(lines[1]) {
		return nil, invalid("bad address %q", lines[1])
	}
	m := &Message{Domain: domain, Address: common.HexToAddress(lines[1])}

	i := 2
	if lines[i] != "" {
		return nil, invalid("missing blank line after address")
	}
	i++
	if i < len(lines) && !strings.HasPrefix(lines[i], "URI: ") {
		m.Statement = lines[i]
		i++
		if i >= len(lines) || lines[i] != "" {
			return nil, invalid("missing blank line after statement")
		}
		i++
	}

	required := map[string]bool{"URI": false, "Version": false, "Chain ID": false, "Nonce": false, "Issued At": false}
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "Resources:" {
			for i++; i < len(lines); i++ {
				r, ok := strings.CutPrefix(lines[i], "- ")
				if !ok {
					return nil, invalid("bad resource line %q", lines[i])
				}
				m.Resources = append(m.Resources, r)
			}
			break
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, invalid("bad field %q", line)
		}
		if _, known := required[key]; known {
			required[key] = true
		}
		if err := m.setField(key, value); err != nil {
			return nil, err
		}
	}
	for key, seen := range required {
		if !seen {
			return nil, invalid("missing %s", key)
		}
	}
	return m, nil
}

func (m *Message) setField(key, value string) error {
	switch key {
	case "URI":
		if _, err := url.Parse(value); err != nil || value == "" {
			return invalid("bad URI %q", value)
		}
		m.URI = value
	case "Version":
		if value != Version {
			return invalid("unsupported version %q", value)
		}
		m.Version = value
	case "Chain ID":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return invalid("bad chain id %q", value)
		}
		m.ChainID = id
	case "Nonce":
		if !validNonce(value) {
			return invalid("bad nonce %q", value)
		}
		m.Nonce = value
	case "Issued At":
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return invalid("bad issued at %q", value)
		}
		m.IssuedAt = t
	case "Expiration Time":
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return invalid("bad expiration time %q", value)
		}
		m.ExpirationTime = &t
	case "Not Before":
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return invalid("bad not before %q", value)
		}
		m.NotBefore = &t
	case "Request ID":
		m.RequestID = value
	default:
		return invalid("unknown field %q", key)
	}
	return nil
}

const (
	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	nonceLength   = 17
	minNonceLen   = 8
)

func validNonce(s string) bool {
	if len(s) < minNonceLen {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(nonceAlphabet, r) {
			return false
		}
	}
	return true
}

// GenerateNonce returns a random alphanumeric nonce.
func GenerateNonce() (string, error) {
	max := big.NewInt(int64(len(nonceAlphabet)))
	buf := make([]byte, nonceLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate nonce: %w", err)
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// VerifyOptions are the expectations checked by Verify. Empty fields are
// not checked; a zero Time means now.
type VerifyOptions struct {
	Domain string
	Nonce  string
	Time   time.Time
}

// Verify checks the message against opts and that sig is an EIP-191
// signature of the canonical text of m by m.Address.
func (m *Message) Verify(sig []byte, opts VerifyOptions) error {
	return m.VerifySigned(m.String(), sig, opts)
}

// VerifySigned is Verify for a message parsed from text. The signature is
// recovered over text exactly as received, so wallets that render times
// with milliseconds or addresses in lower case still verify.
func (m *Message) VerifySigned(text string, sig []byte, opts VerifyOptions) error {
	if opts.Domain != "" && opts.Domain != m.Domain {
		return ErrDomainMismatch
	}
	if opts.Nonce != "" && opts.Nonce != m.Nonce {
		return ErrNonceMismatch
	}
	now := opts.Time
	if now.IsZero() {
		now = time.Now()
	}
	if m.ExpirationTime != nil && !now.Before(*m.ExpirationTime) {
		return ErrExpired
	}
	if m.NotBefore != nil && now.Before(*m.NotBefore) {
		return ErrNotYetValid
	}

	signer, err := RecoverAddress([]byte(text), sig)
	if err != nil {
		return err
	}
	if signer != m.Address {
		return ErrInvalidSignature
	}
	return nil
}

// RecoverAddress returns the account that produced an EIP-191 signature of
// msg. Both 0/1 and 27/28 recovery ids are accepted.
func RecoverAddress(msg, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// DecodeSignature parses a 0x-prefixed hex signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return sig, nil
}
