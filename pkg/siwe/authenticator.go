package siwe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	wkerrors "github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/hooks"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/provider"
)

// AuthenticatorConfig points an Authenticator at a SIWE server.
type AuthenticatorConfig struct {
	// BaseURL of the server, e.g. http://localhost:3000.
	BaseURL string
	// Domain and URI placed in messages; derived from BaseURL when empty.
	Domain string
	URI    string
	// HTTPClient is used as is when set; otherwise a client with a cookie
	// jar is created.
	HTTPClient *http.Client
}

// SignInParams customizes the signed message.
type SignInParams struct {
	Statement string
	Resources []string
	ExpiresIn time.Duration
}

// Authenticator runs the wallet side of the sign-in flow against a SIWE
// server, keeping the session cookie between calls.
type Authenticator struct {
	base   *url.URL
	domain string
	uri    string
	http   *http.Client
	client *client.Client
	sign   *hooks.Mutation[[]byte, hexutil.Bytes]
	logger *logging.ColoredLogger
}

// NewAuthenticator binds to the Provider in ctx. It fails with
// KindClientNotFound when there is none.
func NewAuthenticator(ctx context.Context, cfg AuthenticatorConfig) (*Authenticator, error) {
	p, err := provider.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, wkerrors.NewValidationError("base_url", "must be an absolute URL", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}
	sign, err := hooks.NewSignMessage(ctx)
	if err != nil {
		return nil, err
	}

	a := &Authenticator{
		base:   base,
		domain: cfg.Domain,
		uri:    cfg.URI,
		http:   httpClient,
		client: p.Client(),
		sign:   sign,
		logger: p.Client().Logger(),
	}
	if a.domain == "" {
		a.domain = base.Host
	}
	if a.uri == "" {
		a.uri = base.String()
	}
	return a, nil
}

// Close releases the signing hook.
func (a *Authenticator) Close() { a.sign.Close() }

// SignIn fetches a nonce, signs a message for the connected account and
// submits it. A rejection by the server is a KindSIWEVerification error
// carrying the HTTP status; an unreachable or failing server is
// KindResourceUnavailable.
func (a *Authenticator) SignIn(ctx context.Context, params SignInParams) (common.Address, error) {
	state := a.client.State()
	if !state.IsConnected() {
		return common.Address{}, wkerrors.NewConnectorNotFoundError("")
	}

	nonce, err := a.nonce(ctx)
	if err != nil {
		return common.Address{}, err
	}
	now := time.Now().UTC()
	msg := Message{
		Domain:    a.domain,
		Address:   state.Account,
		Statement: params.Statement,
		URI:       a.uri,
		Version:   Version,
		ChainID:   state.ChainID,
		Nonce:     nonce,
		IssuedAt:  now,
		Resources: params.Resources,
	}
	if params.ExpiresIn > 0 {
		exp := now.Add(params.ExpiresIn)
		msg.ExpirationTime = &exp
	}

	sig, err := a.sign.Mutate(ctx, []byte(msg.String()))
	if err != nil {
		return common.Address{}, err
	}

	body, err := json.Marshal(map[string]string{"message": msg.String(), "signature": sig.String()})
	if err != nil {
		return common.Address{}, wkerrors.Normalize(err)
	}
	resp, err := a.do(ctx, http.MethodPost, "/verify", strings.NewReader(string(body)))
	if err != nil {
		return common.Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var out struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return common.Address{}, statusError("verify", resp.StatusCode, out.Message)
	}

	a.logger.ComponentInfo(logging.ComponentSIWE, "Signed in", zap.String("address", state.Account.Hex()))
	return state.Account, nil
}

// Me returns the address the server has on record for this session.
func (a *Authenticator) Me(ctx context.Context) (common.Address, bool, error) {
	resp, err := a.do(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return common.Address{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return common.Address{}, false, statusError("me", resp.StatusCode, "")
	}
	var out struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return common.Address{}, false, wkerrors.NewResourceUnavailableError(fmt.Errorf("me: %w", err))
	}
	if !common.IsHexAddress(out.Address) {
		return common.Address{}, false, nil
	}
	return common.HexToAddress(out.Address), true, nil
}

// Logout ends the server session.
func (a *Authenticator) Logout(ctx context.Context) error {
	resp, err := a.do(ctx, http.MethodGet, "/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("logout", resp.StatusCode, "")
	}
	return nil
}

func (a *Authenticator) nonce(ctx context.Context) (string, error) {
	resp, err := a.do(ctx, http.MethodGet, "/nonce", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", wkerrors.NewResourceUnavailableError(fmt.Errorf("nonce: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError("nonce", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return strings.TrimSpace(string(b)), nil
}

func (a *Authenticator) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.base.String()+path, body)
	if err != nil {
		return nil, wkerrors.Normalize(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, wkerrors.NewResourceUnavailableError(fmt.Errorf("%s %s: %w", method, path, err))
	}
	return resp, nil
}

// statusError maps a non-200 response to the error taxonomy: server
// failures are KindResourceUnavailable, anything else the server refused
// is KindSIWEVerification.
func statusError(op string, status int, message string) error {
	if status >= http.StatusInternalServerError {
		e := wkerrors.NewResourceUnavailableError(fmt.Errorf("%s: status %d: %s", op, status, message))
		e.Status = status
		return e
	}
	if message == "" {
		message = fmt.Sprintf("%s: unexpected status %d", op, status)
	}
	return wkerrors.NewSIWEVerificationError(status, message)
}
