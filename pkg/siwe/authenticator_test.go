package siwe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/chains/chainstest"
	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/provider"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe/server"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe/session"
)

type authEnv struct {
	ctx    context.Context
	client *client.Client
	conn   *connectors.MockConnector
	url    string
}

func newAuthEnv(t *testing.T, serverDomain string) *authEnv {
	t.Helper()
	return newWrappedAuthEnv(t, serverDomain, nil)
}

// newWrappedAuthEnv serves the SIWE server behind wrap, which may replace
// individual endpoints.
func newWrappedAuthEnv(t *testing.T, serverDomain string, wrap func(http.Handler) http.Handler) *authEnv {
	t.Helper()
	srv, err := server.New(server.Config{Domain: serverDomain, Store: session.NewMemory()})
	require.NoError(t, err)
	handler := srv.Handler()
	if wrap != nil {
		handler = wrap(handler)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	fake := chainstest.New(1)
	configured, err := chains.ConfigureChains([]chains.Chain{chains.Mainnet},
		[]chains.ProviderFunc{chains.PublicProvider()},
		chains.WithDialer(fake.Dialer()), chains.WithPollingInterval(10*time.Millisecond))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	conn := connectors.NewMockConnector(key, connectors.MockFlags{}, connectors.LocalOptions{
		Chains: configured.Chains, Clients: configured,
	})
	c, err := client.New(&client.Config{Chains: configured, Connectors: []connectors.Connector{conn}})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	p, err := provider.New(c)
	require.NoError(t, err)
	return &authEnv{ctx: provider.NewContext(context.Background(), p), client: c, conn: conn, url: ts.URL}
}

func (e *authEnv) authenticator(t *testing.T) *siwe.Authenticator {
	t.Helper()
	a, err := siwe.NewAuthenticator(e.ctx, siwe.AuthenticatorConfig{BaseURL: e.url})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAuthenticatorSignIn(t *testing.T) {
	e := newAuthEnv(t, "")
	a := e.authenticator(t)

	_, ok, err := a.Me(e.ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.client.Connect(e.ctx, e.conn, 0)
	require.NoError(t, err)

	addr, err := a.SignIn(e.ctx, siwe.SignInParams{Statement: "Sign in to the test app.", ExpiresIn: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, e.conn.Address(), addr)

	me, ok, err := a.Me(e.ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, addr, me)

	require.NoError(t, a.Logout(e.ctx))
	_, ok, err = a.Me(e.ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticatorDomainRejected(t *testing.T) {
	e := newAuthEnv(t, "app.example.com")
	a := e.authenticator(t)
	_, err := e.client.Connect(e.ctx, e.conn, 0)
	require.NoError(t, err)

	_, err = a.SignIn(e.ctx, siwe.SignInParams{})
	require.Error(t, err)
	assert.Equal(t, errors.KindSIWEVerification, errors.KindOf(err))

	var we *errors.WalletError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, 422, we.Status)
}

func TestAuthenticatorSignatureRejected(t *testing.T) {
	e := newAuthEnv(t, "")
	a := e.authenticator(t)
	_, err := e.client.Connect(e.ctx, e.conn, 0)
	require.NoError(t, err)

	e.conn.SetFlags(connectors.MockFlags{RejectSignature: true})
	_, err = a.SignIn(e.ctx, siwe.SignInParams{})
	assert.Equal(t, errors.KindUserRejectedRequest, errors.KindOf(err))
}

func TestAuthenticatorRequiresConnection(t *testing.T) {
	e := newAuthEnv(t, "")
	a := e.authenticator(t)
	_, err := a.SignIn(e.ctx, siwe.SignInParams{})
	assert.Equal(t, errors.KindConnectorNotFound, errors.KindOf(err))
}

func TestNewAuthenticatorValidation(t *testing.T) {
	_, err := siwe.NewAuthenticator(context.Background(), siwe.AuthenticatorConfig{BaseURL: "http://localhost"})
	assert.Equal(t, errors.KindClientNotFound, errors.KindOf(err))

	e := newAuthEnv(t, "")
	_, err = siwe.NewAuthenticator(e.ctx, siwe.AuthenticatorConfig{BaseURL: "not a url"})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestAuthenticatorNonceMismatch(t *testing.T) {
	// the session holds the nonce the server issued, the wallet is handed
	// another one
	e := newWrappedAuthEnv(t, "", func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/nonce" {
				next.ServeHTTP(w, r)
				return
			}
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r)
			for _, c := range rec.Result().Cookies() {
				http.SetCookie(w, c)
			}
			_, _ = w.Write([]byte("staleNonce12345"))
		})
	})
	a := e.authenticator(t)
	_, err := e.client.Connect(e.ctx, e.conn, 0)
	require.NoError(t, err)

	_, err = a.SignIn(e.ctx, siwe.SignInParams{})
	require.Error(t, err)
	assert.Equal(t, errors.KindSIWEVerification, errors.KindOf(err))

	var we *errors.WalletError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, http.StatusUnprocessableEntity, we.Status)
	assert.Contains(t, err.Error(), "Invalid nonce.")

	_, ok, err := a.Me(e.ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticatorServerFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   errors.Kind
	}{
		{"internal error", http.StatusInternalServerError, errors.KindResourceUnavailable},
		{"bad gateway", http.StatusBadGateway, errors.KindResourceUnavailable},
		{"bad request", http.StatusBadRequest, errors.KindSIWEVerification},
		{"forbidden", http.StatusForbidden, errors.KindSIWEVerification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newWrappedAuthEnv(t, "", func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/verify" {
						next.ServeHTTP(w, r)
						return
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"message":"boom"}`))
				})
			})
			a := e.authenticator(t)
			_, err := e.client.Connect(e.ctx, e.conn, 0)
			require.NoError(t, err)

			_, err = a.SignIn(e.ctx, siwe.SignInParams{})
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))

			var we *errors.WalletError
			require.True(t, errors.As(err, &we))
			assert.Equal(t, tt.status, we.Status)
		})
	}
}

func TestAuthenticatorServerUnreachable(t *testing.T) {
	e := newAuthEnv(t, "")
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	a, err := siwe.NewAuthenticator(e.ctx, siwe.AuthenticatorConfig{BaseURL: closed.URL})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	_, err = e.client.Connect(e.ctx, e.conn, 0)
	require.NoError(t, err)

	_, err = a.SignIn(e.ctx, siwe.SignInParams{})
	require.Error(t, err)
	assert.Equal(t, errors.KindResourceUnavailable, errors.KindOf(err))

	_, _, err = a.Me(e.ctx)
	assert.Equal(t, errors.KindResourceUnavailable, errors.KindOf(err))
	assert.Equal(t, errors.KindResourceUnavailable, errors.KindOf(a.Logout(e.ctx)))
}
