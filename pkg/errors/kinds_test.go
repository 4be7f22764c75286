package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeRPCError struct {
	code int
	msg  string
	data interface{}
}

func (e *fakeRPCError) Error() string          { return e.msg }
func (e *fakeRPCError) ErrorCode() int         { return e.code }
func (e *fakeRPCError) ErrorData() interface{} { return e.data }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"user rejected", NewUserRejectedRequestError(nil), KindUserRejectedRequest},
		{"connector not found", NewConnectorNotFoundError("mock"), KindConnectorNotFound},
		{"already connected", NewConnectorAlreadyConnectedError("mock"), KindConnectorAlreadyConnected},
		{"chain not configured", NewChainNotConfiguredError(10, "mock"), KindChainNotConfigured},
		{"chain mismatch", NewChainMismatchError(1, 5), KindChainMismatch},
		{"switch not supported", NewSwitchChainNotSupportedError("mock"), KindSwitchChainNotSupported},
		{"provider rpc", NewProviderRPCError(-32000, "nonce too low", nil), KindProviderRPC},
		{"resource unavailable", NewResourceUnavailableError(nil), KindResourceUnavailable},
		{"decode", NewContractResultDecodeError("0x01", "balanceOf", nil), KindContractResultDecode},
		{"client not found", NewClientNotFoundError(), KindClientNotFound},
		{"wrapped", fmt.Errorf("outer: %w", NewChainMismatchError(1, 5)), KindChainMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeRPCCodes(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{RPCCodeUserRejected, KindUserRejectedRequest},
		{RPCCodeResourceUnavailable, KindResourceUnavailable},
		{RPCCodeUnrecognizedChain, KindChainNotConfigured},
		{-32000, KindProviderRPC},
		{3, KindProviderRPC},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := Normalize(&fakeRPCError{code: tt.code, msg: "rpc failure", data: "0x"})
			if got := KindOf(err); got != tt.want {
				t.Fatalf("KindOf(Normalize()) = %v, want %v", got, tt.want)
			}
			var pe *ProviderRPCError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderRPCError in chain, got %v", err)
			}
			if pe.RPCCode != tt.code {
				t.Errorf("RPCCode = %d, want %d", pe.RPCCode, tt.code)
			}
		})
	}
}

func TestNormalizeKeepsTaxonomyErrors(t *testing.T) {
	orig := NewChainMismatchError(1, 10)
	if got := Normalize(orig); got != orig {
		t.Fatalf("Normalize should return taxonomy errors unchanged")
	}
	if Normalize(nil) != nil {
		t.Fatalf("Normalize(nil) should be nil")
	}
}

func TestNormalizeUnknownKeepsCause(t *testing.T) {
	err := Normalize(context.Canceled)
	if KindOf(err) != KindUnknown {
		t.Fatalf("expected unknown kind, got %v", KindOf(err))
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause lost: %v", err)
	}

	err = Normalize(context.DeadlineExceeded)
	if KindOf(err) != KindProviderRPC {
		t.Fatalf("expected provider rpc kind for timeout, got %v", KindOf(err))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestWalletErrorFields(t *testing.T) {
	e := NewChainMismatchError(1, 137)
	if e.ActiveChainID != 1 || e.ChainID != 137 {
		t.Errorf("unexpected chain fields: %+v", e)
	}
	if e.Code() != CodeChainMismatch {
		t.Errorf("Code() = %q", e.Code())
	}
	if e.Error() != "chain mismatch: expected 137, received 1" {
		t.Errorf("Error() = %q", e.Error())
	}
	if KindChainMismatch.String() != "chain mismatch" {
		t.Errorf("String() = %q", KindChainMismatch.String())
	}
}

func TestCategories(t *testing.T) {
	if IsRecoverable(CodeClientNotFound) {
		t.Errorf("missing client must not be recoverable")
	}
	if !IsRecoverable(CodeUserRejectedRequest) {
		t.Errorf("user rejection must be recoverable")
	}
	if GetCategory(CodeProviderRPC) != CategoryNetwork {
		t.Errorf("provider rpc should be a network category")
	}
}
