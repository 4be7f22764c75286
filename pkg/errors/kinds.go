package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the wallet error taxonomy. The set is open: new kinds
// may be added, so consumers switching on Kind must keep a default branch.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserRejectedRequest
	KindConnectorNotFound
	KindConnectorAlreadyConnected
	KindChainNotConfigured
	KindChainMismatch
	KindSwitchChainNotSupported
	KindProviderRPC
	KindResourceUnavailable
	KindContractResultDecode
	KindChainDoesNotSupportContract
	KindProviderNotFound
	KindClientNotFound
	KindActionPending
	KindSIWEVerification
)

var kindCodes = map[Kind]string{
	KindUnknown:                     CodeUnknown,
	KindUserRejectedRequest:         CodeUserRejectedRequest,
	KindConnectorNotFound:           CodeConnectorNotFound,
	KindConnectorAlreadyConnected:   CodeConnectorAlreadyConnected,
	KindChainNotConfigured:          CodeChainNotConfigured,
	KindChainMismatch:               CodeChainMismatch,
	KindSwitchChainNotSupported:     CodeSwitchChainNotSupported,
	KindProviderRPC:                 CodeProviderRPC,
	KindResourceUnavailable:         CodeResourceUnavailable,
	KindContractResultDecode:        CodeContractResultDecode,
	KindChainDoesNotSupportContract: CodeChainDoesNotSupportContract,
	KindProviderNotFound:            CodeProviderNotFound,
	KindClientNotFound:              CodeClientNotFound,
	KindActionPending:               CodeActionPending,
	KindSIWEVerification:            CodeSIWEVerification,
}

// Code returns the string code of the kind.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return CodeUnknown
}

func (k Kind) String() string {
	return strings.ToLower(strings.ReplaceAll(k.Code(), "_", " "))
}

// EIP-1193 and JSON-RPC error codes surfaced by wallets.
const (
	RPCCodeUserRejected        = 4001
	RPCCodeUnauthorized        = 4100
	RPCCodeUnsupportedMethod   = 4200
	RPCCodeDisconnected        = 4900
	RPCCodeChainDisconnected   = 4901
	RPCCodeUnrecognizedChain   = 4902
	RPCCodeResourceUnavailable = -32002
	RPCCodeInternal            = -32603
)

// WalletError is the tagged error type for every failure surfaced by the
// client, actions and hooks. Only the fields relevant to Kind are set.
type WalletError struct {
	*BaseError
	Kind Kind

	Connector     string
	ChainID       int64
	ActiveChainID int64
	Contract      string
	Function      string
	Action        string
	Status        int
}

func newWalletError(kind Kind, message string, cause error) *WalletError {
	return &WalletError{
		BaseError: &BaseError{
			code:    kind.Code(),
			message: message,
			cause:   cause,
			stack:   captureStack(2),
		},
		Kind: kind,
	}
}

// ProviderRPCError wraps a JSON-RPC error returned by a node or wallet.
type ProviderRPCError struct {
	*BaseError
	RPCCode int
	Data    interface{}
}

// Error implements the error interface.
func (e *ProviderRPCError) Error() string {
	return fmt.Sprintf("provider rpc error %d: %s", e.RPCCode, e.message)
}

// NewProviderRPCError creates a ProviderRPCError.
func NewProviderRPCError(code int, message string, data interface{}) *ProviderRPCError {
	return &ProviderRPCError{
		BaseError: &BaseError{
			code:    CodeProviderRPC,
			message: message,
			stack:   captureStack(1),
		},
		RPCCode: code,
		Data:    data,
	}
}

func NewUserRejectedRequestError(cause error) *WalletError {
	return newWalletError(KindUserRejectedRequest, "user rejected request", cause)
}

func NewConnectorNotFoundError(connector string) *WalletError {
	msg := "connector not found"
	if connector != "" {
		msg = fmt.Sprintf("connector %q not found", connector)
	}
	e := newWalletError(KindConnectorNotFound, msg, nil)
	e.Connector = connector
	return e
}

func NewConnectorAlreadyConnectedError(connector string) *WalletError {
	e := newWalletError(KindConnectorAlreadyConnected, "connector already connected", nil)
	e.Connector = connector
	return e
}

func NewChainNotConfiguredError(chainID int64, connector string) *WalletError {
	msg := fmt.Sprintf("chain %d not configured", chainID)
	if connector != "" {
		msg = fmt.Sprintf("chain %d not configured for connector %q", chainID, connector)
	}
	e := newWalletError(KindChainNotConfigured, msg, nil)
	e.ChainID = chainID
	e.Connector = connector
	return e
}

func NewChainMismatchError(activeChainID, targetChainID int64) *WalletError {
	e := newWalletError(KindChainMismatch,
		fmt.Sprintf("chain mismatch: expected %d, received %d", targetChainID, activeChainID), nil)
	e.ChainID = targetChainID
	e.ActiveChainID = activeChainID
	return e
}

func NewSwitchChainNotSupportedError(connector string) *WalletError {
	e := newWalletError(KindSwitchChainNotSupported,
		fmt.Sprintf("%q does not support programmatic chain switching", connector), nil)
	e.Connector = connector
	return e
}

func NewResourceUnavailableError(cause error) *WalletError {
	return newWalletError(KindResourceUnavailable, "resource unavailable", cause)
}

func NewContractResultDecodeError(contract, function string, cause error) *WalletError {
	msg := fmt.Sprintf("contract call %s returned no data", function)
	if cause != nil {
		msg = fmt.Sprintf("failed to decode result of %s", function)
	}
	e := newWalletError(KindContractResultDecode, msg, cause)
	e.Contract = contract
	e.Function = function
	return e
}

func NewChainDoesNotSupportContractError(chainID int64, contract string) *WalletError {
	e := newWalletError(KindChainDoesNotSupportContract,
		fmt.Sprintf("chain %d does not support contract %q", chainID, contract), nil)
	e.ChainID = chainID
	e.Contract = contract
	return e
}

func NewProviderNotFoundError() *WalletError {
	return newWalletError(KindProviderNotFound, "provider not found", nil)
}

// NewClientNotFoundError is returned when a hook is used without a Provider
// installed in its context. It is a programmer error.
func NewClientNotFoundError() *WalletError {
	return newWalletError(KindClientNotFound,
		"no client found in context; wrap the context with provider.NewContext", nil)
}

func NewActionPendingError(action string) *WalletError {
	e := newWalletError(KindActionPending, fmt.Sprintf("%s already pending", action), nil)
	e.Action = action
	return e
}

func NewSIWEVerificationError(status int, message string) *WalletError {
	if message == "" {
		message = "sign-in verification failed"
	}
	e := newWalletError(KindSIWEVerification, message, nil)
	e.Status = status
	return e
}

// KindOf returns the Kind of err, or KindUnknown when err is not part of the
// taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var we *WalletError
	if errors.As(err, &we) {
		return we.Kind
	}
	var pe *ProviderRPCError
	if errors.As(err, &pe) {
		return KindProviderRPC
	}
	return KindUnknown
}

// IsKind reports whether err belongs to kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

type rpcCoder interface {
	ErrorCode() int
}

type rpcDataError interface {
	ErrorData() interface{}
}

// FromRPCCode maps an EIP-1193 / JSON-RPC error to the taxonomy.
func FromRPCCode(code int, message string, data interface{}) error {
	switch code {
	case RPCCodeUserRejected:
		return NewUserRejectedRequestError(NewProviderRPCError(code, message, data))
	case RPCCodeResourceUnavailable:
		return NewResourceUnavailableError(NewProviderRPCError(code, message, data))
	case RPCCodeUnrecognizedChain:
		return newWalletError(KindChainNotConfigured, "unrecognized chain", NewProviderRPCError(code, message, data))
	default:
		return NewProviderRPCError(code, message, data)
	}
}

// Normalize converts any error into the taxonomy. Errors already in the
// taxonomy are returned unchanged; go-ethereum rpc errors are mapped by code;
// everything else becomes KindUnknown wrapping the original.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	var we *WalletError
	if errors.As(err, &we) {
		return err
	}
	var pe *ProviderRPCError
	if errors.As(err, &pe) {
		return err
	}
	var coder rpcCoder
	if errors.As(err, &coder) {
		var data interface{}
		var de rpcDataError
		if errors.As(err, &de) {
			data = de.ErrorData()
		}
		return FromRPCCode(coder.ErrorCode(), err.Error(), data)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e := NewProviderRPCError(0, "request timed out", nil)
		e.cause = err
		return e
	}
	return newWalletError(KindUnknown, "unexpected error", err)
}
