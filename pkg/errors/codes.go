package errors

// Error codes for categorizing errors.
// Wallet codes are the string form of a Kind; generic codes are used by the
// SIWE backend and by infrastructure (storage, config).
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeCancelled indicates the operation was cancelled.
	CodeCancelled = "CANCELLED"

	// CodeUnknown indicates an unknown error occurred.
	CodeUnknown = "UNKNOWN"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeUnauthorized indicates authentication is required or failed.
	CodeUnauthorized = "UNAUTHORIZED"

	// CodeTimeout indicates an operation timed out.
	CodeTimeout = "TIMEOUT"

	// CodeStorageError indicates a storage backend operation failed.
	CodeStorageError = "STORAGE_ERROR"

	// CodeNetworkError indicates a network operation failed.
	CodeNetworkError = "NETWORK_ERROR"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"

	// CodeSerializationError indicates serialization/deserialization failed.
	CodeSerializationError = "SERIALIZATION_ERROR"

	// Wallet error codes

	CodeUserRejectedRequest         = "USER_REJECTED_REQUEST"
	CodeConnectorNotFound           = "CONNECTOR_NOT_FOUND"
	CodeConnectorAlreadyConnected   = "CONNECTOR_ALREADY_CONNECTED"
	CodeChainNotConfigured          = "CHAIN_NOT_CONFIGURED"
	CodeChainMismatch               = "CHAIN_MISMATCH"
	CodeSwitchChainNotSupported     = "SWITCH_CHAIN_NOT_SUPPORTED"
	CodeProviderRPC                 = "PROVIDER_RPC_ERROR"
	CodeResourceUnavailable         = "RESOURCE_UNAVAILABLE"
	CodeContractResultDecode        = "CONTRACT_RESULT_DECODE_ERROR"
	CodeChainDoesNotSupportContract = "CHAIN_DOES_NOT_SUPPORT_CONTRACT"
	CodeProviderNotFound            = "PROVIDER_NOT_FOUND"
	CodeClientNotFound              = "CLIENT_NOT_FOUND"
	CodeActionPending               = "ACTION_PENDING"
	CodeSIWEVerification            = "SIWE_VERIFICATION_FAILED"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a caller-side error (4xx).
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryServer indicates a server-side error (5xx).
	CategoryServer ErrorCategory = "SERVER_ERROR"

	// CategoryNetwork indicates a network or RPC error.
	CategoryNetwork ErrorCategory = "NETWORK_ERROR"

	// CategoryUser indicates the wallet user declined or is busy.
	CategoryUser ErrorCategory = "USER_ERROR"

	// CategoryConfig indicates a programmer/configuration error.
	CategoryConfig ErrorCategory = "CONFIG_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeValidation, CodeUnauthorized, CodeSIWEVerification,
		CodeChainMismatch, CodeContractResultDecode, CodeActionPending,
		CodeConnectorAlreadyConnected:
		return CategoryClient

	case CodeUserRejectedRequest, CodeResourceUnavailable:
		return CategoryUser

	case CodeConfigError, CodeClientNotFound, CodeConnectorNotFound,
		CodeChainNotConfigured, CodeSwitchChainNotSupported,
		CodeChainDoesNotSupportContract, CodeProviderNotFound:
		return CategoryConfig

	case CodeTimeout, CodeNetworkError, CodeProviderRPC:
		return CategoryNetwork

	default:
		return CategoryServer
	}
}

// IsRecoverable reports whether an error with the given code is an expected
// runtime condition the UI should render, as opposed to a programmer error.
func IsRecoverable(code string) bool {
	return GetCategory(code) != CategoryConfig
}
