package connectors

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// NewKeystoreConnector decrypts a go-ethereum keystore (V3 JSON) and returns
// a LocalConnector for the key. ID defaults to "keystore".
func NewKeystoreConnector(keyJSON []byte, passphrase string, opts LocalOptions) (*LocalConnector, error) {
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		if err == keystore.ErrDecrypt {
			return nil, errors.NewValidationError("passphrase", "could not decrypt key with given passphrase", nil)
		}
		return nil, errors.Wrap(err, "decrypt keystore")
	}
	if opts.ID == "" {
		opts.ID = "keystore"
	}
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("Keystore %s", key.Address.Hex())
	}
	return NewLocalConnector(key.PrivateKey, opts), nil
}

// LoadKeystoreFile reads a keystore file and decrypts it.
func LoadKeystoreFile(path, passphrase string, opts LocalOptions) (*LocalConnector, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore %s: %w", path, err)
	}
	return NewKeystoreConnector(keyJSON, passphrase, opts)
}
