// Package keystore maintains the ECDSA private keys used to sign probe
// transactions. Keys live on disk as <name>.ecdsa files inside a single
// folder and are addressed by name.
package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// keyExtension is the file extension every key file must carry.
const keyExtension = ".ecdsa"

// ErrNotFound is returned when a key for the specified name does not exist
// in the keystore folder.
var ErrNotFound = errors.New("key not found")

// Keystore maintains the set of sender keys found in the keys folder.
type Keystore struct {
	folder   string
	accounts map[string]common.Address
}

// New constructs a keystore with the keys located inside the specified
// folder. The folder is created when it does not exist yet.
func New(folder string) (*Keystore, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("create keys folder: %w", err)
	}

	ks := Keystore{
		folder:   folder,
		accounts: make(map[string]common.Address),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if info.IsDir() || path.Ext(fileName) != keyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("load key %q: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), keyExtension)
		ks.accounts[name] = crypto.PubkeyToAddress(privateKey.PublicKey)

		return nil
	}

	if err := filepath.Walk(folder, fn); err != nil {
		return nil, fmt.Errorf("walking folder: %w", err)
	}

	return &ks, nil
}

// Create generates a new private key, stores it under the specified name
// and returns the account address derived from the key.
func (ks *Keystore) Create(name string) (common.Address, error) {
	if _, exists := ks.accounts[name]; exists {
		return common.Address{}, fmt.Errorf("key %q already exists", name)
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("generate key: %w", err)
	}

	if err := crypto.SaveECDSA(ks.pathFor(name), privateKey); err != nil {
		return common.Address{}, fmt.Errorf("save key: %w", err)
	}

	account := crypto.PubkeyToAddress(privateKey.PublicKey)
	ks.accounts[name] = account

	return account, nil
}

// Load reads the private key stored under the specified name from disk.
func (ks *Keystore) Load(name string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(ks.pathFor(name)); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	privateKey, err := crypto.LoadECDSA(ks.pathFor(name))
	if err != nil {
		return nil, fmt.Errorf("load key %q: %w", name, err)
	}

	return privateKey, nil
}

// Account returns the address for the key stored under the specified name.
func (ks *Keystore) Account(name string) (common.Address, error) {
	account, exists := ks.accounts[name]
	if !exists {
		return common.Address{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	return account, nil
}

// Lookup returns the name that owns the specified account. When the account
// is unknown the hex form of the address is returned instead.
func (ks *Keystore) Lookup(account common.Address) string {
	for name, acct := range ks.accounts {
		if acct == account {
			return name
		}
	}

	return account.String()
}

// Names returns the sorted set of key names the keystore maintains.
func (ks *Keystore) Names() []string {
	names := make([]string, 0, len(ks.accounts))
	for name := range ks.accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Accounts returns a copy of the map of names and account addresses.
func (ks *Keystore) Accounts() map[string]common.Address {
	cpy := make(map[string]common.Address, len(ks.accounts))
	for name, account := range ks.accounts {
		cpy[name] = account
	}

	return cpy
}

// pathFor constructs the on disk location for the specified key name.
func (ks *Keystore) pathFor(name string) string {
	return filepath.Join(ks.folder, name+keyExtension)
}
