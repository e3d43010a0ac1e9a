package keystore_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/inclusion/foundation/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_KeystoreLifecycle(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "keys")

	ks, err := keystore.New(folder)
	if err != nil {
		t.Fatalf("\t%s \tShould be able to construct a keystore over a missing folder: %s", failed, err)
	}

	if len(ks.Names()) != 0 {
		t.Fatalf("\t%s \tShould start with an empty keystore: got %d keys", failed, len(ks.Names()))
	}

	account, err := ks.Create("probe")
	if err != nil {
		t.Fatalf("\t%s \tShould be able to create a new key: %s", failed, err)
	}
	t.Logf("\t%s \tShould be able to create a new key.", success)

	if _, err := ks.Create("probe"); err == nil {
		t.Fatalf("\t%s \tShould not be able to create a key with a taken name.", failed)
	}

	privateKey, err := ks.Load("probe")
	if err != nil {
		t.Fatalf("\t%s \tShould be able to load the key back: %s", failed, err)
	}
	t.Logf("\t%s \tShould be able to load the key back.", success)

	if got := crypto.PubkeyToAddress(privateKey.PublicKey); got != account {
		t.Errorf("\t%s \tShould derive the same account from the loaded key: got %s, exp %s", failed, got, account)
	}

	if _, err := ks.Load("unknown"); !errors.Is(err, keystore.ErrNotFound) {
		t.Errorf("\t%s \tShould get ErrNotFound for an unknown key: %v", failed, err)
	}

	if got := ks.Lookup(account); got != "probe" {
		t.Errorf("\t%s \tShould resolve the account back to its name: got %q", failed, got)
	}
}

func Test_KeystoreReload(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "keys")

	ks, err := keystore.New(folder)
	if err != nil {
		t.Fatalf("\t%s \tShould be able to construct a keystore: %s", failed, err)
	}

	names := []string{"probe", "builder", "faucet"}
	accounts := make(map[string]string)
	for _, name := range names {
		account, err := ks.Create(name)
		if err != nil {
			t.Fatalf("\t%s \tShould be able to create key %q: %s", failed, name, err)
		}
		accounts[name] = account.String()
	}

	ks2, err := keystore.New(folder)
	if err != nil {
		t.Fatalf("\t%s \tShould be able to reopen the keystore: %s", failed, err)
	}

	got := ks2.Names()
	if len(got) != len(names) {
		t.Fatalf("\t%s \tShould find all keys after a reload: got %d, exp %d", failed, len(got), len(names))
	}
	t.Logf("\t%s \tShould find all keys after a reload.", success)

	for name, exp := range accounts {
		account, err := ks2.Account(name)
		if err != nil {
			t.Fatalf("\t%s \tShould be able to resolve key %q after a reload: %s", failed, name, err)
		}
		if account.String() != exp {
			t.Errorf("\t%s \tShould resolve key %q to the same account: got %s, exp %s", failed, name, account, exp)
		}
	}
}
