package encryption

import (
	"fmt"
	"io"

	"flightres/internal/fr"
)

// PlainEncryptor stores snapshots unencrypted. Selected with
// encryption.type = "none"; also used by tests.
type PlainEncryptor struct{}

var _ fr.Encryptor = PlainEncryptor{}

func NewPlainEncryptor() PlainEncryptor { return PlainEncryptor{} }

func (PlainEncryptor) Setup(string) error { return nil }

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Unlock(string) (fr.DecryptionContext, error) {
	return plainDecryption{}, nil
}

func (PlainEncryptor) IsConfigured() bool    { return true }
func (PlainEncryptor) NeedsPassphrase() bool { return false }

type plainDecryption struct{}

func (plainDecryption) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
