package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/learnportal/internal/filex"
	"github.com/dmitrijs2005/learnportal/internal/wallet"
)

// GenerateWalletKey creates a new wallet key for chainID and writes it to path
// as hex, readable by the owner only. An existing file is never overwritten.
func GenerateWalletKey(path string, chainID int64, w io.Writer) error {
	if path == "" {
		return errors.New("no key file given, pass one with -w")
	}
	if err := wallet.CheckChain(chainID); err != nil {
		return err
	}

	signer, err := wallet.GenerateKey(chainID)
	if err != nil {
		return err
	}

	if _, err := filex.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if _, err := fmt.Fprintln(f, signer.HexKey()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	fmt.Fprintf(w, "Wallet key written to %s\nAddress: %s (%s)\n", path, signer.Address(), wallet.ChainName(chainID))
	return nil
}
