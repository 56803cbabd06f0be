package matrix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"

	_ "github.com/mattn/go-sqlite3" // session store driver

	"transcriptbot/pkg/config"
)

const sessionStoreFile = "session.db"

// session owns the end-to-end-encryption state: the sqlite-backed olm
// store under the configured store path and the login bound to it. Keys
// are shared with unverified devices (trust on first use); this is a
// one-shot startup decision with no runtime re-entry.
type session struct {
	helper *cryptohelper.CryptoHelper
}

func newSession(ctx context.Context, mx *mautrix.Client, cfg config.MatrixConfig) (*session, error) {
	if err := os.MkdirAll(cfg.StorePath, 0o700); err != nil {
		return nil, fmt.Errorf("create store path: %w", err)
	}

	helper, err := cryptohelper.NewCryptoHelper(mx, []byte(cfg.PickleKey), filepath.Join(cfg.StorePath, sessionStoreFile))
	if err != nil {
		return nil, fmt.Errorf("initialize crypto store: %w", err)
	}

	helper.LoginAs = &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: cfg.UserID,
		},
		Password:                 cfg.Password,
		InitialDeviceDisplayName: cfg.DeviceName,
	}

	if err := helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("matrix login: %w", err)
	}
	mx.Crypto = helper

	return &session{helper: helper}, nil
}

func (s *session) Close() error {
	if err := s.helper.Close(); err != nil {
		return fmt.Errorf("close crypto store: %w", err)
	}
	return nil
}
