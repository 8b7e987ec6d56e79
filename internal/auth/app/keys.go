package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
)

// masterKeyEnv holds the master key when no key file is configured.
const masterKeyEnv = "AUTH_MASTER_KEY"

// InitAuthKeys creates the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": keys are generated on startup and held in memory. Every
//     token becomes invalid when the service restarts.
//   - "persistent": keys are sealed with the master key and stored in the
//     database, so tokens survive restarts.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Issuer:   cfg.Issuer,
		Audience: nil, // access tokens carry the client id as audience
		RSABits:  cfg.RSABits,
		NumKeys:  cfg.NumKeys,
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		material, err := cryptox.LoadMasterKey(cfg.MasterKeyPath, masterKeyEnv)
		if err != nil {
			return nil, err
		}
		cipher, err := cryptox.NewKeyCipher(material)
		if err != nil {
			return nil, err
		}

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.NewKeyStoreAdapter(db),
			Cipher:            cipher,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumKeys(),
			"issuer", cfg.Issuer,
		)
		return km, nil

	case KeyStorageEphemeral, "":
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumKeys(),
			"issuer", cfg.Issuer,
		)
		logger.Warn("ephemeral keys: tokens issued before this start no longer verify")
		return km, nil

	default:
		return nil, fmt.Errorf("unknown key storage mode %q", cfg.KeyStorageMode)
	}
}
