package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

var newNonce = cryptox.NewNonce

// serverKey fetches the server public key once per session.
func (a *App) serverKey(ctx context.Context) (string, error) {
	if a.publicKey != "" {
		return a.publicKey, nil
	}
	key, err := a.client.PublicKey(ctx)
	if err != nil {
		return "", fmt.Errorf("get public key: %w", err)
	}
	a.publicKey = key
	return key, nil
}

// seal draws one nonce and seals every secret with it.
func (a *App) seal(ctx context.Context, secrets ...string) (string, []string, error) {
	key, err := a.serverKey(ctx)
	if err != nil {
		return "", nil, err
	}
	nonce, err := newNonce()
	if err != nil {
		return "", nil, fmt.Errorf("nonce: %w", err)
	}

	sealed := make([]string, len(secrets))
	for i, s := range secrets {
		if sealed[i], err = cryptox.Seal(key, nonce, s); err != nil {
			return "", nil, fmt.Errorf("seal: %w", err)
		}
	}
	return nonce, sealed, nil
}
