// ABOUTME: Wallet-app catalog loaded from a TOML file with a built-in fallback
// ABOUTME: Lists the wallet apps offered during pairing

package wallet

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// WalletApp describes one wallet application offered during pairing.
type WalletApp struct {
	AppName     string `toml:"app_name"`
	DisplayName string `toml:"display_name"`
	IconURL     string `toml:"icon_url"`
}

// Catalog is the ordered list of wallet apps. The first entry is the
// default selection.
type Catalog struct {
	Wallets []WalletApp `toml:"wallets"`
}

// fallbackCatalog is compiled in for when no catalog file is configured.
var fallbackCatalog = Catalog{
	Wallets: []WalletApp{
		{AppName: "tonkeeper", DisplayName: "Tonkeeper", IconURL: "https://tonkeeper.com/assets/tonconnect-icon.png"},
		{AppName: "mytonwallet", DisplayName: "MyTonWallet", IconURL: "https://static.mytonwallet.io/icon-256.png"},
		{AppName: "tonhub", DisplayName: "Tonhub", IconURL: "https://tonhub.com/tonconnect_logo.png"},
	},
}

// LoadCatalog reads the wallet catalog from a TOML file. An empty path
// returns the built-in fallback list.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		c := fallbackCatalog
		return &c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wallet catalog: %w", err)
	}

	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing wallet catalog: %w", err)
	}
	if len(c.Wallets) == 0 {
		return nil, fmt.Errorf("wallet catalog %s lists no wallets", path)
	}
	for i, w := range c.Wallets {
		if w.AppName == "" {
			return nil, fmt.Errorf("wallet catalog %s: entry %d has no app_name", path, i)
		}
	}
	return &c, nil
}

// Default returns the default wallet app.
func (c *Catalog) Default() WalletApp {
	return c.Wallets[0]
}

// ByAppName looks up a wallet app. Falls back to the default when the name
// is unknown (e.g. a stale selection persisted from an older catalog).
func (c *Catalog) ByAppName(appName string) WalletApp {
	for _, w := range c.Wallets {
		if w.AppName == appName {
			return w
		}
	}
	return c.Default()
}
