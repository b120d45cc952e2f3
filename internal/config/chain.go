package config

import "strings"

type Chain struct {
	RPCURL        string `env:"CHAIN_RPC_URL,notEmpty"`
	Network       string `env:"CHAIN_NETWORK" envDefault:"testnet"`
	PackageID     string `env:"CHAIN_PACKAGE_ID,notEmpty"`
	AdminCapID    string `env:"CHAIN_ADMIN_CAP_ID,notEmpty"`
	SponsorKey    string `env:"SPONSOR_KEY,notEmpty" json:"-"`
	GasBudget     uint64 `env:"CHAIN_GAS_BUDGET" envDefault:"100000000"`
	MintBatchSize int    `env:"MINT_BATCH_SIZE" envDefault:"50"`
}

// SponsorSecret strips the quoting some operators paste in with the key.
func (c Chain) SponsorSecret() string {
	return correctNewlines(c.SponsorKey)
}

func correctNewlines(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", `\n`, "\n").Replace(s))
}
