package config

type Storage struct {
	AggregatorURL string `env:"BLOB_AGGREGATOR_URL,notEmpty"`
	PublisherURL  string `env:"BLOB_PUBLISHER_URL,notEmpty"`
	PublisherKey  string `env:"BLOB_PUBLISHER_KEY" json:"-"`
	Epochs        int    `env:"BLOB_EPOCHS" envDefault:"5"`
}

type Channel struct {
	FaucetURL string `env:"CHANNEL_FAUCET_URL,notEmpty"`
	ProverURL string `env:"PROVER_URL,notEmpty"`
	ProverKey string `env:"PROVER_KEY" json:"-"`
}
