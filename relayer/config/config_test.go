package config

import (
	"os"
	"testing"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/beacon"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
    "beacon": {
        "url": "http://localhost:5052",
        "preset": "minimal"
    },
    "execution": {
        "chainId": "32382",
        "http": "http://localhost:8545",
        "ws": "ws://localhost:8546",
        "ibcHandler": "0xed2af2ad7fe0d92011b26a2e5d1b4dc7d12a47c5"
    },
    "tendermint": {
        "chainId": "union-devnet-1",
        "rpc": "http://localhost:26657",
        "grpc": "localhost:9090"
    },
    "prover": {
        "url": "http://localhost:9999"
    },
    "signer": {
        "url": "http://localhost:5678",
        "privateKey": "0x123",
        "address": "union1jk9psyhvgkrt2cumz8eytll2244m2nnz4yt2g2"
    },
    "clients": [
        {"clientId": "08-wasm-0", "host": "tendermint", "counterparty": "beacon", "allowReverseUpdate": true},
        {"clientId": "cometbls-0", "host": "beacon", "counterparty": "tendermint"}
    ],
    "retries": "5",
    "pollInterval": "2s"
}`

const validTOML = `
retries = "infinite"
poll_interval = "500ms"
metrics = "localhost:9091"

[beacon]
url = "http://localhost:5052"

[beacon.spec]
seconds_per_slot = 12
slots_per_epoch = 32
epochs_per_sync_committee_period = 256

[execution]
chain_id = "11155111"
http = "http://localhost:8545"
ws = "ws://localhost:8546"
ibc_handler = "0xed2af2ad7fe0d92011b26a2e5d1b4dc7d12a47c5"

[tendermint]
chain_id = "union-testnet-9"
rpc = "http://localhost:26657"
grpc = "localhost:9090"

[prover]
url = "http://localhost:9999"

[signer]
url = "http://localhost:5678"
private_key = "0x123"
address = "union1relayer"

[[clients]]
client_id = "08-wasm-1"
host = "tendermint"
counterparty = "beacon"
`

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", pattern)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, os.Remove(tmpFile.Name())) })

	_, err = tmpFile.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestConfigFromFile(t *testing.T) {
	t.Run("Error when reading from file", func(t *testing.T) {
		config, err := FromFile("some non existing file name hopefully")

		require.Equal(t, Config{}, config)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Error when unmarshalling file data", func(t *testing.T) {
		// Trailing comma makes it invalid
		name := writeTemp(t, "config-*.json", `{"someField": 1,}`)

		config, err := FromFile(name)

		require.Equal(t, Config{}, config)
		require.Error(t, err)
	})

	t.Run("Successfully load json config", func(t *testing.T) {
		config, err := FromFile(writeTemp(t, "config-*.json", validJSON))
		require.NoError(t, err)
		require.NoError(t, config.SetDefaults())
		require.NoError(t, config.Check())

		retries := types.NewRetries()
		retries.Set(5)
		expected := Config{
			Beacon: Beacon{
				Url:    "http://localhost:5052",
				Preset: "minimal",
				Spec:   beacon.MinimalSpec,
			},
			Execution: Execution{
				ChainId:    "32382",
				Http:       "http://localhost:8545",
				Ws:         "ws://localhost:8546",
				IBCHandler: "0xed2af2ad7fe0d92011b26a2e5d1b4dc7d12a47c5",
			},
			Tendermint: Tendermint{
				ChainId: "union-devnet-1",
				Rpc:     "http://localhost:26657",
				Grpc:    "localhost:9090",
			},
			Prover: Prover{Url: "http://localhost:9999"},
			Signer: Signer{
				ExternalUrl: "http://localhost:5678",
				PrivKey:     "0x123",
				Address:     "union1jk9psyhvgkrt2cumz8eytll2244m2nnz4yt2g2",
			},
			Clients: []Client{
				{ClientId: "08-wasm-0", Host: "tendermint", Counterparty: "beacon", AllowReverseUpdate: true},
				{ClientId: "cometbls-0", Host: "beacon", Counterparty: "tendermint"},
			},
			Retries:      retries,
			PollInterval: Duration(2 * time.Second),
		}
		require.Equal(t, expected, config)
	})

	t.Run("Successfully load toml config", func(t *testing.T) {
		config, err := FromFile(writeTemp(t, "config-*.toml", validTOML))
		require.NoError(t, err)
		require.NoError(t, config.SetDefaults())
		require.NoError(t, config.Check())

		assert.Equal(t, beacon.MainnetSpec, config.Beacon.Spec)
		assert.Equal(t, "infinite", config.Retries.String())
		assert.Equal(t, Duration(500*time.Millisecond), config.PollInterval)
		assert.Equal(t, "localhost:9091", config.Metrics)
		assert.Equal(t, []Client{{ClientId: "08-wasm-1", Host: "tendermint", Counterparty: "beacon"}}, config.Clients)
	})

	t.Run("Invalid retries value", func(t *testing.T) {
		_, err := FromData([]byte(`{"retries": "0"}`))
		require.ErrorContains(t, err, "greater or equal than one")
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("BEACON_API_URL", "http://beacon")
	t.Setenv("BEACON_PRESET", "mainnet")
	t.Setenv("EXECUTION_CHAIN_ID", "1")
	t.Setenv("EXECUTION_HTTP_URL", "hola")
	t.Setenv("EXECUTION_WS_URL", "ola")
	t.Setenv("EXECUTION_IBC_HANDLER", "0x01")
	t.Setenv("TENDERMINT_CHAIN_ID", "union-1")
	t.Setenv("TENDERMINT_RPC_URL", "ciao")
	t.Setenv("TENDERMINT_GRPC_URL", "bonjour")
	t.Setenv("PROVER_URL", "hallo")
	t.Setenv("SIGNER_EXTERNAL_URL", "salut")
	t.Setenv("SIGNER_PRIVATE_KEY", "0x123")
	t.Setenv("SIGNER_ADDRESS", "union1relayer")
	t.Setenv("METRICS_ADDRESS", "localhost:9090")

	expected := Config{
		Beacon:     Beacon{Url: "http://beacon", Preset: "mainnet"},
		Execution:  Execution{ChainId: "1", Http: "hola", Ws: "ola", IBCHandler: "0x01"},
		Tendermint: Tendermint{ChainId: "union-1", Rpc: "ciao", Grpc: "bonjour"},
		Prover:     Prover{Url: "hallo"},
		Signer:     Signer{ExternalUrl: "salut", PrivKey: "0x123", Address: "union1relayer"},
		Metrics:    "localhost:9090",
	}
	require.Equal(t, expected, FromEnv())
}

func TestCorrectConfig(t *testing.T) {
	load := func(t *testing.T) Config {
		t.Helper()
		config, err := FromData([]byte(validJSON))
		require.NoError(t, err)
		require.NoError(t, config.SetDefaults())
		return config
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{"Missing beacon url", func(c *Config) { c.Beacon.Url = "" }, "beacon api url"},
		{"Missing spec", func(c *Config) { c.Beacon.Spec = beacon.Spec{} }, "neither preset nor spec"},
		{"Zero slot time", func(c *Config) { c.Beacon.Spec.SecondsPerSlot = 0 }, "must be positive"},
		{"Missing execution ws", func(c *Config) { c.Execution.Ws = "" }, "ws provider url"},
		{"Invalid handler", func(c *Config) { c.Execution.IBCHandler = "handler" }, "not a valid address"},
		{"Missing grpc", func(c *Config) { c.Tendermint.Grpc = "" }, "grpc address"},
		{"Missing prover", func(c *Config) { c.Prover.Url = "" }, "prover url"},
		{"Missing private key", func(c *Config) { c.Signer.PrivKey = "" }, "private key"},
		{"Missing signer address", func(c *Config) { c.Signer.Address = "" }, "address not set"},
		{"No clients", func(c *Config) { c.Clients = nil }, "no client"},
		{"Unknown consensus", func(c *Config) { c.Clients[0].Host = "solana" }, "unknown consensus kind"},
		{"Client tracking itself", func(c *Config) { c.Clients[0].Host = "beacon" }, "its own consensus kind"},
		{
			"Reverse update on tendermint client",
			func(c *Config) { c.Clients[1].AllowReverseUpdate = true },
			"reverse updates are only supported",
		},
		{"Duplicated client", func(c *Config) { c.Clients[1].ClientId = "08-wasm-0" }, "configured twice"},
		{
			"Two clients for one pair",
			func(c *Config) {
				c.Clients = append(c.Clients, Client{ClientId: "08-wasm-7", Host: "cometbft", Counterparty: "ethereum"})
			},
			"both track beacon on tendermint",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := load(t)
			test.mutate(&config)
			require.ErrorContains(t, config.Check(), test.expected)
		})
	}

	t.Run("Unknown preset", func(t *testing.T) {
		config := load(t)
		config.Beacon.Spec = beacon.Spec{}
		config.Beacon.Preset = "goerli"
		require.ErrorContains(t, config.SetDefaults(), "unknown beacon preset")
	})
}

func TestConfigFill(t *testing.T) {
	config1, err := FromData([]byte(`{
        "execution": {"http": "http://localhost:1234"},
        "signer": {"privateKey": "0x123", "address": "union1relayer"},
        "pollInterval": "1s"
    }`))
	require.NoError(t, err)
	config2, err := FromData([]byte(`{
        "execution": {"http": "http://localhost:9999", "ws": "ws://localhost:1235"},
        "signer": {"url": "http://localhost:5678", "privateKey": "0x999"},
        "clients": [{"clientId": "08-wasm-0", "host": "tendermint", "counterparty": "beacon"}],
        "retries": "3",
        "pollInterval": "9s"
    }`))
	require.NoError(t, err)

	config1.Fill(&config2)

	assert.Equal(t, Execution{Http: "http://localhost:1234", Ws: "ws://localhost:1235"}, config1.Execution)
	assert.Equal(t, Signer{
		ExternalUrl: "http://localhost:5678",
		PrivKey:     "0x123",
		Address:     "union1relayer",
	}, config1.Signer)
	assert.Equal(t, config2.Clients, config1.Clients)
	assert.Equal(t, "3", config1.Retries.String())
	assert.Equal(t, Duration(time.Second), config1.PollInterval)
}

func TestSetDefaults(t *testing.T) {
	var config Config
	require.NoError(t, config.SetDefaults())

	assert.Equal(t, "infinite", config.Retries.String())
	assert.Equal(t, Duration(DefaultPollInterval), config.PollInterval)
	assert.Equal(t, beacon.Spec{}, config.Beacon.Spec)
}
