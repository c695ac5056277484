package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/beacon"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
)

const DefaultPollInterval = 6 * time.Second

// Duration reads "6s" style strings from JSON and TOML files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parsing duration `%s`", text)
	}
	*d = Duration(parsed)
	return nil
}

type Beacon struct {
	Url string `json:"url" toml:"url"`
	// Preset names a network whose constants fill Spec.
	Preset string      `json:"preset" toml:"preset"`
	Spec   beacon.Spec `json:"spec" toml:"spec"`
}

func (b *Beacon) Fill(other *Beacon) {
	if isZero(b.Url) {
		b.Url = other.Url
	}
	if isZero(b.Preset) {
		b.Preset = other.Preset
	}
	if isZero(b.Spec) {
		b.Spec = other.Spec
	}
}

// SetDefaults fills the spec constants from the preset.
func (b *Beacon) SetDefaults() error {
	if !isZero(b.Spec) || b.Preset == "" {
		return nil
	}
	spec, err := beacon.SpecFromPreset(b.Preset)
	if err != nil {
		return err
	}
	b.Spec = spec
	return nil
}

func (b *Beacon) Check() error {
	if b.Url == "" {
		return errors.New("beacon api url not set in beacon configuration")
	}
	if isZero(b.Spec) {
		return errors.New("neither preset nor spec constants set in beacon configuration")
	}
	return b.Spec.Check()
}

type Execution struct {
	ChainId    string `json:"chainId" toml:"chain_id"`
	Http       string `json:"http" toml:"http"`
	Ws         string `json:"ws" toml:"ws"`
	IBCHandler string `json:"ibcHandler" toml:"ibc_handler"`
}

func (e *Execution) Fill(other *Execution) {
	if isZero(e.ChainId) {
		e.ChainId = other.ChainId
	}
	if isZero(e.Http) {
		e.Http = other.Http
	}
	if isZero(e.Ws) {
		e.Ws = other.Ws
	}
	if isZero(e.IBCHandler) {
		e.IBCHandler = other.IBCHandler
	}
}

func (e *Execution) Check() error {
	if e.ChainId == "" {
		return errors.New("chain id not set in execution configuration")
	}
	if e.Http == "" {
		return errors.New("http provider url not set in execution configuration")
	}
	if e.Ws == "" {
		return errors.New("ws provider url not set in execution configuration")
	}
	if !common.IsHexAddress(e.IBCHandler) {
		return errors.Errorf("ibc handler `%s` is not a valid address", e.IBCHandler)
	}
	return nil
}

type Tendermint struct {
	ChainId string `json:"chainId" toml:"chain_id"`
	Rpc     string `json:"rpc" toml:"rpc"`
	Grpc    string `json:"grpc" toml:"grpc"`
}

func (t *Tendermint) Fill(other *Tendermint) {
	if isZero(t.ChainId) {
		t.ChainId = other.ChainId
	}
	if isZero(t.Rpc) {
		t.Rpc = other.Rpc
	}
	if isZero(t.Grpc) {
		t.Grpc = other.Grpc
	}
}

func (t *Tendermint) Check() error {
	if t.ChainId == "" {
		return errors.New("chain id not set in tendermint configuration")
	}
	if t.Rpc == "" {
		return errors.New("rpc url not set in tendermint configuration")
	}
	if t.Grpc == "" {
		return errors.New("grpc address not set in tendermint configuration")
	}
	return nil
}

type Prover struct {
	Url string `json:"url" toml:"url"`
}

func (p *Prover) Fill(other *Prover) {
	if isZero(p.Url) {
		p.Url = other.Url
	}
}

// Signer holds the keys of both destinations: transactions to the EVM chain
// are signed with PrivKey, Cosmos transactions by the external signer at
// ExternalUrl on behalf of Address.
type Signer struct {
	ExternalUrl string `json:"url" toml:"url"`
	PrivKey     string `json:"privateKey" toml:"private_key"`
	Address     string `json:"address" toml:"address"`
}

func (s *Signer) Fill(other *Signer) {
	if isZero(s.ExternalUrl) {
		s.ExternalUrl = other.ExternalUrl
	}
	if isZero(s.PrivKey) {
		s.PrivKey = other.PrivKey
	}
	if isZero(s.Address) {
		s.Address = other.Address
	}
}

func (s *Signer) Check() error {
	if s.PrivKey == "" {
		return errors.New("private key not set in signer configuration")
	}
	if s.ExternalUrl == "" {
		return errors.New("external url not set in signer configuration")
	}
	if s.Address == "" {
		return errors.New("address not set in signer configuration")
	}
	return nil
}

// Client is one light client the relayer keeps up to date. Host is the
// consensus of the chain the client lives on, Counterparty the consensus it
// tracks.
type Client struct {
	ClientId     string `json:"clientId" toml:"client_id"`
	Host         string `json:"host" toml:"host"`
	Counterparty string `json:"counterparty" toml:"counterparty"`
	// AllowReverseUpdate lets the client be updated to an earlier period.
	AllowReverseUpdate bool `json:"allowReverseUpdate" toml:"allow_reverse_update"`
}

func (c *Client) Kinds() (host, counterparty types.ConsensusKind, err error) {
	if host, err = types.ConsensusKindFromString(c.Host); err != nil {
		return types.UnknownConsensus, types.UnknownConsensus, errors.Wrapf(err, "client %s host", c.ClientId)
	}
	if counterparty, err = types.ConsensusKindFromString(c.Counterparty); err != nil {
		return types.UnknownConsensus, types.UnknownConsensus, errors.Wrapf(err, "client %s counterparty", c.ClientId)
	}
	return host, counterparty, nil
}

func (c *Client) Check() error {
	if c.ClientId == "" {
		return errors.New("client id not set in client configuration")
	}
	host, counterparty, err := c.Kinds()
	if err != nil {
		return err
	}
	if host == counterparty {
		return errors.Errorf("client %s tracks its own consensus kind %s", c.ClientId, host)
	}
	if c.AllowReverseUpdate && counterparty != types.BeaconConsensus {
		return errors.Errorf("client %s: reverse updates are only supported for beacon clients", c.ClientId)
	}
	return nil
}

type Config struct {
	Beacon       Beacon        `json:"beacon" toml:"beacon"`
	Execution    Execution     `json:"execution" toml:"execution"`
	Tendermint   Tendermint    `json:"tendermint" toml:"tendermint"`
	Prover       Prover        `json:"prover" toml:"prover"`
	Signer       Signer        `json:"signer" toml:"signer"`
	Clients      []Client      `json:"clients" toml:"clients"`
	Retries      types.Retries `json:"retries" toml:"retries"`
	PollInterval Duration      `json:"pollInterval" toml:"poll_interval"`
	// Metrics is the listen address of the metrics server, none when empty.
	Metrics string `json:"metrics" toml:"metrics"`
}

func FromEnv() Config {
	return Config{
		Beacon: Beacon{
			Url:    os.Getenv("BEACON_API_URL"),
			Preset: os.Getenv("BEACON_PRESET"),
		},
		Execution: Execution{
			ChainId:    os.Getenv("EXECUTION_CHAIN_ID"),
			Http:       os.Getenv("EXECUTION_HTTP_URL"),
			Ws:         os.Getenv("EXECUTION_WS_URL"),
			IBCHandler: os.Getenv("EXECUTION_IBC_HANDLER"),
		},
		Tendermint: Tendermint{
			ChainId: os.Getenv("TENDERMINT_CHAIN_ID"),
			Rpc:     os.Getenv("TENDERMINT_RPC_URL"),
			Grpc:    os.Getenv("TENDERMINT_GRPC_URL"),
		},
		Prover: Prover{
			Url: os.Getenv("PROVER_URL"),
		},
		Signer: Signer{
			ExternalUrl: os.Getenv("SIGNER_EXTERNAL_URL"),
			PrivKey:     os.Getenv("SIGNER_PRIVATE_KEY"),
			Address:     os.Getenv("SIGNER_ADDRESS"),
		},
		Metrics: os.Getenv("METRICS_ADDRESS"),
	}
}

// FromFile loads a JSON config, or a TOML one when the file ends in .toml.
func FromFile(filePath string) (Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, err
	}
	if strings.EqualFold(filepath.Ext(filePath), ".toml") {
		return FromTOML(data)
	}
	return FromData(data)
}

func FromData(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func FromTOML(data []byte) (Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Fills its missing fields with data from other config
func (c *Config) Fill(other *Config) {
	c.Beacon.Fill(&other.Beacon)
	c.Execution.Fill(&other.Execution)
	c.Tendermint.Fill(&other.Tendermint)
	c.Prover.Fill(&other.Prover)
	c.Signer.Fill(&other.Signer)
	if len(c.Clients) == 0 {
		c.Clients = other.Clients
	}
	if isZero(c.Retries) {
		c.Retries = other.Retries
	}
	if isZero(c.PollInterval) {
		c.PollInterval = other.PollInterval
	}
	if isZero(c.Metrics) {
		c.Metrics = other.Metrics
	}
}

// SetDefaults fills what is still unset once every source was merged.
func (c *Config) SetDefaults() error {
	if isZero(c.Retries) {
		c.Retries = types.NewRetries()
	}
	if isZero(c.PollInterval) {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	return c.Beacon.SetDefaults()
}

// Verifies its data is appropiatly set
func (c *Config) Check() error {
	if err := c.Beacon.Check(); err != nil {
		return err
	}
	if err := c.Execution.Check(); err != nil {
		return err
	}
	if err := c.Tendermint.Check(); err != nil {
		return err
	}
	if c.Prover.Url == "" {
		return errors.New("prover url not set in prover configuration")
	}
	if err := c.Signer.Check(); err != nil {
		return err
	}
	if len(c.Clients) == 0 {
		return errors.New("no client to relay for")
	}
	seen := make(map[string]struct{}, len(c.Clients))
	// one client per source and destination chain
	pairs := make(map[[2]types.ConsensusKind]string, len(c.Clients))
	for i := range c.Clients {
		client := &c.Clients[i]
		if err := client.Check(); err != nil {
			return err
		}
		if _, ok := seen[client.ClientId]; ok {
			return errors.Errorf("client %s is configured twice", client.ClientId)
		}
		seen[client.ClientId] = struct{}{}

		host, counterparty, _ := client.Kinds()
		pair := [2]types.ConsensusKind{host, counterparty}
		if other, ok := pairs[pair]; ok {
			return errors.Errorf(
				"clients %s and %s both track %s on %s", other, client.ClientId, counterparty, host,
			)
		}
		pairs[pair] = client.ClientId
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

func isZero[T comparable](v T) bool {
	var x T
	return v == x
}
