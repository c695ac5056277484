package relayer

import (
	"context"
	"net/http"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/beacon"
	"github.com/NethermindEth/ibc-relayer/relayer/config"
	"github.com/NethermindEth/ibc-relayer/relayer/evm"
	"github.com/NethermindEth/ibc-relayer/relayer/lightclient"
	"github.com/NethermindEth/ibc-relayer/relayer/metrics"
	"github.com/NethermindEth/ibc-relayer/relayer/prover"
	"github.com/NethermindEth/ibc-relayer/relayer/sequencer"
	"github.com/NethermindEth/ibc-relayer/relayer/signer"
	"github.com/NethermindEth/ibc-relayer/relayer/task"
	"github.com/NethermindEth/ibc-relayer/relayer/tendermint"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

const httpTimeout = 30 * time.Second

// EventSource is implemented by evm.EventSource and tendermint.EventSource.
type EventSource interface {
	ChainId() string
	Subscribe(ctx context.Context, events chan<- types.Event) error
}

// Relayer listens to the source chains and relays every event through the
// dispatcher.
type Relayer struct {
	logger     *utils.ZapLogger
	sources    []EventSource
	dispatcher EventDispatcher
	recorder   JobRecorder
}

func NewRelayer(
	logger *utils.ZapLogger, sources []EventSource, routes map[string]Runner, recorder JobRecorder,
) *Relayer {
	return &Relayer{
		logger:     logger,
		sources:    sources,
		dispatcher: NewEventDispatcher(routes),
		recorder:   recorder,
	}
}

func (r *Relayer) Tracker() *JobTracker {
	return r.dispatcher.Tracker
}

// Run blocks until ctx is done or a source fails for good. Running jobs are
// waited for before returning.
func (r *Relayer) Run(ctx context.Context) error {
	wg := conc.NewWaitGroup()
	wg.Go(func() { r.dispatcher.Dispatch(ctx, r.logger, r.recorder) })
	defer wg.Wait()
	defer close(r.dispatcher.Events)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, source := range r.sources {
		p.Go(func(ctx context.Context) error {
			r.logger.Infow("Listening to events", "chain", source.ChainId())
			return errors.Wrapf(source.Subscribe(ctx, r.dispatcher.Events), "events of chain %s", source.ChainId())
		})
	}
	err := p.Wait()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// Run is the main execution loop of the program: it connects to both
// chains, and relays until ctx is done.
func Run(ctx context.Context, cfg *config.Config, logger *utils.ZapLogger) error {
	m := metrics.NewMetrics(logger, cfg.Metrics)
	if cfg.Metrics != "" {
		go func() {
			if err := m.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := m.Stop(stopCtx); err != nil {
				logger.Warnw("Failed to stop metrics server", "error", err)
			}
		}()
	}

	httpClient := &http.Client{Timeout: httpTimeout}
	beaconAPI := beacon.NewHTTPClient(cfg.Beacon.Url, httpClient)
	proverClient := prover.NewClient(cfg.Prover.Url, httpClient)
	handler := common.HexToAddress(cfg.Execution.IBCHandler)
	pollInterval := time.Duration(cfg.PollInterval)

	execHttp, err := rpc.DialContext(ctx, cfg.Execution.Http)
	if err != nil {
		return errors.Wrapf(err, "dialing execution node %s", cfg.Execution.Http)
	}
	defer execHttp.Close()
	execWs, err := rpc.DialContext(ctx, cfg.Execution.Ws)
	if err != nil {
		return errors.Wrapf(err, "dialing execution node %s", cfg.Execution.Ws)
	}
	defer execWs.Close()
	ethClient := ethclient.NewClient(execHttp)

	tmRPC, err := tendermint.NewRPC(cfg.Tendermint.Rpc)
	if err != nil {
		return errors.Wrapf(err, "connecting to cometbft rpc %s", cfg.Tendermint.Rpc)
	}
	defer func() {
		if err := tmRPC.Stop(); err != nil {
			logger.Debugw("Failed to stop cometbft rpc client", "error", err)
		}
	}()
	querier, err := tendermint.NewQuerier(cfg.Tendermint.Grpc)
	if err != nil {
		return err
	}
	defer querier.Close()

	evmSigner, err := signer.NewInternalSigner(cfg.Signer.PrivKey)
	if err != nil {
		return err
	}
	logger.Infow("EVM signer set up", "address", evmSigner.Address().Hex())
	cosmosSigner := signer.NewExternalSigner(cfg.Signer.ExternalUrl, cfg.Signer.Address)

	evmChain, err := evm.NewChain(logger, cfg.Execution.ChainId, ethClient, evmSigner, handler, pollInterval)
	if err != nil {
		return err
	}
	cosmosChain := tendermint.NewChain(logger, cfg.Tendermint.ChainId, tmRPC, querier, cosmosSigner, pollInterval)

	options := task.Options{
		Retries:      cfg.Retries,
		PollInterval: pollInterval,
		Backoff:      task.DefaultBackoff,
		MaxBackoff:   task.DefaultMaxBackoff,
		Recorder:     m,
	}
	scheduler := task.NewScheduler(logger, options)
	seq := sequencer.New(logger, sequencer.Options{
		Retries:      cfg.Retries,
		PollInterval: pollInterval,
		Backoff:      task.DefaultBackoff,
		MaxBackoff:   task.DefaultMaxBackoff,
		Recorder:     m,
	}, evmChain, cosmosChain)

	evmReader := evm.NewProofReader(logger, gethclient.New(execHttp), ethClient, beaconAPI, handler)
	tmReader := tendermint.NewProofReader(logger, tmRPC, cfg.Tendermint.ChainId)

	registry := lightclient.NewRegistry()
	routes := make(map[string]Runner, len(cfg.Clients))
	sources := []EventSource{}
	for i := range cfg.Clients {
		client := &cfg.Clients[i]
		_, counterparty, err := client.Kinds()
		if err != nil {
			return err
		}

		var route Route
		var source EventSource
		switch counterparty {
		case types.BeaconConsensus:
			protocol := lightclient.NewEthereum(querier, cfg.Signer.Address, client.AllowReverseUpdate)
			pipeline := beacon.NewPipeline(logger, cfg.Beacon.Spec, beaconAPI, evmReader, protocol)
			if client.AllowReverseUpdate {
				pipeline = pipeline.WithReverseUpdates(querier)
			}
			scheduler.Register(beacon.Family, pipeline)
			route = Route{
				ClientId:           types.ClientId(client.ClientId),
				SourceChainId:      cfg.Execution.ChainId,
				DestinationChainId: cfg.Tendermint.ChainId,
				Protocol:           protocol,
				Updates:            pipeline,
				State:              BeaconState{Reader: evmReader},
			}
			source = evm.NewEventSource(
				logger, cfg.Execution.ChainId, ethclient.NewClient(execWs), handler, beaconAPI, cfg.Beacon.Spec,
			)
		case types.TendermintConsensus:
			protocol := lightclient.NewCometbls(evmChain.Host())
			pipeline := tendermint.NewPipeline(logger, cfg.Tendermint.ChainId, tmRPC, proverClient, protocol)
			scheduler.Register(tendermint.Family, pipeline)
			route = Route{
				ClientId:           types.ClientId(client.ClientId),
				SourceChainId:      cfg.Tendermint.ChainId,
				DestinationChainId: cfg.Execution.ChainId,
				Protocol:           protocol,
				Updates:            pipeline,
				State:              TendermintState{Reader: tmReader},
			}
			source = tendermint.NewEventSource(logger, cfg.Tendermint.ChainId, tmRPC)
		default:
			return errors.Errorf("client %s: no light client for %s", client.ClientId, counterparty)
		}
		if err := registry.Register(route.Protocol); err != nil {
			return err
		}

		logger.Infow(
			"Relaying for client",
			"route", route.String(),
			"client type", route.Protocol.ClientType(),
			"reverse updates", route.Protocol.SupportsReverseUpdate(),
		)
		routes[route.SourceChainId] = NewJob(logger, &route, scheduler, seq, m, options)
		sources = append(sources, source)
	}

	return NewRelayer(logger, sources, routes, m).Run(ctx)
}
