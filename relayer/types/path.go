package types

import (
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
)

// Path is a logical IBC state path. Its String form is the exact key the
// counterparty verifies proofs against, so every proof reader must use it.
type Path interface {
	String() string
	isPath()
}

type ClientStatePath struct {
	ClientId ClientId
}

type ConsensusStatePath struct {
	ClientId ClientId
	Height   Height
}

type ConnectionPath struct {
	ConnectionId string
}

type ChannelEndPath struct {
	PortId    string
	ChannelId string
}

type CommitmentPath struct {
	PortId    string
	ChannelId string
	Sequence  uint64
}

type AcknowledgementPath struct {
	PortId    string
	ChannelId string
	Sequence  uint64
}

func (p ClientStatePath) String() string {
	return host.FullClientStatePath(p.ClientId.String())
}

func (p ConsensusStatePath) String() string {
	return host.FullConsensusStatePath(p.ClientId.String(), p.Height)
}

func (p ConnectionPath) String() string {
	return host.ConnectionPath(p.ConnectionId)
}

func (p ChannelEndPath) String() string {
	return host.ChannelPath(p.PortId, p.ChannelId)
}

func (p CommitmentPath) String() string {
	return host.PacketCommitmentPath(p.PortId, p.ChannelId, p.Sequence)
}

func (p AcknowledgementPath) String() string {
	return host.PacketAcknowledgementPath(p.PortId, p.ChannelId, p.Sequence)
}

func (ClientStatePath) isPath()     {}
func (ConsensusStatePath) isPath()  {}
func (ConnectionPath) isPath()      {}
func (ChannelEndPath) isPath()      {}
func (CommitmentPath) isPath()      {}
func (AcknowledgementPath) isPath() {}
