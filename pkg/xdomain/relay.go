package xdomain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/metrics"
)

// InboundMessage is a completion message delivered over the bridge: the
// execution manager reports that execHash was executed and names the
// executor owed the input token bonds.
type InboundMessage struct {
	Call      InboundCall
	ExecHash  common.Hash
	Recipient common.Address
}

// Claimer applies an authenticated claim to the registry.
type Claimer interface {
	ClaimInputTokens(ctx context.Context, call InboundCall, execHash common.Hash, recipient common.Address) error
}

// Relay consumes inbound completion messages and applies claims. It is the
// local delivery half of the bridge: messages arrive on a buffered channel
// and are applied in arrival order by a single worker goroutine.
type Relay struct {
	inbox   chan InboundMessage
	claimer Claimer
	logger  logger.Logger
}

// NewRelay creates a relay feeding claims into claimer.
func NewRelay(claimer Claimer, log logger.Logger) *Relay {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Relay{
		inbox:   make(chan InboundMessage, 100), // buffer for in-flight bridge messages
		claimer: claimer,
		logger:  log,
	}
}

// Deliver queues a message for processing. It blocks if the inbox is full,
// which is the backpressure a bridge adapter should see.
func (r *Relay) Deliver(ctx context.Context, msg InboundMessage) error {
	select {
	case r.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the relay worker until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	r.logger.InfoWith(logger.CrossDomain, "Relay worker started")
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoWith(logger.CrossDomain, "Relay worker shutting down")
			return
		case msg := <-r.inbox:
			r.process(ctx, msg)
		}
	}
}

func (r *Relay) process(ctx context.Context, msg InboundMessage) {
	err := r.claimer.ClaimInputTokens(ctx, msg.Call, msg.ExecHash, msg.Recipient)
	if err != nil {
		metrics.InboundMessages.WithLabelValues("rejected").Inc()
		r.logger.ErrorWith(logger.CrossDomain, "Rejected claim for %s from %s: %v",
			msg.ExecHash.Hex(), msg.Call.CrossDomainSender.Hex(), err)
		return
	}
	metrics.InboundMessages.WithLabelValues("claimed").Inc()
	r.logger.InfoWith(logger.CrossDomain, "Applied claim for %s to executor %s",
		msg.ExecHash.Hex(), msg.Recipient.Hex())
}
