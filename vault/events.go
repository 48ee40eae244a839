package vault

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventPurchase     EventKind = "lp_purchased"
	EventClaim        EventKind = "lp_claimed"
	EventBatchInsert  EventKind = "batch_inserted"
	EventDistribution EventKind = "fees_distributed"
	EventRescueStep   EventKind = "rescue_step"
)

// Event is the structured record emitted for every state-changing operation.
// Field order is stable for off-chain observers.
type Event struct {
	ID              string
	Kind            EventKind
	Holder          common.Address
	Amount          sdkmath.Int
	EthForPurchase  sdkmath.Int
	FeeAmount       sdkmath.Int
	ExitFee         sdkmath.Int
	UnlockTimestamp int64
	Step            int
	Time            time.Time
}

type eventEmitter struct {
	ch     chan<- Event
	logger *zap.Logger
}

func newEventEmitter(ch chan<- Event, logger *zap.Logger) *eventEmitter {
	return &eventEmitter{ch: ch, logger: logger.With(zap.String("module", "events"))}
}

// emit never blocks the operation that produced the event; if the stream is
// full the event is dropped with a warning, the log line remains.
func (e *eventEmitter) emit(ev Event) {
	ev.ID = uuid.NewString()
	ev.Time = time.Now()

	amount := "0"
	if !ev.Amount.IsNil() {
		amount = ev.Amount.String()
	}
	e.logger.Info("event",
		zap.String("id", ev.ID),
		zap.String("kind", string(ev.Kind)),
		zap.String("holder", ev.Holder.Hex()),
		zap.String("amount", amount),
		zap.Int64("unlock_timestamp", ev.UnlockTimestamp),
	)

	if e.ch == nil {
		return
	}
	select {
	case e.ch <- ev:
	default:
		e.logger.Warn("event stream full, dropping event", zap.String("id", ev.ID))
	}
}
