package payment

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JulianR23/Vertex-Store/internal/application"
	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const useCasePoll = "payment.poll"

type PollerConfig struct {
	Interval    time.Duration
	MinAge      time.Duration
	Concurrency int
	BatchSize   int
	CallTimeout time.Duration
}

// Poller settles charges whose webhook never arrived by asking the gateway directly.
type Poller struct {
	orders  domorder.Repository
	gateway dompay.Gateway
	updater StatusUpdater
	cfg     PollerConfig
	inst    *application.Instrumentation
	now     func() time.Time
}

func NewPoller(
	orders domorder.Repository,
	gateway dompay.Gateway,
	updater StatusUpdater,
	cfg PollerConfig,
	tel observability.Observability,
) *Poller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Poller{
		orders:  orders,
		gateway: gateway,
		updater: updater,
		cfg:     cfg,
		inst:    application.NewInstrumentation(tel, paymentService, useCasePoll),
		now:     time.Now,
	}
}

// Run polls every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if p.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.PollOnce(ctx)
		}
	}
}

// PollOnce checks one batch of pending charges and returns how many orders it settled.
func (p *Poller) PollOnce(ctx context.Context) (_ int, err error) {
	ctx, run := p.inst.Begin(ctx, "PollPendingCharges")
	var settled, checked atomic.Int64
	defer func() {
		run.Annotate(
			observability.F("checked", checked.Load()),
			observability.F("settled", settled.Load()),
		)
		run.End(err)
	}()

	pending, err := p.orders.ListPendingCharges(ctx, p.now().Add(-p.cfg.MinAge), p.cfg.BatchSize)
	if err != nil {
		run.Fail("PENDING_LOOKUP_FAILED")
		return 0, err
	}
	if len(pending) == 0 {
		run.Status = "NOTHING_PENDING"
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, o := range pending {
		g.Go(func() error {
			checked.Add(1)
			if p.settle(gctx, run, o) {
				settled.Add(1)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		run.Fail("POLL_INTERRUPTED")
		return int(settled.Load()), err
	}
	return int(settled.Load()), nil
}

func (p *Poller) settle(ctx context.Context, run *application.Run, o *domorder.Order) bool {
	logger := run.Log.With(
		observability.F("order_id", o.ID),
		observability.F("gateway_transaction_id", o.GatewayTransactionID),
	)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	status, err := p.gateway.FetchChargeStatus(callCtx, o.GatewayTransactionID)
	cancel()
	if err != nil {
		logger.Warn("charge_status_lookup_failed", observability.F("error", err.Error()))
		return false
	}

	target, ok := OrderStatusFor(status)
	if !ok {
		return false
	}
	_, err = p.updater.Execute(ctx, apporder.UpdateStatusInput{
		OrderID:              o.ID,
		Status:               target,
		GatewayTransactionID: o.GatewayTransactionID,
		FailureReason:        failureReason(status, ""),
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, domorder.ErrInvalidTransition):
		// settled concurrently by a webhook
		return false
	default:
		logger.Error("charge_settle_failed", observability.F("error", err.Error()))
		return false
	}
}
