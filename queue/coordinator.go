package queue

import (
	"context"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"log/slog"
	"sort"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/common/contract"
	"ticketer/common/errs"
	"ticketer/common/otel"
	"ticketer/model"
	"ticketer/outbound/store"
	"time"
)

type Options struct {
	Scheme           model.Scheme
	Atomic           bool
	CodedMaxAttempts int
	Location         *time.Location
	RolloverWait     time.Duration
}

// Coordinator runs every mutation of the shared queue. Each operation is an
// ordered sequence of single-path writes with the write readers care about
// most placed last.
type Coordinator struct {
	Store     store.Store
	Atomic    store.Atomic
	Numbering Numbering
	Publisher contract.Publisher

	Location     *time.Location
	RolloverWait time.Duration
	TimeNow      func() time.Time
}

func NewCoordinator(st store.Store, publisher contract.Publisher, opts Options) (*Coordinator, error) {
	var atomicStore store.Atomic
	if opts.Atomic {
		var ok bool
		atomicStore, ok = st.(store.Atomic)
		if !ok {
			return nil, errs.ErrAtomicRequired
		}
	}

	var numbering Numbering
	switch opts.Scheme {
	case model.SchemeSequential:
		numbering = &SequentialNumbering{Store: st, Atomic: atomicStore}
	case model.SchemeCoded:
		numbering = &CodedNumbering{Store: st, Atomic: atomicStore, MaxAttempts: opts.CodedMaxAttempts}
	default:
		return nil, fmt.Errorf("unknown numbering scheme %q", opts.Scheme)
	}

	wait := opts.RolloverWait
	if wait <= 0 {
		wait = constant.DefaultRolloverWait
	}

	return &Coordinator{
		Store:        st,
		Atomic:       atomicStore,
		Numbering:    numbering,
		Publisher:    publisher,
		Location:     opts.Location,
		RolloverWait: wait,
		TimeNow:      time.Now,
	}, nil
}

func (c *Coordinator) Today() string {
	return DayKey(c.TimeNow(), c.Location)
}

// EnsureDay returns the meta of the current day, rolling the queue over
// first when meta is absent, from another day, or from another scheme.
func (c *Coordinator) EnsureDay(ctx context.Context) (model.QueueMeta, error) {
	ctx, span := otel.Tracer.Start(ctx, "Coordinator.EnsureDay")
	defer span.End()

	meta, err := c.ensureDay(ctx, c.Today())
	common.UtilSpanError(span, err)

	return meta, err
}

// StartSession prepares the day for a cashier who just signed in.
func (c *Coordinator) StartSession(ctx context.Context) (model.QueueMeta, error) {
	return c.EnsureDay(ctx)
}

func (c *Coordinator) ensureDay(ctx context.Context, today string) (model.QueueMeta, error) {
	meta, fresh, err := c.readMeta(ctx, today)
	if err != nil || fresh {
		return meta, err
	}

	if c.Atomic == nil {
		return c.rollover(ctx, today)
	}

	won, err := c.Atomic.Claim(ctx, store.Join(constant.PathRollovers, today), c.TimeNow().UnixMilli())
	if err != nil {
		return model.QueueMeta{}, err
	}

	if won {
		return c.rollover(ctx, today)
	}

	meta, err = c.awaitRollover(ctx, today)
	if err == nil {
		return meta, nil
	}

	if ctx.Err() != nil {
		return model.QueueMeta{}, ctx.Err()
	}

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.WarnContext(ctx, "rollover owner did not finish, taking over", traceIdAttr,
		slog.String(constant.LogFieldDay, today), slog.Any(constant.LogFieldErr, err))

	meta, err = c.rollover(ctx, today)
	if err != nil {
		return model.QueueMeta{}, fmt.Errorf("%w: %w", errs.ErrDayNotReady, err)
	}

	return meta, nil
}

func (c *Coordinator) awaitRollover(ctx context.Context, today string) (model.QueueMeta, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = c.RolloverWait

	var meta model.QueueMeta
	err := backoff.Retry(func() error {
		var fresh bool
		var err error

		meta, fresh, err = c.readMeta(ctx, today)
		if err != nil {
			return err
		}

		if !fresh {
			return errs.ErrDayNotReady
		}

		return nil
	}, backoff.WithContext(b, ctx))

	return meta, err
}

func (c *Coordinator) readMeta(ctx context.Context, today string) (model.QueueMeta, bool, error) {
	snap, err := c.Store.Read(ctx, constant.PathMeta)
	if err != nil {
		return model.QueueMeta{}, false, err
	}

	var meta model.QueueMeta
	if err := snap.Decode(&meta); err != nil {
		return model.QueueMeta{}, false, &errs.StoreError{Op: "read", Path: constant.PathMeta, Err: err}
	}

	fresh := snap.Exists() && meta.Date == today && meta.Scheme == c.Numbering.Scheme()
	return meta, fresh, nil
}

// rollover purges every trace of other days and then writes the new meta.
// A failure part-way leaves meta stale, so the next caller repeats the
// purge, which is idempotent.
func (c *Coordinator) rollover(ctx context.Context, today string) (model.QueueMeta, error) {
	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	if err := c.purgeOtherDays(ctx, constant.PathUsedNumbers, today); err != nil {
		return model.QueueMeta{}, err
	}

	tickets, err := c.readQueue(ctx)
	if err != nil {
		return model.QueueMeta{}, err
	}

	for _, ticket := range tickets {
		if DayKey(ticket.IssuedAt(), c.Location) == today {
			continue
		}

		if err := c.Store.Remove(ctx, store.Join(constant.PathQueue, ticket.Key)); err != nil {
			return model.QueueMeta{}, err
		}
	}

	if err := c.purgeOtherDays(ctx, constant.PathRollovers, today); err != nil {
		return model.QueueMeta{}, err
	}

	// a taken-over owner may have finished in the meantime; its counter must
	// not be reseeded
	meta, fresh, err := c.readMeta(ctx, today)
	if err != nil {
		return model.QueueMeta{}, err
	}

	if fresh {
		return meta, nil
	}

	value := map[string]any{
		constant.MetaFieldDate:   today,
		constant.MetaFieldScheme: c.Numbering.Scheme(),
	}
	for field, val := range c.Numbering.Seed() {
		value[field] = val
	}

	if err := c.Store.Write(ctx, constant.PathMeta, value); err != nil {
		return model.QueueMeta{}, err
	}

	slog.InfoContext(ctx, "queue rolled over", traceIdAttr, slog.String(constant.LogFieldDay, today))
	c.publish(ctx, constant.SubjectQueueRollover, model.QueueEventMessage{Kind: model.QueueEventRollover, Day: today})

	meta, _, err = c.readMeta(ctx, today)
	return meta, err
}

func (c *Coordinator) purgeOtherDays(ctx context.Context, path, today string) error {
	snap, err := c.Store.Read(ctx, path)
	if err != nil {
		return err
	}

	days, err := snap.Children()
	if err != nil {
		return &errs.StoreError{Op: "read", Path: path, Err: err}
	}

	for day := range days {
		if day == today {
			continue
		}

		if err := c.Store.Remove(ctx, store.Join(path, day)); err != nil {
			return err
		}
	}

	return nil
}

// readQueue returns every stored ticket ordered by timestamp, then key.
func (c *Coordinator) readQueue(ctx context.Context) ([]model.Ticket, error) {
	snap, err := c.Store.Read(ctx, constant.PathQueue)
	if err != nil {
		return nil, err
	}

	tickets, err := TicketsOf(snap)
	if err != nil {
		return nil, &errs.StoreError{Op: "read", Path: constant.PathQueue, Err: err}
	}

	return tickets, nil
}

// CurrentView reads meta and the queue directly from the store, rolling the
// day over first when needed.
func (c *Coordinator) CurrentView(ctx context.Context) (View, error) {
	ctx, span := otel.Tracer.Start(ctx, "Coordinator.CurrentView")
	defer span.End()

	meta, err := c.ensureDay(ctx, c.Today())
	if err != nil {
		common.UtilSpanError(span, err)
		return View{}, err
	}

	tickets, err := c.readQueue(ctx)
	if err != nil {
		common.UtilSpanError(span, err)
		return View{}, err
	}

	return View{
		Tickets:        tickets,
		CurrentServing: meta.Serving(),
		Date:           meta.Date,
		Loaded:         true,
		Location:       c.Location,
	}, nil
}

// IssueTicket draws a number for today and appends the ticket. Nothing is
// returned unless the ticket was stored.
func (c *Coordinator) IssueTicket(ctx context.Context) (model.LocalTicket, error) {
	ctx, span := otel.Tracer.Start(ctx, "Coordinator.IssueTicket")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	now := c.TimeNow()
	today := DayKey(now, c.Location)

	if _, err := c.ensureDay(ctx, today); err != nil {
		slog.ErrorContext(ctx, "failed to ensure queue day", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, err
	}

	number, err := c.Numbering.Next(ctx, today)
	if err != nil {
		slog.ErrorContext(ctx, "failed to draw ticket number", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, err
	}

	ticket := model.Ticket{Number: number, Timestamp: now.UnixMilli()}

	key, err := c.Store.Append(ctx, constant.PathQueue, ticket)
	if err != nil {
		slog.ErrorContext(ctx, "failed to append ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, err
	}

	slog.InfoContext(ctx, "ticket issued", traceIdAttr,
		slog.String(constant.LogFieldNumber, number), slog.String(constant.LogFieldDay, today))

	c.publish(ctx, constant.SubjectTicketIssued, model.QueueEventMessage{
		Kind:   model.QueueEventIssued,
		Day:    today,
		Number: number,
		Key:    key,
	})

	return model.LocalTicket{
		Key:       key,
		Number:    number,
		Date:      today,
		Timestamp: ticket.Timestamp,
	}, nil
}

// CallNext announces the head of today's queue as currently serving and then
// removes it. The bool is false when nobody is waiting.
func (c *Coordinator) CallNext(ctx context.Context) (model.LocalTicket, bool, error) {
	ctx, span := otel.Tracer.Start(ctx, "Coordinator.CallNext")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	today := c.Today()

	if _, err := c.ensureDay(ctx, today); err != nil {
		slog.ErrorContext(ctx, "failed to ensure queue day", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, false, err
	}

	tickets, err := c.readQueue(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read queue", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, false, err
	}

	head, ok := firstOfDay(tickets, today, c.Location)
	if !ok {
		slog.DebugContext(ctx, "queue is empty", traceIdAttr)
		return model.LocalTicket{}, false, nil
	}

	err = c.Store.Update(ctx, constant.PathMeta, map[string]any{constant.MetaFieldCurrentServing: head.Number})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish current serving", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, false, err
	}

	if err := c.Store.Remove(ctx, store.Join(constant.PathQueue, head.Key)); err != nil {
		slog.ErrorContext(ctx, "failed to remove called ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return model.LocalTicket{}, false, err
	}

	slog.InfoContext(ctx, "ticket called", traceIdAttr, slog.String(constant.LogFieldNumber, head.Number))

	c.publish(ctx, constant.SubjectTicketCalled, model.QueueEventMessage{
		Kind:   model.QueueEventCalled,
		Day:    today,
		Number: head.Number,
		Key:    head.Key,
	})

	return model.LocalTicket{
		Key:       head.Key,
		Number:    head.Number,
		Date:      today,
		Timestamp: head.Timestamp,
	}, true, nil
}

func firstOfDay(tickets []model.Ticket, day string, loc *time.Location) (model.Ticket, bool) {
	for _, ticket := range tickets {
		if DayKey(ticket.IssuedAt(), loc) == day {
			return ticket, true
		}
	}

	return model.Ticket{}, false
}

// ResetQueue clears currently serving for today. It is refused with
// ErrQueueNotEmpty while anyone is waiting; the emptiness check and the
// write are one conditional step when the store supports it. Unlike a
// rollover it neither redraws the start number nor clears used codes, so
// numbers stay unique within the day.
func (c *Coordinator) ResetQueue(ctx context.Context) error {
	ctx, span := otel.Tracer.Start(ctx, "Coordinator.ResetQueue")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	today := c.Today()

	if _, err := c.ensureDay(ctx, today); err != nil {
		slog.ErrorContext(ctx, "failed to ensure queue day", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return err
	}

	fields := map[string]any{
		constant.MetaFieldDate:           today,
		constant.MetaFieldCurrentServing: nil,
	}

	if c.Atomic != nil {
		applied, err := c.Atomic.UpdateIfEmpty(ctx, constant.PathQueue, constant.PathMeta, fields)
		if err != nil {
			slog.ErrorContext(ctx, "failed to reset queue", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			common.UtilSpanError(span, err)
			return err
		}

		if !applied {
			slog.DebugContext(ctx, "reset refused, queue not empty", traceIdAttr)
			return errs.ErrQueueNotEmpty
		}
	} else {
		snap, err := c.Store.Read(ctx, constant.PathQueue)
		if err != nil {
			slog.ErrorContext(ctx, "failed to read queue", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			common.UtilSpanError(span, err)
			return err
		}

		if snap.Exists() {
			slog.DebugContext(ctx, "reset refused, queue not empty", traceIdAttr)
			return errs.ErrQueueNotEmpty
		}

		if err := c.Store.Update(ctx, constant.PathMeta, fields); err != nil {
			slog.ErrorContext(ctx, "failed to reset queue", traceIdAttr, slog.Any(constant.LogFieldErr, err))
			common.UtilSpanError(span, err)
			return err
		}
	}

	for _, path := range []string{constant.PathUsedNumbers, constant.PathRollovers} {
		if err := c.purgeOtherDays(ctx, path, today); err != nil {
			slog.WarnContext(ctx, "failed to purge stale entries after reset", traceIdAttr,
				slog.String(constant.LogFieldPath, path), slog.Any(constant.LogFieldErr, err))
		}
	}

	slog.InfoContext(ctx, "queue reset", traceIdAttr, slog.String(constant.LogFieldDay, today))
	c.publish(ctx, constant.SubjectQueueReset, model.QueueEventMessage{Kind: model.QueueEventReset, Day: today})

	return nil
}

// publish emits a history event. The queue itself is already updated, so a
// failure is only logged.
func (c *Coordinator) publish(ctx context.Context, subject string, msg model.QueueEventMessage) {
	if c.Publisher == nil {
		return
	}

	msg.OccurredAt = c.TimeNow().Format(time.RFC3339Nano)

	if err := common.PublishMessage(ctx, c.Publisher, subject, msg); err != nil {
		slog.WarnContext(ctx, "queue event dropped", common.ExtractTraceIDFromCtx(ctx),
			slog.String(constant.LogFieldSubject, subject), slog.Any(constant.LogFieldErr, err))
	}
}

// TicketsOf decodes a queue snapshot into tickets ordered by timestamp, then
// key.
func TicketsOf(snap store.Snapshot) ([]model.Ticket, error) {
	children, err := snap.Children()
	if err != nil {
		return nil, err
	}

	tickets := make([]model.Ticket, 0, len(children))
	for key, raw := range children {
		var ticket model.Ticket
		if err := (store.Snapshot{Value: raw}).Decode(&ticket); err != nil {
			return nil, fmt.Errorf("ticket %s: %w", key, err)
		}

		ticket.Key = key
		tickets = append(tickets, ticket)
	}

	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].Timestamp != tickets[j].Timestamp {
			return tickets[i].Timestamp < tickets[j].Timestamp
		}
		return tickets[i].Key < tickets[j].Key
	})

	return tickets, nil
}
