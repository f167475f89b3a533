package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/anticheat"
	"github.com/coinhunt/coinhunt-backend-go/internal/events"
	"github.com/coinhunt/coinhunt-backend-go/internal/ingest"
	"github.com/coinhunt/coinhunt-backend-go/internal/metrics"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
	"github.com/coinhunt/coinhunt-backend-go/internal/proximity"
)

// Sentinel errors for session interaction.
var (
	ErrSessionClosed = errors.New("session is closed")
	ErrNoLocation    = errors.New("no recent location for session")
)

// FixOutcome is what the worker reports back for one processed fix.
type FixOutcome struct {
	Fix          *models.LocationFix
	MovementType models.MovementType
	FlagCount    int
}

type fixCmd struct {
	fix   *models.LocationFix
	reply chan fixReply
}

type fixReply struct {
	outcome FixOutcome
	err     error
}

type activateCmd struct {
	target models.Target
	reply  chan struct{}
}

type deactivateCmd struct {
	targetID string
	reply    chan struct{}
}

type collectCmd struct {
	targetID string
	reply    chan collectReply
}

type collectReply struct {
	event *models.TargetEvent
	err   error
}

type snapshotCmd struct {
	reply chan []models.TargetSnapshot
}

// Worker owns all mutable state of one session: its ingestor, its proximity
// engine and its detector. Every interaction goes through the ordered
// command channel, so fixes are processed strictly in timestamp order and no
// lock is ever taken on session state.
type Worker struct {
	session models.Session

	ingestor *ingest.Ingestor
	engine   *proximity.Engine
	detector *anticheat.Detector
	sink     *events.Sink

	grace    time.Duration
	cmds     chan interface{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// requestStop signals the loop to exit; safe to call more than once.
func (w *Worker) requestStop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func newWorker(session models.Session, cfg Config, sink *events.Sink) *Worker {
	queue := cfg.FixQueueSize
	if queue < 1 {
		queue = 64
	}
	return &Worker{
		session:  session,
		ingestor: ingest.New(cfg.Ingest),
		engine:   proximity.NewEngine(session.ID),
		detector: anticheat.New(cfg.Thresholds, session.ID, session.UserID, session.DeviceID),
		sink:     sink,
		grace:    cfg.GracePeriod,
		cmds:     make(chan interface{}, queue),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// run is the session loop. It returns a non-nil error only for failures that
// must take the process down (cheat flag persistence); a returned error
// cancels the manager's errgroup.
func (w *Worker) run(ctx context.Context) error {
	defer close(w.done)

	idle := time.NewTimer(w.grace)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case <-idle.C:
			log.Printf("[SessionWorker] session %s idle past grace period, tearing down", w.session.ID)
			return nil
		case cmd := <-w.cmds:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(w.grace)

			if err := w.handle(cmd); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) handle(cmd interface{}) error {
	switch c := cmd.(type) {
	case fixCmd:
		outcome, err := w.processFix(c.fix)
		if err != nil && errors.Is(err, errFlagPersist) {
			c.reply <- fixReply{err: err}
			return err
		}
		c.reply <- fixReply{outcome: outcome, err: err}
	case activateCmd:
		w.engine.Activate(c.target)
		c.reply <- struct{}{}
	case deactivateCmd:
		w.engine.Deactivate(c.targetID)
		c.reply <- struct{}{}
	case collectCmd:
		c.reply <- w.processCollect(c.targetID)
	case snapshotCmd:
		c.reply <- w.engine.Snapshot(w.ingestor.LastKnownGood(time.Now()))
	}
	return nil
}

var errFlagPersist = errors.New("cheat flag persistence failed")

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ingest.ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, ingest.ErrStaleFix):
		return "stale"
	default:
		return "other"
	}
}

func (w *Worker) processFix(fix *models.LocationFix) (FixOutcome, error) {
	res, err := w.ingestor.Accept(fix)
	if err != nil {
		metrics.FixesRejected.WithLabelValues(rejectReason(err)).Inc()
		return FixOutcome{}, err
	}
	metrics.FixesAccepted.Inc()

	assessment := w.detector.Evaluate(res.Previous, res.Fix)
	for i := range assessment.Flags {
		flag := assessment.Flags[i]
		if err := w.sink.PublishFlag(&flag); err != nil {
			// Retry once; anti-cheat evidence must never be silently lost.
			if err = w.sink.PublishFlag(&flag); err != nil {
				log.Printf("[SessionWorker] session %s: %v", w.session.ID, err)
				return FixOutcome{}, errors.Join(errFlagPersist, err)
			}
		}
	}

	if res.UpdatedCurrent {
		w.sink.PublishTargetEvents(w.session.ID, w.engine.Evaluate(res.Fix))
	}

	return FixOutcome{
		Fix:          res.Fix,
		MovementType: assessment.MovementType,
		FlagCount:    len(assessment.Flags),
	}, nil
}

func (w *Worker) processCollect(targetID string) collectReply {
	fix := w.ingestor.LastKnownGood(time.Now())
	if fix == nil {
		return collectReply{err: ErrNoLocation}
	}
	event, err := w.engine.Collect(targetID, fix)
	if err != nil {
		return collectReply{err: err}
	}
	metrics.Collections.Inc()
	w.sink.PublishTargetEvents(w.session.ID, []models.TargetEvent{*event})
	return collectReply{event: event}
}

func (w *Worker) submit(ctx context.Context, cmd interface{}) error {
	select {
	case w.cmds <- cmd:
		return nil
	case <-w.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session returns the immutable session identity.
func (w *Worker) Session() models.Session {
	return w.session
}

// SubmitFix queues a fix and waits for its outcome.
func (w *Worker) SubmitFix(ctx context.Context, fix *models.LocationFix) (FixOutcome, error) {
	reply := make(chan fixReply, 1)
	if err := w.submit(ctx, fixCmd{fix: fix, reply: reply}); err != nil {
		return FixOutcome{}, err
	}
	select {
	case r := <-reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return FixOutcome{}, ctx.Err()
	}
}

// Activate makes a target the active hunt goal for this session.
func (w *Worker) Activate(ctx context.Context, target models.Target) error {
	reply := make(chan struct{}, 1)
	if err := w.submit(ctx, activateCmd{target: target, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deactivate drops a target from this session's hunt.
func (w *Worker) Deactivate(ctx context.Context, targetID string) error {
	reply := make(chan struct{}, 1)
	if err := w.submit(ctx, deactivateCmd{targetID: targetID, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect attempts to collect a target using the session's last known good
// fix.
func (w *Worker) Collect(ctx context.Context, targetID string) (*models.TargetEvent, error) {
	reply := make(chan collectReply, 1)
	if err := w.submit(ctx, collectCmd{targetID: targetID, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.event, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot reports the live per-target hunt state.
func (w *Worker) Snapshot(ctx context.Context) ([]models.TargetSnapshot, error) {
	reply := make(chan []models.TargetSnapshot, 1)
	if err := w.submit(ctx, snapshotCmd{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case snaps := <-reply:
		return snaps, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
