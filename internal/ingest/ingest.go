package ingest

import (
	"errors"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/geo"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// Sentinel errors surfaced to callers.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrStaleFix          = errors.New("stale fix: timestamp not after last accepted fix")
)

// Options defines configurable ingest filter parameters.
type Options struct {
	AccuracyCeilingMeters float64       // accepted but marked low-confidence above this
	MinMovementMeters     float64       // minimum displacement to update current
	HeartbeatInterval     time.Duration // update current anyway after this long
	MaxFixAge             time.Duration // last-known-good horizon
	WindowSize            int           // rolling diagnostic window
}

// DefaultOptions provides default ingest filter parameters.
var DefaultOptions = Options{
	AccuracyCeilingMeters: 50.0,
	MinMovementMeters:     2.0,
	HeartbeatInterval:     30 * time.Second,
	MaxFixAge:             5 * time.Minute,
	WindowSize:            8,
}

// Result describes what happened to an accepted fix.
type Result struct {
	Fix            *models.LocationFix // the accepted fix (LowConfidence set if applicable)
	Previous       *models.LocationFix // previous accepted fix, nil for the first
	UpdatedCurrent bool                // false when the movement filter suppressed the update
}

// Ingestor turns a raw device fix stream into a validated, de-duplicated
// stream for one session. Not safe for concurrent use; each session worker
// owns exactly one Ingestor.
type Ingestor struct {
	opts         Options
	current      *models.LocationFix
	lastAccepted *models.LocationFix
	lastTime     time.Time
	window       []*models.LocationFix
}

// New creates an Ingestor with the given options.
func New(opts Options) *Ingestor {
	if opts.WindowSize < 2 {
		opts.WindowSize = DefaultOptions.WindowSize
	}
	return &Ingestor{opts: opts}
}

// Validate checks a fix against the coordinate invariants without touching
// ingest state.
func Validate(fix *models.LocationFix) error {
	if fix.Latitude < -90 || fix.Latitude > 90 {
		return ErrInvalidCoordinate
	}
	if fix.Longitude < -180 || fix.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	// Null island: both exactly zero is a device default, not a position.
	if fix.Latitude == 0 && fix.Longitude == 0 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Accept validates and records a raw fix. Timestamps must be strictly
// increasing per session; out-of-order fixes are rejected rather than
// reordered because speed math is only meaningful for forward time deltas.
func (in *Ingestor) Accept(fix *models.LocationFix) (*Result, error) {
	if err := Validate(fix); err != nil {
		return nil, err
	}
	if !in.lastTime.IsZero() && !fix.Timestamp.After(in.lastTime) {
		return nil, ErrStaleFix
	}

	accepted := *fix
	if in.opts.AccuracyCeilingMeters > 0 && accepted.AccuracyMeters > in.opts.AccuracyCeilingMeters {
		// Poor accuracy is anti-cheat-relevant evidence, so the fix is kept.
		accepted.LowConfidence = true
	}

	res := &Result{Fix: &accepted, Previous: in.lastAccepted}
	in.lastAccepted = &accepted
	in.lastTime = accepted.Timestamp

	res.UpdatedCurrent = in.shouldUpdateCurrent(&accepted)
	if res.UpdatedCurrent {
		in.current = &accepted
	}

	in.window = append(in.window, &accepted)
	if len(in.window) > in.opts.WindowSize {
		in.window = in.window[len(in.window)-in.opts.WindowSize:]
	}
	return res, nil
}

func (in *Ingestor) shouldUpdateCurrent(fix *models.LocationFix) bool {
	if in.current == nil {
		return true
	}
	moved := geo.DistanceMeters(in.current.Latitude, in.current.Longitude, fix.Latitude, fix.Longitude)
	if moved >= in.opts.MinMovementMeters {
		return true
	}
	// Heartbeat keeps current fresh even when stationary.
	return fix.Timestamp.Sub(in.current.Timestamp) >= in.opts.HeartbeatInterval
}

// Current returns the current fix, or nil before the first accepted fix.
func (in *Ingestor) Current() *models.LocationFix {
	return in.current
}

// LastKnownGood returns the current fix if it is fresh, otherwise the most
// recent fix not older than MaxFixAge, otherwise nil.
func (in *Ingestor) LastKnownGood(now time.Time) *models.LocationFix {
	if in.current != nil && now.Sub(in.current.Timestamp) <= in.opts.HeartbeatInterval {
		return in.current
	}
	for i := len(in.window) - 1; i >= 0; i-- {
		if now.Sub(in.window[i].Timestamp) <= in.opts.MaxFixAge {
			return in.window[i]
		}
	}
	return nil
}

// Window returns the rolling diagnostic window, oldest first.
func (in *Ingestor) Window() []*models.LocationFix {
	return in.window
}
