package anticheat

import (
	"time"

	"github.com/google/uuid"

	"github.com/coinhunt/coinhunt-backend-go/internal/geo"
	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// Thresholds defines configurable anti-cheat thresholds.
type Thresholds struct {
	TeleportSpeedKMH    float64       // above this: teleportation, critical
	ImpossibleSpeedKMH  float64       // above this: impossible_speed, high
	SpoofAccuracyMeters float64       // above this: gps_spoofing, high
	MockDedupWindow     time.Duration // one mock_location flag per window per session

	// Movement type buckets (km/h)
	WalkingMaxKMH float64
	RunningMaxKMH float64
	DrivingMaxKMH float64
}

// DefaultThresholds provides default anti-cheat thresholds. No false-positive
// analysis backs these numbers; a high-speed train legitimately exceeds the
// impossible-speed default, which is why they live in configuration.
var DefaultThresholds = Thresholds{
	TeleportSpeedKMH:    1000.0,
	ImpossibleSpeedKMH:  200.0,
	SpoofAccuracyMeters: 100.0,
	MockDedupWindow:     time.Hour,
	WalkingMaxKMH:       6.0,
	RunningMaxKMH:       20.0,
	DrivingMaxKMH:       120.0,
}

// Assessment is the outcome of screening one fix.
type Assessment struct {
	MovementType models.MovementType
	SpeedKMH     float64
	Evaluated    bool // false when there is no previous fix or Δt ≤ 0
	Flags        []models.CheatFlag
}

// Detector screens consecutive fixes of a single session for impossible
// movement and spoofing signals. It never takes enforcement action; flags
// are evidence for an external moderation workflow. Owned by the session
// worker, not safe for concurrent use.
type Detector struct {
	thresholds Thresholds

	sessionID string
	userID    string
	deviceID  string

	lastMockFlag time.Time
}

// New creates a Detector bound to one session.
func New(thresholds Thresholds, sessionID, userID, deviceID string) *Detector {
	return &Detector{
		thresholds: thresholds,
		sessionID:  sessionID,
		userID:     userID,
		deviceID:   deviceID,
	}
}

// Evaluate screens the current fix given the previous accepted fix (nil for
// the first fix of a session). A single fix can raise multiple flags; each
// heuristic is evaluated independently.
func (d *Detector) Evaluate(prev, curr *models.LocationFix) Assessment {
	a := Assessment{MovementType: models.MovementWalking}

	if prev != nil {
		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		if dt > 0 {
			dist := geo.DistanceMeters(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
			a.SpeedKMH = dist / dt * 3.6
			a.Evaluated = true

			if a.SpeedKMH > d.thresholds.TeleportSpeedKMH {
				a.Flags = append(a.Flags, d.flag(models.ReasonTeleportation, models.SeverityCritical,
					models.FlagEvidence{
						PrevFix:          prev,
						CurrFix:          curr,
						DistanceMeters:   dist,
						TimeDeltaSeconds: dt,
						SpeedKMH:         a.SpeedKMH,
						DeviceID:         d.deviceID,
					}, curr.Timestamp))
			} else if a.SpeedKMH > d.thresholds.ImpossibleSpeedKMH {
				a.Flags = append(a.Flags, d.flag(models.ReasonImpossibleSpeed, models.SeverityHigh,
					models.FlagEvidence{
						PrevFix:          prev,
						CurrFix:          curr,
						DistanceMeters:   dist,
						TimeDeltaSeconds: dt,
						SpeedKMH:         a.SpeedKMH,
						DeviceID:         d.deviceID,
					}, curr.Timestamp))
			}
		}
		// Δt ≤ 0 yields no speed evaluation: out-of-order fixes cannot be
		// trusted, and flagging them would punish clock skew, not cheating.
	}

	if curr.IsMockLocation {
		// Dedup window avoids a flag storm from a continuously mocked device.
		if d.lastMockFlag.IsZero() || curr.Timestamp.Sub(d.lastMockFlag) >= d.thresholds.MockDedupWindow {
			d.lastMockFlag = curr.Timestamp
			a.Flags = append(a.Flags, d.flag(models.ReasonMockLocation, models.SeverityMedium,
				models.FlagEvidence{CurrFix: curr, DeviceID: d.deviceID}, curr.Timestamp))
		}
	}

	if curr.AccuracyMeters > d.thresholds.SpoofAccuracyMeters {
		a.Flags = append(a.Flags, d.flag(models.ReasonGPSSpoofing, models.SeverityHigh,
			models.FlagEvidence{CurrFix: curr, DeviceID: d.deviceID}, curr.Timestamp))
	}

	a.MovementType = d.movementType(a, curr)
	return a
}

func (d *Detector) movementType(a Assessment, curr *models.LocationFix) models.MovementType {
	if curr.IsMockLocation {
		return models.MovementSuspicious
	}
	if !a.Evaluated {
		return models.MovementWalking
	}
	switch {
	case a.SpeedKMH <= d.thresholds.WalkingMaxKMH:
		return models.MovementWalking
	case a.SpeedKMH <= d.thresholds.RunningMaxKMH:
		return models.MovementRunning
	case a.SpeedKMH <= d.thresholds.DrivingMaxKMH:
		return models.MovementDriving
	default:
		return models.MovementSuspicious
	}
}

func (d *Detector) flag(reason models.CheatReason, severity models.Severity, ev models.FlagEvidence, at time.Time) models.CheatFlag {
	return models.CheatFlag{
		FlagID:     uuid.NewString(),
		SessionID:  d.sessionID,
		UserID:     d.userID,
		Reason:     reason,
		Severity:   severity,
		Evidence:   ev,
		DetectedAt: at,
	}
}
