package protocol

import (
	"math"
	"time"
)

// AngularSpeed is the nominal turn rate of the drone in degrees per second.
const AngularSpeed = 360.0 / 15

// Default deadlines per command class.
const (
	BasicTimeout   = 10 * time.Second
	FlipTimeout    = 5 * time.Second
	StopTimeout    = 5 * time.Second
	DisplayTimeout = 1 * time.Second
	QueryTimeout   = 3 * time.Second
	QueryAttempts  = 3

	motionBase   = 2.0
	motionFactor = 4.0
)

// Class is a group of commands sharing one timeout and retry rule.
type Class int

const (
	ClassBasic Class = iota
	ClassMotion
	ClassRotation
	ClassFlip
	ClassDisplay
	ClassQuery
	ClassStop
)

var classNames = map[Class]string{
	ClassBasic:    "basic",
	ClassMotion:   "motion",
	ClassRotation: "rotation",
	ClassFlip:     "flip",
	ClassDisplay:  "display",
	ClassQuery:    "query",
	ClassStop:     "stop",
}

func (c Class) String() string { return classNames[c] }

// Policy tells the engine how long to wait for a reply, how often to resend
// on timeout and whether a failure is surfaced at all.
type Policy struct {
	Class    Class
	Expected string
	Timeout  time.Duration
	Attempts int

	// BestEffort swallows timeouts and malformed replies, pausing and
	// flushing input to resynchronize framing instead.
	BestEffort bool
	// Discard reads one line and ignores it whatever it is.
	Discard bool
}

// BasicPolicy covers takeoff, land and throwfly.
func BasicPolicy() Policy {
	return Policy{Class: ClassBasic, Expected: "ok", Timeout: BasicTimeout, Attempts: 1}
}

// MotionPolicy scales the deadline with the travel time of a go/jump maneuver.
func MotionPolicy(x, y, z, speed int) Policy {
	return Policy{Class: ClassMotion, Expected: "ok", Timeout: MotionTimeout(x, y, z, speed), Attempts: 1}
}

// RotationPolicy scales the deadline with the commanded angle.
func RotationPolicy(angle int) Policy {
	return Policy{Class: ClassRotation, Expected: "ok", Timeout: RotationTimeout(angle), Attempts: 1}
}

// FlipPolicy is a fixed short deadline.
func FlipPolicy() Policy {
	return Policy{Class: ClassFlip, Expected: "ok", Timeout: FlipTimeout, Attempts: 1}
}

// DisplayPolicy is the best-effort rule for LED and matrix commands.
func DisplayPolicy(expected string) Policy {
	return Policy{Class: ClassDisplay, Expected: expected, Timeout: DisplayTimeout, Attempts: 1, BestEffort: true}
}

// QueryPolicy resends the query on timeout and returns the payload as Data.
func QueryPolicy() Policy {
	return Policy{Class: ClassQuery, Timeout: QueryTimeout, Attempts: QueryAttempts}
}

// StopPolicy reads and discards a single line.
func StopPolicy() Policy {
	return Policy{Class: ClassStop, Timeout: StopTimeout, Attempts: 1, Discard: true}
}

// MotionTimeout is 2s plus four times the straight-line travel time.
// A non-positive speed yields the base deadline.
func MotionTimeout(x, y, z, speed int) time.Duration {
	if speed <= 0 {
		return seconds(motionBase)
	}
	norm := math.Sqrt(float64(x*x + y*y + z*z))
	return seconds(motionBase + norm/float64(speed)*motionFactor)
}

// RotationTimeout is twice the time needed to turn |angle| at AngularSpeed.
func RotationTimeout(angle int) time.Duration {
	return seconds(math.Abs(float64(angle)) / AngularSpeed * 2)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
