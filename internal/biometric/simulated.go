package biometric

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/device"
)

// Defaults of the simulated service.
const (
	SimulatedEnrollDelay   = 2 * time.Second
	SimulatedIdentifyDelay = 1500 * time.Millisecond
	SimulatedFailureRate   = 0.1
)

var sampleNames = []string{
	"Alex Chen", "Sarah Johnson", "Michael Park", "Emily Davis", "James Wilson",
	"Maria Garcia", "David Kim", "Lisa Thompson", "Robert Martinez", "Jennifer Lee",
	"William Brown", "Amanda Taylor", "Christopher Moore", "Jessica Anderson", "Daniel White",
}

// Simulated is a Client without a backend. Enrollment always succeeds;
// identification fails at FailureRate and otherwise returns a random sample
// person with confidence in [0.85, 1.00].
type Simulated struct {
	EnrollDelay   time.Duration
	IdentifyDelay time.Duration
	FailureRate   float64
	Departments   []string

	clock clock.Clock
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewSimulated creates a simulated client. The seed makes runs reproducible.
func NewSimulated(c clock.Clock, seed uint64, departments []string) *Simulated {
	return &Simulated{
		EnrollDelay:   SimulatedEnrollDelay,
		IdentifyDelay: SimulatedIdentifyDelay,
		FailureRate:   SimulatedFailureRate,
		Departments:   departments,
		clock:         c,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// wait blocks for d on the client's clock or until ctx is done.
func (s *Simulated) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := s.clock.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

func (s *Simulated) Enroll(ctx context.Context, form FormData, _ device.Frame) (*EnrollResult, error) {
	if err := s.wait(ctx, s.EnrollDelay); err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := NewUserID(s.rng)
	s.mu.Unlock()

	return &EnrollResult{
		Success: true,
		Message: fmt.Sprintf("User %s successfully registered with biometric data.", form.Name),
		Profile: &EnrolledProfile{
			ID:           id,
			Name:         form.Name,
			EmployeeID:   form.EmployeeID,
			Department:   form.Department,
			RegisteredAt: s.clock.Now(),
		},
	}, nil
}

func (s *Simulated) Identify(ctx context.Context, _ device.Frame) (*IdentifyResult, error) {
	if err := s.wait(ctx, s.IdentifyDelay); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.rng.Float64() < s.FailureRate {
		return &IdentifyResult{Success: false, Message: MessageNotRecognized, Timestamp: now}, nil
	}

	name := sampleNames[s.rng.IntN(len(sampleNames))]
	department := ""
	if len(s.Departments) > 0 {
		department = s.Departments[s.rng.IntN(len(s.Departments))]
	}
	confidence := math.Round((0.85+s.rng.Float64()*0.15)*100) / 100

	return &IdentifyResult{
		Success: true,
		Profile: &MatchedProfile{
			ID:         NewUserID(s.rng),
			Name:       name,
			Department: department,
			Initials:   Initials(name),
		},
		Confidence: confidence,
		Timestamp:  now,
	}, nil
}

var _ Client = (*Simulated)(nil)
