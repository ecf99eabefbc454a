package biometric

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/device"
)

// FaceEmbedder computes face embeddings for an image.
type FaceEmbedder interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error)
}

// EmbeddingService is a Client backed by a face embedding server and a
// profile store. Enrollment stores the embedding of the best detected face;
// identification returns the nearest stored profile within the distance
// threshold.
type EmbeddingService struct {
	embedder  FaceEmbedder
	profiles  database.ProfileWriter
	threshold float64
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEmbeddingService creates the client. threshold is the maximum cosine
// distance accepted as a match.
func NewEmbeddingService(embedder FaceEmbedder, profiles database.ProfileWriter, threshold float64) *EmbeddingService {
	if threshold <= 0 {
		threshold = constants.DefaultDistanceThreshold
	}
	return &EmbeddingService{
		embedder:  embedder,
		profiles:  profiles,
		threshold: threshold,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

func (s *EmbeddingService) detect(ctx context.Context, frame device.Frame) (*FaceDetection, string, error) {
	resp, err := s.embedder.ComputeFaceEmbeddings(ctx, frame.Data)
	if err != nil {
		return nil, "", fmt.Errorf("computing face embeddings: %w", err)
	}
	return resp.Best(), resp.Model, nil
}

func (s *EmbeddingService) Enroll(ctx context.Context, form FormData, frame device.Frame) (*EnrollResult, error) {
	existing, err := s.profiles.GetByEmployeeID(ctx, form.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("checking employee ID: %w", err)
	}
	if existing != nil {
		return &EnrollResult{Message: duplicateMessage(form.EmployeeID)}, nil
	}

	face, model, err := s.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	if face == nil {
		return &EnrollResult{Message: MessageNoFace}, nil
	}

	s.mu.Lock()
	id := NewUserID(s.rng)
	s.mu.Unlock()

	profile := database.StoredProfile{
		ID:           id,
		Name:         form.Name,
		EmployeeID:   form.EmployeeID,
		Department:   form.Department,
		Embedding:    face.Embedding,
		Model:        model,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		if errors.Is(err, database.ErrDuplicateEmployeeID) {
			return &EnrollResult{Message: duplicateMessage(form.EmployeeID)}, nil
		}
		return nil, fmt.Errorf("saving profile: %w", err)
	}

	return &EnrollResult{
		Success: true,
		Message: fmt.Sprintf("User %s successfully registered with biometric data.", form.Name),
		Profile: &EnrolledProfile{
			ID:           profile.ID,
			Name:         profile.Name,
			EmployeeID:   profile.EmployeeID,
			Department:   profile.Department,
			RegisteredAt: profile.RegisteredAt,
		},
	}, nil
}

func (s *EmbeddingService) Identify(ctx context.Context, frame device.Frame) (*IdentifyResult, error) {
	face, _, err := s.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if face == nil {
		return &IdentifyResult{Message: MessageNoFace, Timestamp: now}, nil
	}

	profiles, distances, err := s.profiles.FindNearest(ctx, face.Embedding, constants.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching profiles: %w", err)
	}
	if len(profiles) == 0 || distances[0] > s.threshold {
		return &IdentifyResult{Message: MessageNotRecognized, Timestamp: now}, nil
	}

	best := profiles[0]
	return &IdentifyResult{
		Success: true,
		Profile: &MatchedProfile{
			ID:         best.ID,
			Name:       best.Name,
			EmployeeID: best.EmployeeID,
			Department: best.Department,
			Initials:   Initials(best.Name),
		},
		Confidence: math.Round(database.Confidence(distances[0])*100) / 100,
		Timestamp:  now,
	}, nil
}

func duplicateMessage(employeeID string) string {
	return fmt.Sprintf("Employee ID %s is already registered.", employeeID)
}

var _ Client = (*EmbeddingService)(nil)
