// Package biometric is the client side of the enrollment and identification
// service. Calls are one-shot: no retry and no timeout beyond the caller's
// context.
package biometric

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kozaktomas/face-attendance/internal/device"
)

// FormData is the registration form as submitted.
type FormData struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employee_id"`
	Department string `json:"department"`
}

// EnrolledProfile is the record returned by a successful enrollment.
type EnrolledProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EmployeeID   string    `json:"employee_id"`
	Department   string    `json:"department"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EnrollResult is the outcome of an enrollment request.
type EnrollResult struct {
	Success bool             `json:"success"`
	Profile *EnrolledProfile `json:"user,omitempty"`
	Message string           `json:"message,omitempty"`
}

// MatchedProfile is the person returned by a successful identification.
type MatchedProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EmployeeID string `json:"employee_id,omitempty"`
	Department string `json:"department"`
	Initials   string `json:"initials"`
}

// IdentifyResult is the outcome of an identification request. Confidence is
// in [0, 1].
type IdentifyResult struct {
	Success    bool            `json:"success"`
	Profile    *MatchedProfile `json:"user,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Message    string          `json:"message,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Client talks to the biometric service.
type Client interface {
	// Enroll registers the person described by form using the captured frame.
	Enroll(ctx context.Context, form FormData, frame device.Frame) (*EnrollResult, error)
	// Identify looks up the person in frame.
	Identify(ctx context.Context, frame device.Frame) (*IdentifyResult, error)
}

// Messages shared by the client implementations.
const (
	MessageNotRecognized = "Face not recognized. Please ensure proper lighting and face the camera directly."
	MessageNoFace        = "No face detected. Please face the camera and try again."
)

// Initials returns the upper-cased first letter of every word in name.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

const userIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewUserID returns an identifier of the form USR-XXXX.
func NewUserID(r *rand.Rand) string {
	b := []byte("USR-0000")
	for i := 4; i < len(b); i++ {
		b[i] = userIDAlphabet[r.IntN(len(userIDAlphabet))]
	}
	return string(b)
}
