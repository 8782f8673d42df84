package prediction

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDescription is the sample job description offered when none is given
const DefaultDescription = "Looking for a backend developer with cloud experience"

// IDLength is the number of hex characters in a job id
const IDLength = 8

// Job status constants
const (
	StatusCreated          = "CREATED"
	StatusSubmitted        = "SUBMITTED"
	StatusSubmissionFailed = "SUBMISSION_FAILED"
	StatusAwaitingResult   = "AWAITING_RESULT"
	StatusSucceeded        = "SUCCEEDED"
	StatusTimedOut         = "TIMED_OUT"
	StatusFailed           = "FAILED"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// Job is one submit-and-wait prediction request
type Job struct {
	ID           string
	InputObject  string
	OutputObject string
	InputURI     string
	OutputURI    string
	CreatedAt    time.Time
}

// PollMessage asks a worker to wait for the result of a submitted job
type PollMessage struct {
	JobID string `json:"job_id"`
}

// PredictionResult is the document written by the remote prediction job
type PredictionResult struct {
	PredictedTitle string       `json:"predicted_title"`
	TopSimilar     []SimilarJob `json:"top_similar"`
}

// SimilarJob is one known posting ranked by similarity to the description
type SimilarJob struct {
	JobTitle       string  `json:"job_title"`
	Company        string  `json:"company"`
	Sector         string  `json:"sector"`
	Industry       string  `json:"industry"`
	Location       string  `json:"location"`
	Country        string  `json:"country"`
	SalaryRange    string  `json:"salary_range"`
	Qualifications string  `json:"qualifications"`
	Cosine         float64 `json:"cosine"`
}

// NewID returns a fresh 8 hex character job id.
//
// The id is the leading part of a random UUID, roughly 32 bits of entropy.
// Collisions are not checked for.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
}

// ValidID reports whether id has the shape produced by NewID
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// InputObjectName returns the storage name of the description uploaded for id
func InputObjectName(prefix, id string) string {
	return path.Join(prefix, "input_"+id+".txt")
}

// OutputObjectName returns the storage name the remote job writes its result to
func OutputObjectName(prefix, id string) string {
	return path.Join(prefix, "output_"+id+".json")
}

// ValidStatus reports whether status is one of the job status constants
func ValidStatus(status string) bool {
	switch status {
	case StatusCreated, StatusSubmitted, StatusSubmissionFailed, StatusAwaitingResult,
		StatusSucceeded, StatusTimedOut, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition can leave status
func IsTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusSubmissionFailed, StatusTimedOut, StatusFailed:
		return true
	default:
		return false
	}
}
