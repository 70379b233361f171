package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const StableIDPrefix = "EGAF_"

// IngestionStatus is a snapshot of the status column of a file record. The
// external pipeline is the only writer.
type IngestionStatus string

const (
	IngestionStatusReceived   IngestionStatus = "Received"
	IngestionStatusInProgress IngestionStatus = "In progress"
	IngestionStatusCompleted  IngestionStatus = "Completed"
	IngestionStatusArchived   IngestionStatus = "Archived"
	IngestionStatusError      IngestionStatus = "Error"
	// IngestionStatusNoEntry means no record matched the file name.
	IngestionStatusNoEntry IngestionStatus = "NoEntry"
)

var knownStatuses = []IngestionStatus{
	IngestionStatusReceived,
	IngestionStatusInProgress,
	IngestionStatusCompleted,
	IngestionStatusArchived,
	IngestionStatusError,
	IngestionStatusNoEntry,
}

// ParseIngestionStatus maps a raw status string to an IngestionStatus.
// Matching ignores case, spaces and underscores. Unknown values map to NoEntry.
func ParseIngestionStatus(s string) IngestionStatus {
	key := normalizeStatus(s)
	for _, st := range knownStatuses {
		if normalizeStatus(string(st)) == key {
			return st
		}
	}
	return IngestionStatusNoEntry
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// IsTerminal reports whether no further transition is expected.
func (s IngestionStatus) IsTerminal() bool {
	switch s {
	case IngestionStatusCompleted, IngestionStatusArchived, IngestionStatusError, IngestionStatusNoEntry:
		return true
	default:
		return false
	}
}

func (s IngestionStatus) String() string {
	return string(s)
}

// EqualFold compares against a status name given by a user, e.g. "completed".
func (s IngestionStatus) EqualFold(other string) bool {
	return normalizeStatus(string(s)) == normalizeStatus(other)
}

type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "MD5"
	ChecksumSHA256 ChecksumAlgorithm = "SHA256"
)

func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "", "MD5":
		return ChecksumMD5, nil
	case "SHA256":
		return ChecksumSHA256, nil
	default:
		return "", fmt.Errorf("invalid checksum algorithm: %s", s)
	}
}

// OrDefault resolves the zero value to MD5.
func (a ChecksumAlgorithm) OrDefault() ChecksumAlgorithm {
	if a == "" {
		return ChecksumMD5
	}
	return a
}

// WireName is the lowercase name used in broker messages.
func (a ChecksumAlgorithm) WireName() string {
	return strings.ToLower(string(a.OrDefault()))
}

// IngestionRequest asks the pipeline to ingest one encrypted inbox file.
// Empty checksums are valid and are left out of the message.
type IngestionRequest struct {
	User              string
	FileName          string
	StableID          string
	RawChecksum       string
	EncryptedChecksum string
	ChecksumAlgorithm ChecksumAlgorithm
}

type RequestOption func(*IngestionRequest)

func WithRawChecksum(checksum string) RequestOption {
	return func(r *IngestionRequest) {
		r.RawChecksum = checksum
	}
}

func WithEncryptedChecksum(checksum string) RequestOption {
	return func(r *IngestionRequest) {
		r.EncryptedChecksum = checksum
	}
}

func WithChecksumAlgorithm(algorithm ChecksumAlgorithm) RequestOption {
	return func(r *IngestionRequest) {
		r.ChecksumAlgorithm = algorithm
	}
}

// NewIngestionRequest builds a request with a fresh stable id.
func NewIngestionRequest(user, fileName string, opts ...RequestOption) IngestionRequest {
	r := IngestionRequest{
		User:              user,
		FileName:          fileName,
		StableID:          NewStableID(),
		ChecksumAlgorithm: ChecksumMD5,
	}
	for _, opt := range opts {
		opt(&r)
	}
	r.ChecksumAlgorithm = r.ChecksumAlgorithm.OrDefault()
	return r
}

func NewStableID() string {
	return StableIDPrefix + uuid.NewString()
}

// Integrity is the checksum object of an ingestion message.
type Integrity struct {
	Algorithm string `json:"algorithm"`
	Checksum  string `json:"checksum"`
}

// IngestionMessage is the JSON body published to the broker.
type IngestionMessage struct {
	User                 string     `json:"user"`
	FilePath             string     `json:"filepath"`
	StableID             string     `json:"stable_id"`
	EncryptedIntegrity   *Integrity `json:"encrypted_integrity,omitempty"`
	UnencryptedIntegrity *Integrity `json:"unencrypted_integrity,omitempty"`
}

func (r IngestionRequest) Message() IngestionMessage {
	m := IngestionMessage{
		User:     r.User,
		FilePath: r.FileName,
		StableID: r.StableID,
	}
	algo := r.ChecksumAlgorithm.WireName()
	if r.EncryptedChecksum != "" {
		m.EncryptedIntegrity = &Integrity{Algorithm: algo, Checksum: r.EncryptedChecksum}
	}
	if r.RawChecksum != "" {
		m.UnencryptedIntegrity = &Integrity{Algorithm: algo, Checksum: r.RawChecksum}
	}
	return m
}
