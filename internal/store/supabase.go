package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"github.com/omartood/Interview-Tools/internal/feedback"
	"github.com/omartood/Interview-Tools/internal/session"
	"github.com/omartood/Interview-Tools/internal/transcript"
)

type Config struct {
	URL    string
	Key    string
	Bucket string
}

// SessionRecord is the persisted artifact of one finished interview.
type SessionRecord struct {
	ID         string                  `json:"id"`
	Config     session.InterviewConfig `json:"config"`
	Transcript []transcript.Item       `json:"transcript"`
	Report     *feedback.Report        `json:"report,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// Storage uploads finished session records to a supabase bucket. A nil
// Storage is valid and drops everything, so persistence stays optional.
type Storage struct {
	client *supabase.Client
	bucket string
}

// New creates the storage layer. Returns nil when the credentials are not
// configured.
func New(config Config) (*Storage, error) {
	if config.URL == "" || config.Key == "" {
		return nil, nil
	}
	client, err := supabase.NewClient(config.URL, config.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Storage{client: client, bucket: config.Bucket}, nil
}

// SaveSession uploads the record as JSON under a fresh uuid key and returns
// the key. Best-effort: callers log and move on when it fails.
func (s *Storage) SaveSession(cfg session.InterviewConfig, items []transcript.Item, report *feedback.Report) (string, error) {
	if s == nil {
		return "", nil
	}
	record := SessionRecord{
		ID:         uuid.NewString(),
		Config:     cfg,
		Transcript: items,
		Report:     report,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session record: %w", err)
	}
	key := fmt.Sprintf("sessions/%s.json", record.ID)
	if _, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("upload to supabase: %w", err)
	}
	log.Printf("Session record stored: %s", key)
	return key, nil
}
