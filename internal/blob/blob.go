// Package blob stores uploaded audio clips and hands back publicly
// fetchable URLs. The only implementation talks to Supabase storage; the
// interface exists so handlers can be tested without a bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// Uploader stores one named blob and resolves it to a public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// AudioKey builds the per-user, timestamp-qualified object key used for
// recorded clips.
func AudioKey(userID string, now time.Time) string {
	return fmt.Sprintf("%s-%d.mp3", userID, now.UnixMilli())
}

// SupabaseStore uploads into one fixed bucket.
type SupabaseStore struct {
	client *supa.Client
	bucket string
}

func NewSupabaseStore(url, serviceKey, bucket string) (*SupabaseStore, error) {
	client, err := supa.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: supabase client: %w", err)
	}
	return &SupabaseStore{client: client, bucket: bucket}, nil
}

func (s *SupabaseStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	_, err := s.client.Storage.UploadFile(s.bucket, key, r, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("blob: upload %s: %w", key, err)
	}
	resp := s.client.Storage.GetPublicUrl(s.bucket, key)
	return resp.SignedURL, nil
}
