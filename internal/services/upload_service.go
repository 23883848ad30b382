package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"poholowani/internal/config"
	"poholowani/internal/retry"
)

var (
	ErrUploadTooLarge    = errors.New("image is larger than 5 MB")
	ErrUploadType        = errors.New("only JPEG and PNG images are accepted")
	ErrUploadEmpty       = errors.New("image is empty")
	ErrUploadUnavailable = errors.New("image storage is not configured")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// UploadResult mirrors the storage endpoint's answer.
type UploadResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadError is a non-success answer from the storage endpoint.
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string {
	if e.Message != "" {
		return "upload failed: " + e.Message
	}
	return fmt.Sprintf("upload failed with status %d", e.Status)
}

// UploadService validates images and forwards them to the storage endpoint
// as multipart/form-data with the fields userId and file.
//
// The content type is sniffed from the bytes, not taken from the client's
// header or file name.
type UploadService struct {
	endpoint   string
	maxBytes   int64
	policy     retry.Policy
	httpClient *http.Client
}

func NewUploadService(cfg config.UploadConfig) *UploadService {
	return &UploadService{
		endpoint:   cfg.Endpoint,
		maxBytes:   cfg.MaxBytes,
		policy:     cfg.Retry,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// MaxBytes is the size cap.
func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// Validate reads at most MaxBytes+1 bytes from r and checks size and type.
// It returns the bytes and the detected MIME type.
func (s *UploadService) Validate(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", invalid(ErrUploadEmpty)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", invalid(ErrUploadTooLarge)
	}
	mtype := mimetype.Detect(data).String()
	if _, ok := allowedImageTypes[mtype]; !ok {
		return nil, "", invalid(ErrUploadType)
	}
	return data, mtype, nil
}

// Upload validates the image and forwards it for userID.
func (s *UploadService) Upload(ctx context.Context, userID string, r io.Reader) (*UploadResult, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	data, mtype, err := s.Validate(r)
	if err != nil {
		return nil, err
	}
	if s.endpoint == "" {
		return nil, ErrUploadUnavailable
	}

	var result *UploadResult
	err = retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) error {
		res, err := s.post(ctx, userID, data, mtype)
		if err != nil {
			log.Printf("[UPLOAD] attempt %d for %s failed: %v", attempt, userID, err)
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *UploadService) post(ctx context.Context, userID string, data []byte, mtype string) (*UploadResult, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("userId", userID); err != nil {
		return nil, retry.Permanent(err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="image%s"`, allowedImageTypes[mtype]))
	header.Set("Content-Type", mtype)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, retry.Permanent(err)
	}
	if err := w.Close(); err != nil {
		return nil, retry.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("upload: build request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	var result UploadResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&result); err != nil {
		return nil, &UploadError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !result.Success || result.URL == "" {
		uerr := &UploadError{Status: resp.StatusCode, Message: result.Error}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retry.Permanent(uerr)
		}
		return nil, uerr
	}
	log.Printf("[UPLOAD] Stored image for %s in %s", userID, time.Since(start).Round(time.Millisecond))
	return &result, nil
}
