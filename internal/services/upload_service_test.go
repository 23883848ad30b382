package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"poholowani/internal/config"
	"poholowani/internal/retry"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func uploadConfig(endpoint string) config.UploadConfig {
	return config.UploadConfig{
		Endpoint: endpoint,
		MaxBytes: 1024,
		Timeout:  time.Second,
		Retry:    retry.Policy{Attempts: 2, Delay: time.Millisecond},
	}
}

func TestUploadService_ForwardsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("userId"); got != "user-1" {
			t.Errorf("userId = %q", got)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part: %v", err)
		}
		defer f.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part content type = %q", ct)
		}
		data, _ := io.ReadAll(f)
		if !bytes.Equal(data, pngHeader) {
			t.Error("file bytes changed in transit")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"url":"https://cdn.example/u/user-1/image.png"}`))
	}))
	defer srv.Close()

	svc := NewUploadService(uploadConfig(srv.URL))
	res, err := svc.Upload(context.Background(), "user-1", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.URL != "https://cdn.example/u/user-1/image.png" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestUploadService_Validate(t *testing.T) {
	svc := NewUploadService(uploadConfig("http://unused"))
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrUploadEmpty},
		{"text", []byte("just some text pretending to be a photo"), ErrUploadType},
		{"too large", append(append([]byte{}, pngHeader...), make([]byte, 1024)...), ErrUploadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Validate(bytes.NewReader(tt.data))
			asValidation(t, err, tt.want)
		})
	}

	if _, mtype, err := svc.Validate(bytes.NewReader(pngHeader)); err != nil || mtype != "image/png" {
		t.Errorf("png = %q, %v", mtype, err)
	}
}

func TestUploadService_EndpointErrors(t *testing.T) {
	var calls atomic.Int32
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"success":false,"error":"bucket full"}`))
	}))
	defer srv.Close()
	svc := NewUploadService(uploadConfig(srv.URL))

	_, err := svc.Upload(context.Background(), "user-1", bytes.NewReader(pngHeader))
	var uerr *UploadError
	if !errors.As(err, &uerr) || uerr.Status != http.StatusBadRequest || uerr.Message != "bucket full" {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx retried: %d calls", calls.Load())
	}

	calls.Store(0)
	status.Store(http.StatusServiceUnavailable)
	if _, err := svc.Upload(context.Background(), "user-1", bytes.NewReader(pngHeader)); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 2 {
		t.Errorf("5xx attempts = %d, want 2", calls.Load())
	}

	if _, err := svc.Upload(context.Background(), "", bytes.NewReader(pngHeader)); !errors.Is(err, ErrLoginRequired) {
		t.Errorf("anonymous err = %v", err)
	}
	noEndpoint := NewUploadService(uploadConfig(""))
	if _, err := noEndpoint.Upload(context.Background(), "user-1", bytes.NewReader(pngHeader)); !errors.Is(err, ErrUploadUnavailable) {
		t.Errorf("unconfigured err = %v", err)
	}
}
