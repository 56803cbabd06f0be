package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestFetchWritesPlaintextAttachment(t *testing.T) {
	transport := &recordingTransport{downloadData: []byte("fake voice bytes")}
	fetcher := NewFetcher(transport, nil)

	path, err := fetcher.Fetch(context.Background(), plainEvent())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	defer os.Remove(path)

	if !strings.HasSuffix(path, ".ogg") {
		t.Fatalf("path = %q, want .ogg suffix", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "fake voice bytes" {
		t.Fatalf("temp file content = %q", data)
	}

	if len(transport.downloads) != 1 || transport.downloads[0].String() != "mxc://example.com/media123" {
		t.Fatalf("downloads = %v", transport.downloads)
	}
}

func TestFetchDecryptsEncryptedAttachment(t *testing.T) {
	ev, ciphertext := encryptedEvent(t, []byte("secret audio"))
	transport := &recordingTransport{downloadData: ciphertext}
	fetcher := NewFetcher(transport, nil)

	path, err := fetcher.Fetch(context.Background(), ev)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "secret audio" {
		t.Fatalf("temp file content = %q, want decrypted plaintext", data)
	}

	// The encrypted reference is used, not the (absent) plaintext URL.
	if transport.downloads[0].String() != "mxc://example.com/enc123" {
		t.Fatalf("downloaded %v, want encrypted reference", transport.downloads[0])
	}
}

func TestFetchEmptyResponse(t *testing.T) {
	transport := &recordingTransport{downloadData: nil}
	fetcher := NewFetcher(transport, nil)

	_, err := fetcher.Fetch(context.Background(), plainEvent())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestFetchTransportError(t *testing.T) {
	transport := &recordingTransport{downloadErr: errors.New("connection reset")}
	fetcher := NewFetcher(transport, nil)

	_, err := fetcher.Fetch(context.Background(), plainEvent())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestFetchIntegrityMismatch(t *testing.T) {
	ev, ciphertext := encryptedEvent(t, []byte("secret audio"))
	ciphertext[len(ciphertext)-1] ^= 0x01

	transport := &recordingTransport{downloadData: ciphertext}
	fetcher := NewFetcher(transport, nil)

	_, err := fetcher.Fetch(context.Background(), ev)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestFetchInvalidReference(t *testing.T) {
	ev := plainEvent()
	ev.URL = "https://not-an-mxc-uri.example.com/file"

	fetcher := NewFetcher(&recordingTransport{}, nil)

	_, err := fetcher.Fetch(context.Background(), ev)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestFetchUniquePathsPerCall(t *testing.T) {
	transport := &recordingTransport{downloadData: []byte("fake voice bytes")}
	fetcher := NewFetcher(transport, nil)

	first, err := fetcher.Fetch(context.Background(), plainEvent())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	defer os.Remove(first)

	second, err := fetcher.Fetch(context.Background(), plainEvent())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	defer os.Remove(second)

	if first == second {
		t.Fatalf("expected unique temp paths, got %q twice", first)
	}
}
