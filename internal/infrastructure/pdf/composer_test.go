package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"wizesign/internal/usecase"
)

func testSignaturePNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 16))
	for x := 0; x < 40; x++ {
		img.Set(x, 8, color.Black)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func testComposeInput(t *testing.T) usecase.ComposeInput {
	return usecase.ComposeInput{
		DocumentID:      "a4b1d9e2-8a51-4c8e-9a7e-2f3c44d5a601",
		DocumentName:    "Wisdom Tooth Extraction",
		PatientName:     "Jane Roe",
		SignedAt:        time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		CertificateHash: strings.Repeat("ab", 32),
		SignatureImage:  testSignaturePNG(t),
	}
}

func TestComposeCertificateOnly(t *testing.T) {
	composer := NewComposer(zap.NewNop())

	out, err := composer.Compose(testComposeInput(t))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with a pdf header: %q", out[:min(len(out), 8)])
	}
	if len(out) < 500 {
		t.Errorf("artifact suspiciously small: %d bytes", len(out))
	}
}

func TestComposeWithoutSignatureImage(t *testing.T) {
	composer := NewComposer(zap.NewNop())

	input := testComposeInput(t)
	input.SignatureImage = nil

	out, err := composer.Compose(input)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output is not a pdf")
	}
}

func TestComposeBrokenSignatureImageDegrades(t *testing.T) {
	composer := NewComposer(zap.NewNop())

	input := testComposeInput(t)
	input.SignatureImage = []byte("definitely not a png")

	out, err := composer.Compose(input)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output is not a pdf")
	}
}

func TestComposeMalformedOriginalFails(t *testing.T) {
	composer := NewComposer(zap.NewNop())

	input := testComposeInput(t)
	input.Original = []byte("not a pdf at all")

	// The importer must not bring the process down on garbage input.
	if _, err := composer.Compose(input); err == nil {
		t.Fatal("Compose accepted a malformed original")
	}
}
