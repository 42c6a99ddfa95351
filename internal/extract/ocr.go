package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Images go through the tesseract CLI. The binary is resolved per call so a
// deployment without it fails the document, not the process.
func extractImage(ctx context.Context, data []byte) (string, error) {
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return "", fmt.Errorf("tesseract not installed")
	}
	tmp, err := os.CreateTemp("", "ragserve-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, tmp.Name(), "stdout")
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out.String(), nil
}

func init() {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".tiff", ".bmp"} {
		Register(ext, extractImage)
	}
}
