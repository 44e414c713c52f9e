package inference

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type image struct {
	data     []byte
	mimeType string
}

func readImage(path string) (image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return image{}, err
	}
	if len(data) == 0 {
		return image{}, fmt.Errorf("%s is empty", filepath.Base(path))
	}
	return image{data: data, mimeType: detectMIME(path, data)}, nil
}

func detectMIME(path string, data []byte) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(byExt, "image/") {
		return byExt
	}
	return "image/jpeg"
}
