// internal/handlers/upload.go
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KRYZL19/memory5/internal/config"
)

// allowedImageTypes mirrors the MIME whitelist of the reference deployment.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

type uploadResponse struct {
	Success   bool     `json:"success"`
	Filenames []string `json:"filenames,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// UploadHandler accepts a multipart upload of custom card images on the
// form field "images" and responds with the stored reference paths, which
// clients later pass back as customImages on createRoom. Non-image MIME
// types reject the whole request.
func UploadHandler(logger *logrus.Logger, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeUploadError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
			writeUploadError(w, http.StatusBadRequest, "invalid multipart request")
			return
		}
		files := r.MultipartForm.File["images"]
		if len(files) == 0 {
			writeUploadError(w, http.StatusBadRequest, "no images supplied")
			return
		}
		if len(files) > cfg.MaxUploadFiles {
			writeUploadError(w, http.StatusBadRequest,
				fmt.Sprintf("at most %d images per upload", cfg.MaxUploadFiles))
			return
		}

		// Validate the whole batch before touching the disk so a rejected
		// request never leaves earlier files behind.
		for _, fh := range files {
			if !allowedImageTypes[fh.Header.Get("Content-Type")] {
				writeUploadError(w, http.StatusBadRequest, "only image files are allowed")
				return
			}
		}

		refs := make([]string, 0, len(files))
		for _, fh := range files {
			name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(fh.Filename))
			if err := saveUploadedFile(fh, filepath.Join(cfg.UploadDir, name)); err != nil {
				logger.Errorf("Failed to store uploaded image %q: %v", fh.Filename, err)
				writeUploadError(w, http.StatusInternalServerError, "failed to store image")
				return
			}
			refs = append(refs, "/uploads/"+name)
		}

		logger.Infof("Stored %d uploaded images.", len(refs))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(uploadResponse{Success: true, Filenames: refs})
	}
}

func saveUploadedFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func writeUploadError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(uploadResponse{Success: false, Error: msg})
}
