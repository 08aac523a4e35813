package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/BetterCallFirewall/scanportal/internal/backend"
	"github.com/BetterCallFirewall/scanportal/internal/websocket"
)

// handleUploadAndScan re-encodes the uploaded file into a fresh multipart body
// and submits it to the backend scanner on behalf of the user.
func (s *Server) handleUploadAndScan(w http.ResponseWriter, r *http.Request) {
	token := authToken(r)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Web.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.Web.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File too large", err.Error())
			return
		}
		writeMessage(w, http.StatusBadRequest, "No file found in request", "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No file found in request", "")
		return
	}
	defer file.Close()

	body, contentType, err := encodeUpload(header.Filename, file)
	if err != nil {
		s.logger.Error("[API/UPLOAD-AND-SCAN] encoding upload", "err", err)
		writeMessage(w, http.StatusInternalServerError, "An internal server error occurred", err.Error())
		return
	}

	resp, err := s.backend.Do(r.Context(), backend.Request{
		Method:      http.MethodPost,
		Path:        "/api/scan-from-upload",
		Token:       token,
		Body:        body,
		ContentType: contentType,
		Timeout:     s.config.Backend.UploadTimeout,
	})
	if se, ok := backend.AsStatusError(err); ok {
		msg := se.Message()
		if msg == "" {
			msg = "Backend scan failed"
		}
		writeMessage(w, se.StatusCode, msg, "")
		return
	}
	if err == nil && !json.Valid(resp.Body) {
		err = backend.ErrInvalidJSON
	}
	if err != nil {
		s.logger.Error("[API/UPLOAD-AND-SCAN] error", "file", header.Filename, "err", err)
		writeMessage(w, http.StatusInternalServerError, "An internal server error occurred", err.Error())
		return
	}

	s.reports.Purge()
	s.hub.Broadcast(websocket.EventScanUploaded, json.RawMessage(resp.Body))
	writeRaw(w, http.StatusOK, resp.Body)
}

func encodeUpload(filename string, src io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("copying upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
