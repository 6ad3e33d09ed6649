package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"dfi/internal/envelope"
	"dfi/internal/utils"
	"dfi/internal/verifier"
	"dfi/pkg/types"

	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 64 << 20

func (s *Service) handleGetVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.redirectToLogin(w, r)
		return
	}

	data := &types.VerifyPageData{
		BasePageData: types.BasePageData{Title: "Verify Identity"},
	}

	user, err := s.userRepo.User(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to fetch user for verify page")
		s.internalServerError(w)
		return
	}

	if user != nil {
		data.FullName = user.DisplayName()
		data.IsVerified = user.IsVerified
	}

	if err := s.renderTemplate(w, r, "page.verify", data); err != nil {
		s.logger.WithError(err).Error("failed to render verify page")
		s.internalServerError(w)
		return
	}
}

// handleAPIVerify accepts the document and video uploads, runs the
// verifier and streams line framed JSON envelopes back as they happen.
// The response is a sequence of {"progress":n} lines followed by one
// {"success":...,"similarity":...,"output":...} line. Verifier failures
// surface as {"error":...} lines; they do not end the stream early.
func (s *Service) handleAPIVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.logger.WithError(err).Info("failed to parse verification upload form")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to process uploaded files.")
		return
	}

	fullName := r.FormValue("fullName")
	if !required(fullName) {
		fullName = r.FormValue("full_name")
	}

	documentFile, documentHeader, documentErr := r.FormFile("document")
	videoFile, videoHeader, videoErr := r.FormFile("video")
	if documentErr != nil || videoErr != nil || !required(fullName) {
		if documentErr == nil {
			documentFile.Close()
		}
		if videoErr == nil {
			videoFile.Close()
		}
		s.writeJSONError(w, http.StatusBadRequest, "Missing document, video file, or full name.")
		return
	}
	defer documentFile.Close()
	defer videoFile.Close()

	documentPath, err := s.saveUpload(documentFile, documentHeader.Filename)
	if err != nil {
		s.logger.WithError(err).Error("failed to persist document upload")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to process uploaded files.")
		return
	}
	defer s.removeUpload(documentPath)

	videoPath, err := s.saveUpload(videoFile, videoHeader.Filename)
	if err != nil {
		s.logger.WithError(err).Error("failed to persist video upload")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to process uploaded files.")
		return
	}
	defer s.removeUpload(videoPath)

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSONError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	// The stream outlives the server write timeout, so lift the
	// deadline for this response only.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.WithError(err).Debug("failed to clear write deadline")
	}

	// Headers are not committed until the first envelope goes out, so a
	// failure before any progress can still produce a plain 500.
	encoder := json.NewEncoder(w)
	streamed := false
	emit := func(event any) {
		if !streamed {
			streamed = true
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
		}
		if err := encoder.Encode(event); err != nil {
			s.logger.WithError(err).Debug("client went away mid stream")
			return
		}
		flusher.Flush()
	}

	// A disconnect cancels ctx, which kills the verifier process.
	verifyCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.VerifyTimeoutSec)*time.Second)
	defer cancel()

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"document": documentHeader.Filename,
		"video":    videoHeader.Filename,
	}).Info("starting identity verification")

	result, err := s.runner.Verify(verifyCtx, documentPath, videoPath, fullName, func(progress int) {
		emit(envelope.ProgressEvent{Progress: progress})
	})
	if err != nil {
		s.logger.WithError(err).Error("verification run failed")

		event := envelope.ErrorEvent{Error: "Verification process failed"}

		var startErr *verifier.StartError
		if errors.As(err, &startErr) {
			event = envelope.ErrorEvent{Error: "Failed to start verification process"}
		}

		var exitErr *verifier.ExitError
		if errors.As(err, &exitErr) {
			event.Details = exitErr.Details
		}

		if streamed {
			emit(event)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = encoder.Encode(event)
		return
	}

	if result.Success {
		outcome := types.VerificationOutcome{
			IsVerified:           true,
			VerifiedAt:           time.Now(),
			VerificationDocument: documentHeader.Filename,
			VerificationVideo:    videoHeader.Filename,
		}
		if err := s.userRepo.UpdateVerification(ctx, userID, outcome); err != nil {
			s.logger.WithError(err).Error("failed to persist verification outcome")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"success":    result.Success,
		"similarity": result.Similarity,
	}).Info("identity verification finished")

	emit(envelope.ResultEvent{
		Success:    result.Success,
		Similarity: result.Similarity,
		Output:     result.Output,
	})
}

// saveUpload writes the upload under a random name in the upload
// directory. The original file name only survives in its extension.
func (s *Service) saveUpload(file multipart.File, originalName string) (string, error) {
	if err := os.MkdirAll(s.config.UploadDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := utils.NanoID() + filepath.Ext(originalName)
	path := filepath.Join(s.config.UploadDir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	return path, nil
}

// removeUpload deletes a temp upload. The files hold identity documents,
// so a failed delete is worth a loud log line.
func (s *Service) removeUpload(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.WithError(err).WithField("path", path).Error("failed to remove uploaded file")
	}
}

func (s *Service) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope.ErrorEvent{Error: message})
}
