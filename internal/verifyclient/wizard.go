package verifyclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"dfi/internal/envelope"
)

// Step is a stage of the verification wizard.
type Step int

const (
	StepDocument Step = iota
	StepVideo
	StepProcessing
)

func (s Step) String() string {
	switch s {
	case StepDocument:
		return "document"
	case StepVideo:
		return "video"
	case StepProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Wizard drives the three step verification flow: collect a document,
// collect a video, then submit both and follow the progress stream.
// The upload endpoint owns persisting the outcome; the wizard only
// reports it.
type Wizard struct {
	client   *Client
	notifier Notifier

	fullName string

	step         Step
	documentPath string
	videoPath    string

	finalized bool
}

func NewWizard(client *Client, notifier Notifier, fullName string) *Wizard {
	return &Wizard{
		client:   client,
		notifier: notifier,
		fullName: fullName,
		step:     StepDocument,
	}
}

func (w *Wizard) CurrentStep() Step { return w.step }

// SetDocument records the identity document and advances to the video
// step.
func (w *Wizard) SetDocument(path string) error {
	if w.step != StepDocument {
		return fmt.Errorf("cannot set document during %s step", w.step)
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("document path required")
	}
	w.documentPath = path
	w.step = StepVideo
	return nil
}

// SetVideo records the selfie video and advances to the processing step.
func (w *Wizard) SetVideo(path string) error {
	if w.step != StepVideo {
		return fmt.Errorf("cannot set video during %s step", w.step)
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("video path required")
	}
	w.videoPath = path
	w.step = StepProcessing
	return nil
}

// Submit uploads both files and consumes the stream to completion.
// onProgress fires for every progress envelope in stream order. The
// wizard resets to the document step when Submit returns, whatever the
// outcome.
func (w *Wizard) Submit(ctx context.Context, onProgress func(int)) error {
	if w.step != StepProcessing {
		return fmt.Errorf("cannot submit during %s step", w.step)
	}
	if strings.TrimSpace(w.fullName) == "" {
		return errors.New("full name required")
	}

	defer func() {
		w.step = StepDocument
		w.documentPath = ""
		w.videoPath = ""
		w.finalized = false
	}()

	stream, err := w.client.Submit(ctx, w.documentPath, w.videoPath, w.fullName)
	if err != nil {
		w.notify("Verification failed: " + err.Error())
		return err
	}
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			w.notify("Verification stream interrupted: " + err.Error())
			return fmt.Errorf("failed to read verification stream: %w", err)
		}

		switch {
		case ev.IsProgress():
			if onProgress != nil {
				onProgress(*ev.Progress)
			}
		case ev.IsTerminal():
			w.finalize(ev)
		case ev.IsError():
			// Errors do not end the stream; report and keep reading.
			w.notify("Verification error: " + ev.Error)
		}
	}

	if !w.finalized {
		w.notify("Verification ended without a result. Please try again.")
		return errors.New("verification stream ended without a result")
	}

	return nil
}

// finalize reports the terminal decision exactly once. Later terminal
// envelopes on the same stream are ignored. The endpoint already
// persisted the outcome before sending the result line.
func (w *Wizard) finalize(ev envelope.Envelope) {
	if w.finalized {
		return
	}
	w.finalized = true

	if ev.Success != nil && *ev.Success {
		w.notify(fmt.Sprintf("Identity verified. Similarity: %.1f%%", ev.SimilarityValue()))
		return
	}

	w.notify(fmt.Sprintf("Verification failed. Similarity: %.1f%%", ev.SimilarityValue()))
}

func (w *Wizard) notify(message string) {
	if w.notifier != nil {
		w.notifier.Notify(message)
	}
}
