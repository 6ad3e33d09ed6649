package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dfi/internal/verifier"
	"dfi/internal/verifyclient"
	"dfi/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"
)

type fakeRunner struct {
	result   *verifier.Result
	err      error
	progress []int

	calls         int
	documentPath  string
	videoPath     string
	fullNameGiven string
}

func (f *fakeRunner) Verify(ctx context.Context, documentPath, videoPath, fullName string, progress func(int)) (*verifier.Result, error) {
	f.calls++
	f.documentPath = documentPath
	f.videoPath = videoPath
	f.fullNameGiven = fullName
	for _, p := range f.progress {
		progress(p)
	}
	return f.result, f.err
}

type fakeStore struct {
	user      *types.User
	outcomes  []types.VerificationOutcome
	addresses []string
	err       error
}

func (f *fakeStore) User(ctx context.Context, userID string) (*types.User, error) {
	if f.user == nil {
		return nil, types.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeStore) UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error {
	return f.err
}

func (f *fakeStore) UpdateVerification(ctx context.Context, userID string, outcome types.VerificationOutcome) error {
	f.outcomes = append(f.outcomes, outcome)
	return f.err
}

func (f *fakeStore) UpdateWalletAddress(ctx context.Context, userID, address string) error {
	f.addresses = append(f.addresses, address)
	return f.err
}

func testService(t *testing.T, runner verifier.Runner, repo AccountStore) *Service {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &Service{
		logger: logger,
		config: &types.Config{
			UploadDir:        t.TempDir(),
			VerifyTimeoutSec: 30,
		},
		runner:   runner,
		userRepo: repo,
	}
}

func verifyRequest(t *testing.T, fullNameField string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	doc, err := writer.CreateFormFile("document", "passport.jpg")
	if err != nil {
		t.Fatal(err)
	}
	doc.Write([]byte("jpeg-bytes"))

	video, err := writer.CreateFormFile("video", "selfie.mp4")
	if err != nil {
		t.Fatal(err)
	}
	video.Write([]byte("mp4-bytes"))

	if fullNameField != "" {
		writer.WriteField(fullNameField, "Ada Lovelace")
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/verify", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(context.WithValue(req.Context(), contextKeyUserID, "user-1"))
	return req
}

func decodeLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("malformed stream line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestAPIVerifyRejectsNonPost(t *testing.T) {
	runner := &fakeRunner{}
	svc := testService(t, runner, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/verify", nil)
	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if runner.calls != 0 {
		t.Errorf("expected no verifier run, got %d", runner.calls)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestAPIVerifyMissingInputs(t *testing.T) {
	runner := &fakeRunner{}
	svc := testService(t, runner, &fakeStore{})

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, ""))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if runner.calls != 0 {
		t.Errorf("expected no verifier run before validation, got %d", runner.calls)
	}

	events := decodeLines(t, rec.Body.String())
	if len(events) != 1 || events[0]["error"] != "Missing document, video file, or full name." {
		t.Errorf("unexpected error body: %v", events)
	}
}

func TestAPIVerifyStreamsProgressThenResult(t *testing.T) {
	runner := &fakeRunner{
		progress: []int{10, 55, 90},
		result: &verifier.Result{
			Success:    true,
			Similarity: 87.5,
			Output:     "Face accepted with similarity 87.5%\n",
		},
	}
	repo := &fakeStore{}
	svc := testService(t, runner, repo)

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, "fullName"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	events := decodeLines(t, rec.Body.String())
	if len(events) != 4 {
		t.Fatalf("expected 3 progress lines and 1 result, got %d: %v", len(events), events)
	}
	for i, want := range []float64{10, 55, 90} {
		if got := events[i]["progress"]; got != want {
			t.Errorf("event %d: expected progress %v, got %v", i, want, got)
		}
	}
	last := events[3]
	if last["success"] != true || last["similarity"] != 87.5 {
		t.Errorf("unexpected terminal event: %v", last)
	}

	if runner.fullNameGiven != "Ada Lovelace" {
		t.Errorf("expected full name to reach verifier, got %q", runner.fullNameGiven)
	}
	if len(repo.outcomes) != 1 || !repo.outcomes[0].IsVerified {
		t.Errorf("expected one verified outcome persisted, got %v", repo.outcomes)
	}
	if repo.outcomes[0].VerificationDocument != "passport.jpg" {
		t.Errorf("expected original document name persisted, got %q", repo.outcomes[0].VerificationDocument)
	}
}

func TestAPIVerifyFullNameSnakeCaseFallback(t *testing.T) {
	runner := &fakeRunner{result: &verifier.Result{Success: false, Similarity: 12}}
	svc := testService(t, runner, &fakeStore{})

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, "full_name"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if runner.fullNameGiven != "Ada Lovelace" {
		t.Errorf("expected full_name field to be accepted, got %q", runner.fullNameGiven)
	}
}

func TestAPIVerifyRejectionNotPersisted(t *testing.T) {
	runner := &fakeRunner{
		progress: []int{100},
		result:   &verifier.Result{Success: false, Similarity: 41.2, Output: "Face rejected\n"},
	}
	repo := &fakeStore{}
	svc := testService(t, runner, repo)

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, "fullName"))

	events := decodeLines(t, rec.Body.String())
	last := events[len(events)-1]
	if last["success"] != false {
		t.Errorf("expected failed terminal event, got %v", last)
	}
	if len(repo.outcomes) != 0 {
		t.Errorf("expected rejection not to be persisted, got %v", repo.outcomes)
	}
}

func TestAPIVerifyExitErrorEnvelope(t *testing.T) {
	runner := &fakeRunner{
		progress: []int{5},
		err:      &verifier.ExitError{Err: errors.New("exit status 3"), Details: "cannot open video stream"},
	}
	svc := testService(t, runner, &fakeStore{})

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, "fullName"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for in-stream failure, got %d", rec.Code)
	}

	events := decodeLines(t, rec.Body.String())
	last := events[len(events)-1]
	if last["error"] != "Verification process failed" {
		t.Errorf("unexpected error event: %v", last)
	}
	if last["details"] != "cannot open video stream" {
		t.Errorf("expected stderr details in error event, got %v", last)
	}
}

func TestAPIVerifyStartErrorEnvelope(t *testing.T) {
	runner := &fakeRunner{err: &verifier.StartError{Err: errors.New("exec: not found")}}
	svc := testService(t, runner, &fakeStore{})

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, "fullName"))

	// Nothing was streamed before the failure, so it is a plain 500.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when failure precedes any progress, got %d", rec.Code)
	}

	events := decodeLines(t, rec.Body.String())
	last := events[len(events)-1]
	if last["error"] != "Failed to start verification process" {
		t.Errorf("unexpected error event: %v", last)
	}
}

func TestAPIVerifyCleansUpUploads(t *testing.T) {
	runner := &fakeRunner{result: &verifier.Result{Success: false}}
	svc := testService(t, runner, &fakeStore{})

	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, verifyRequest(t, "fullName"))

	if runner.documentPath == "" || runner.videoPath == "" {
		t.Fatal("expected verifier to receive upload paths")
	}
	for _, path := range []string{runner.documentPath, runner.videoPath} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected %s to be deleted after the run", path)
		}
	}

	entries, err := os.ReadDir(svc.config.UploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty upload dir, found %d entries", len(entries))
	}
}

// routedServer mounts the full router with a stubbed token check, so
// requests travel the same middleware chain as production traffic.
func routedServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()

	svc.verifyToken = func(ctx context.Context, token string) (string, string, error) {
		if token != "valid-token" {
			return "", "", errors.New("unknown token")
		}
		return "user-1", "ada@example.com", nil
	}

	mux := flow.New()
	svc.buildRouter(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeUploadFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "passport.jpg")
	video := filepath.Join(dir, "selfie.mp4")
	if err := os.WriteFile(doc, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(video, []byte("mp4-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	return doc, video
}

func TestVerifyWizardAgainstServer(t *testing.T) {
	runner := &fakeRunner{
		progress: []int{25, 80},
		result: &verifier.Result{
			Success:    true,
			Similarity: 91.4,
			Output:     "Face accepted with similarity 91.4%\n",
		},
	}
	repo := &fakeStore{}
	srv := routedServer(t, testService(t, runner, repo))

	doc, video := writeUploadFixtures(t)
	wizard := verifyclient.NewWizard(
		verifyclient.NewClient(srv.URL, verifyclient.WithAccessToken("valid-token")),
		nil,
		"Ada Lovelace",
	)
	if err := wizard.SetDocument(doc); err != nil {
		t.Fatal(err)
	}
	if err := wizard.SetVideo(video); err != nil {
		t.Fatal(err)
	}

	var progress []int
	if err := wizard.Submit(context.Background(), func(p int) {
		progress = append(progress, p)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []int{25, 80}; !reflect.DeepEqual(progress, want) {
		t.Errorf("expected progress %v, got %v", want, progress)
	}
	if runner.calls != 1 {
		t.Errorf("expected one verifier run, got %d", runner.calls)
	}
	if len(repo.outcomes) != 1 {
		t.Fatalf("expected exactly one persisted outcome for the submission, got %d", len(repo.outcomes))
	}
	if !repo.outcomes[0].IsVerified {
		t.Error("expected verified outcome")
	}
}

func TestVerifyWizardRejectedWithoutValidToken(t *testing.T) {
	runner := &fakeRunner{}
	repo := &fakeStore{}
	srv := routedServer(t, testService(t, runner, repo))

	doc, video := writeUploadFixtures(t)
	wizard := verifyclient.NewWizard(
		verifyclient.NewClient(srv.URL, verifyclient.WithAccessToken("expired-token")),
		nil,
		"Ada Lovelace",
	)
	if err := wizard.SetDocument(doc); err != nil {
		t.Fatal(err)
	}
	if err := wizard.SetVideo(video); err != nil {
		t.Fatal(err)
	}

	err := wizard.Submit(context.Background(), nil)
	if err == nil {
		t.Fatal("expected submission with a bad token to fail")
	}
	var reqErr *verifyclient.RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 request error, got %v", err)
	}

	if runner.calls != 0 {
		t.Errorf("expected no verifier run, got %d", runner.calls)
	}
	if len(repo.outcomes) != 0 {
		t.Errorf("expected no persisted outcome, got %d", len(repo.outcomes))
	}
}

func TestVerifyPageRendersFullNameInput(t *testing.T) {
	templates, err := loadTemplates()
	if err != nil {
		t.Fatal(err)
	}

	data := &types.VerifyPageData{
		BasePageData: types.BasePageData{Title: "Verify Identity"},
		FullName:     "Ada Lovelace",
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page.verify", data); err != nil {
		t.Fatal(err)
	}

	page := buf.String()
	if !strings.Contains(page, `name="fullName"`) {
		t.Error("expected a fullName input on the verify page")
	}
	if !strings.Contains(page, `value="Ada Lovelace"`) {
		t.Error("expected the full name to be pre-filled")
	}
	if !strings.Contains(page, `id="fullName" name="fullName" value="Ada Lovelace" required`) {
		t.Error("expected the fullName input to be required")
	}
}

func TestAPIVerifyUnauthenticated(t *testing.T) {
	runner := &fakeRunner{}
	svc := testService(t, runner, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/verify", nil)
	rec := httptest.NewRecorder()
	svc.handleAPIVerify(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if runner.calls != 0 {
		t.Errorf("expected no verifier run, got %d", runner.calls)
	}
}
