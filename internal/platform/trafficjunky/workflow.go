package trafficjunky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/creativeflow/creative-int/internal/logging"
	"github.com/creativeflow/creative-int/internal/models"
	"github.com/creativeflow/creative-int/internal/platform"
)

const uploadStatusPath = "/media-library/upload/status"

// kindTabs maps creative kinds to the media-library tab query. Native
// creatives live under one tab with a format sub-selection: rollover for
// videos, static banner for images.
var kindTabs = map[models.CreativeKind]string{
	models.KindNativeVideo: "tab=native&format=rollover",
	models.KindNativeImage: "tab=native&format=static",
	models.KindVideo:       "tab=video",
	models.KindImage:       "tab=banner",
}

// Workflow drives the media-library upload sequence over an authenticated
// client. It implements platform.UploadWorkflow and is not safe for
// concurrent use: it tracks the active tab and open form like a single
// browser page would.
type Workflow struct {
	client *Client
	log    *logging.Logger

	activeKind models.CreativeKind
	formAction string
	formToken  string
}

// NewWorkflow creates a workflow over an authenticated client.
func NewWorkflow(client *Client, log *logging.Logger) *Workflow {
	return &Workflow{client: client, log: log}
}

var _ platform.UploadWorkflow = (*Workflow)(nil)

// NavigateToListing opens the media library and verifies the session is
// still accepted.
func (w *Workflow) NavigateToListing(ctx context.Context) error {
	resp, err := w.client.get(ctx, mediaLibraryPath)
	if err != nil {
		return platform.NewWorkflowError("navigate", "media library unreachable", err)
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Request.URL.Path, "login") {
		return platform.ErrNotAuthenticated
	}
	doc, err := parseHTML(resp.Body)
	if err != nil {
		return platform.NewWorkflowError("navigate", "unreadable media library page", err)
	}
	if !pageContainsText(doc, "MEDIA LIBRARY") {
		return platform.NewWorkflowError("navigate", "media library marker not found", nil)
	}

	w.activeKind = ""
	w.formAction = ""
	return nil
}

// SelectKind activates the listing tab for the given kind. The active tab
// scopes both the upload form and the listing snapshots that follow.
func (w *Workflow) SelectKind(ctx context.Context, kind models.CreativeKind) error {
	tab, ok := kindTabs[kind]
	if !ok {
		return platform.NewWorkflowError("select-kind", fmt.Sprintf("unknown creative kind %q", kind), nil)
	}

	resp, err := w.client.get(ctx, mediaLibraryPath+"?"+tab)
	if err != nil {
		return platform.NewWorkflowError("select-kind", fmt.Sprintf("could not open %s tab", kind), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return platform.NewWorkflowError("select-kind", fmt.Sprintf("%s tab returned status %d", kind, resp.StatusCode), nil)
	}

	w.activeKind = kind
	w.formAction = ""
	return nil
}

// OpenUploadForm opens the upload form on the active tab and captures its
// submission endpoint and CSRF token.
func (w *Workflow) OpenUploadForm(ctx context.Context) error {
	if w.activeKind == "" {
		return platform.NewWorkflowError("open-upload-form", "no kind selected", nil)
	}

	resp, err := w.client.get(ctx, mediaLibraryPath+"/upload?"+kindTabs[w.activeKind])
	if err != nil {
		return platform.NewWorkflowError("open-upload-form", "could not open upload form", err)
	}
	doc, err := parseHTML(resp.Body)
	resp.Body.Close()
	if err != nil {
		return platform.NewWorkflowError("open-upload-form", "unreadable upload form page", err)
	}

	action := findUploadForm(doc)
	if action == "" {
		return platform.NewWorkflowError("open-upload-form", "upload form not found on page", nil)
	}
	w.formAction = action
	w.formToken = findFormToken(doc)
	return nil
}

// AttachFiles submits every file to the open upload form. The form accepts
// one file per request, so the batch is posted sequentially in order.
func (w *Workflow) AttachFiles(ctx context.Context, paths []string) error {
	if w.formAction == "" {
		return platform.NewWorkflowError("attach-files", "upload form not open", nil)
	}

	for _, path := range paths {
		if err := w.postFile(ctx, path); err != nil {
			return err
		}
		w.log.Debug().Str("file", filepath.Base(path)).Msg("File submitted")
	}
	return nil
}

func (w *Workflow) postFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return platform.NewWorkflowError("attach-files", fmt.Sprintf("cannot open %s", filepath.Base(path)), err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if w.formToken != "" {
		if err := writer.WriteField("_token", w.formToken); err != nil {
			return platform.NewWorkflowError("attach-files", "failed to build upload request", err)
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return platform.NewWorkflowError("attach-files", "failed to build upload request", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return platform.NewWorkflowError("attach-files", fmt.Sprintf("failed to read %s", filepath.Base(path)), err)
	}
	if err := writer.Close(); err != nil {
		return platform.NewWorkflowError("attach-files", "failed to build upload request", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.client.absURL(w.formAction), body.Bytes())
	if err != nil {
		return platform.NewWorkflowError("attach-files", "failed to build upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.http.Do(req)
	if err != nil {
		return platform.NewWorkflowError("attach-files", fmt.Sprintf("upload of %s failed", filepath.Base(path)), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return platform.NewWorkflowError("attach-files",
			fmt.Sprintf("upload of %s rejected with status %d", filepath.Base(path), resp.StatusCode), nil)
	}
	return nil
}

// PollProcessing reads the platform's processing status for the in-flight
// submission.
func (w *Workflow) PollProcessing(ctx context.Context) (platform.ProcessingStatus, error) {
	resp, err := w.client.get(ctx, uploadStatusPath)
	if err != nil {
		return platform.ProcessingStatus{}, platform.NewWorkflowError("poll-processing", "status endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return platform.ProcessingStatus{}, platform.NewWorkflowError("poll-processing",
			fmt.Sprintf("status endpoint returned %d", resp.StatusCode), nil)
	}

	var status struct {
		Completed int `json:"completed"`
		Total     int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return platform.ProcessingStatus{}, platform.NewWorkflowError("poll-processing", "unreadable status response", err)
	}
	return platform.ProcessingStatus{Completed: status.Completed, Total: status.Total}, nil
}

// ListCurrentSnapshot pages through the active tab's full listing and
// returns the union as a snapshot.
func (w *Workflow) ListCurrentSnapshot(ctx context.Context) (*platform.Snapshot, error) {
	path := mediaLibraryPath
	if w.activeKind != "" {
		path += "?" + kindTabs[w.activeKind]
	}

	snapshot := platform.NewSnapshot()
	for pageNum := 1; pageNum <= maxListingPages; pageNum++ {
		resp, err := w.client.get(ctx, path)
		if err != nil {
			return nil, platform.NewWorkflowError("list-snapshot", fmt.Sprintf("listing page %d unreachable", pageNum), err)
		}
		page, err := parseListing(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, platform.NewWorkflowError("list-snapshot", fmt.Sprintf("listing page %d unreadable", pageNum), err)
		}

		for _, entry := range page.Entries {
			snapshot.Add(entry.ID, entry.DisplayName)
		}
		if page.NextURL == "" {
			break
		}
		path = page.NextURL
	}

	w.log.Debug().Int("creatives", snapshot.Len()).Msg("Listing snapshot collected")
	return snapshot, nil
}
