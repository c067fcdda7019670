package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/dit/internal/config"
	"github.com/ytget/dit/internal/history"
	"github.com/ytget/dit/internal/model"
)

type fakePrompter struct {
	user, password string
	asked          []string
}

func (p *fakePrompter) ReadLine(prompt string) (string, error) {
	p.asked = append(p.asked, prompt)
	return p.user, nil
}

func (p *fakePrompter) ReadPassword(prompt string) (string, error) {
	p.asked = append(p.asked, prompt)
	return p.password, nil
}

// fakeAPI serves login, two pages of saved items and the media they point at
type fakeAPI struct {
	*httptest.Server
	logins atomic.Int32

	// held, when set, receives a value per media request and the request
	// then hangs until the client goes away
	held chan struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login.json", func(w http.ResponseWriter, r *http.Request) {
		api.logins.Add(1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("passwd") != "secret" {
			fmt.Fprint(w, `{"json":{"errors":[["WRONG_PASSWORD","invalid password"]]}}`)
			return
		}
		fmt.Fprint(w, `{"json":{"errors":[],"data":{"cookie":"c00kie","modhash":"mh"}}}`)
	})

	mux.HandleFunc("/user/alice/saved.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Modhash") != "mh" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":403,"message":"Forbidden"}`)
			return
		}
		type record struct {
			Name  string `json:"name"`
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		var children []record
		var after any
		switch r.URL.Query().Get("after") {
		case "":
			children = []record{
				{Name: "t3_1", Title: "Cat Pic!", URL: api.URL + "/media/cat.jpg"},
				{Name: "t3_2", Title: "Some article", URL: api.URL + "/article.html"},
			}
			after = "t3_2"
		case "t3_2":
			children = []record{{Name: "t3_3", Title: "Dog", URL: api.URL + "/media/dog.png"}}
		}

		body := map[string]any{"kind": "Listing", "data": map[string]any{"after": after, "children": wrap(children)}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		if api.held != nil {
			select {
			case api.held <- struct{}{}:
			default:
			}
			<-r.Context().Done()
			return
		}
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Header().Set("Content-Type", "image/png")
		} else {
			w.Header().Set("Content-Type", "image/jpeg")
		}
		_, _ = w.Write([]byte("image-bytes"))
	})

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func wrap[T any](records []T) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, map[string]any{"kind": "t3", "data": r})
	}
	return out
}

func newTestApp(t *testing.T, api *fakeAPI, prompter *fakePrompter) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := &App{
		Settings: config.Settings{
			Host:        api.URL,
			SessionPath: filepath.Join(t.TempDir(), ".dit.json"),
			DownloadDir: filepath.Join(t.TempDir(), "saved"),
		},
		Stdout:     &stdout,
		Stderr:     &stderr,
		Prompter:   prompter,
		HTTPClient: api.Client(),
	}
	return app, &stdout, &stderr
}

func TestApp_Help(t *testing.T) {
	api := newFakeAPI(t)
	app, stdout, _ := newTestApp(t, api, &fakePrompter{})

	assert.Equal(t, 0, app.Run(context.Background(), []string{"help"}))
	assert.Contains(t, stdout.String(), "Usage: dit")
	assert.Zero(t, api.logins.Load())
}

func TestApp_Version(t *testing.T) {
	api := newFakeAPI(t)
	app, stdout, _ := newTestApp(t, api, &fakePrompter{})
	app.Version = "1.2.3"

	assert.Equal(t, 0, app.Run(context.Background(), []string{"version"}))
	assert.Equal(t, "dit 1.2.3\n", stdout.String())
}

func TestApp_LoginPromptsAndSaves(t *testing.T) {
	api := newFakeAPI(t)
	prompter := &fakePrompter{user: "alice", password: "secret"}
	app, _, stderr := newTestApp(t, api, prompter)

	code := app.Run(context.Background(), []string{"login"})
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, []string{"User: ", "Password: "}, prompter.asked)
	assert.Contains(t, stderr.String(), "Logged-in successfully")

	stored, err := config.NewSessionStore(app.Settings.SessionPath).LoadSession()
	require.NoError(t, err)
	assert.Equal(t, model.SessionConfig{User: "alice", AuthToken: "c00kie", AuthSecret: "mh"}, stored)

	info, err := os.Stat(app.Settings.SessionPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestApp_LoginRejected(t *testing.T) {
	api := newFakeAPI(t)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})

	code := app.Run(context.Background(), []string{"login", "--user", "alice", "--passwd", "wrong"})
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "WRONG_PASSWORD")

	_, err := os.Stat(app.Settings.SessionPath)
	assert.True(t, os.IsNotExist(err), "rejected login must not write a session")
}

func TestApp_EmptyPromptedUser(t *testing.T) {
	api := newFakeAPI(t)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})

	assert.Equal(t, 1, app.Run(context.Background(), []string{"saved"}))
	assert.Contains(t, stderr.String(), ErrInvalidUser.Error())
}

func TestApp_SavedListsInServerOrder(t *testing.T) {
	api := newFakeAPI(t)
	app, stdout, stderr := newTestApp(t, api, &fakePrompter{})

	code := app.Run(context.Background(), []string{"saved", "--user", "alice", "--passwd", "secret"})
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, []string{
		"Cat Pic! : " + api.URL + "/media/cat.jpg",
		"Some article : " + api.URL + "/article.html",
		"Dog : " + api.URL + "/media/dog.png",
	}, lines)
}

func TestApp_ResumesStoredSession(t *testing.T) {
	api := newFakeAPI(t)
	app, stdout, stderr := newTestApp(t, api, &fakePrompter{})

	store := config.NewSessionStore(app.Settings.SessionPath)
	require.NoError(t, store.Save(model.SessionConfig{User: "alice", AuthToken: "c00kie", AuthSecret: "mh"}))

	code := app.Run(context.Background(), []string{"saved", "--pages", "1"})
	require.Equal(t, 0, code, stderr.String())

	assert.Zero(t, api.logins.Load())
	assert.Len(t, strings.Split(strings.TrimSpace(stdout.String()), "\n"), 2)
}

func TestApp_DifferentUserLogsInAgain(t *testing.T) {
	api := newFakeAPI(t)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})

	store := config.NewSessionStore(app.Settings.SessionPath)
	require.NoError(t, store.Save(model.SessionConfig{User: "bob", AuthToken: "x", AuthSecret: "y"}))

	code := app.Run(context.Background(), []string{"saved", "--user", "alice", "--passwd", "secret"})
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, int32(1), api.logins.Load())

	stored, err := store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.User)
}

func TestApp_StaleSessionFailsWithAPIError(t *testing.T) {
	api := newFakeAPI(t)
	app, _, _ := newTestApp(t, api, &fakePrompter{})

	store := config.NewSessionStore(app.Settings.SessionPath)
	require.NoError(t, store.Save(model.SessionConfig{User: "alice", AuthToken: "old", AuthSecret: "stale"}))

	assert.Equal(t, 3, app.Run(context.Background(), []string{"saved"}))
}

func TestApp_DownloadEndToEnd(t *testing.T) {
	api := newFakeAPI(t)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})
	dbPath := filepath.Join(t.TempDir(), "history.db")

	code := app.Run(context.Background(), []string{
		"download", "--user", "alice", "--passwd", "secret", "--history", dbPath, "--max-parallel", "2",
	})
	require.Equal(t, 0, code, "per-item failures must not fail the command: %s", stderr.String())

	entries, err := os.ReadDir(app.Settings.DownloadDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"cat-pic.jpg", "dog.png"}, names)

	assert.Contains(t, stderr.String(), "download failed")

	ledger, err := history.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer ledger.Close()

	rows, err := ledger.List(context.Background(), 100)
	require.NoError(t, err)

	kinds := map[model.EventKind]int{}
	for _, r := range rows {
		kinds[r.Kind]++
	}
	assert.Equal(t, 2, kinds[model.EventDownloadNew])
	assert.Equal(t, 2, kinds[model.EventDownloadDone])
	assert.Equal(t, 1, kinds[model.EventDownloadError])
}

func TestApp_ExpiredStoredSessionWarns(t *testing.T) {
	api := newFakeAPI(t)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})

	past := time.Now().Add(-time.Hour)
	store := config.NewSessionStore(app.Settings.SessionPath)
	require.NoError(t, store.Save(model.SessionConfig{User: "alice", AuthToken: "c00kie", AuthSecret: "mh", TokenExpiry: &past}))

	code := app.Run(context.Background(), []string{"saved", "--pages", "1"})
	require.Equal(t, 0, code, stderr.String())

	assert.Zero(t, api.logins.Load(), "expiry alone does not force a login")
	assert.Contains(t, stderr.String(), "stored session has expired")
}

func TestApp_History(t *testing.T) {
	api := newFakeAPI(t)
	app, stdout, stderr := newTestApp(t, api, &fakePrompter{})
	dbPath := filepath.Join(t.TempDir(), "history.db")

	code := app.Run(context.Background(), []string{"download", "--user", "alice", "--passwd", "secret", "--history", dbPath})
	require.Equal(t, 0, code, stderr.String())
	stdout.Reset()

	code = app.Run(context.Background(), []string{"history", "--history", dbPath, "--limit", "3"})
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, stdout.String(), string(model.StatusCompleted))
	assert.Equal(t, 1, int(api.logins.Load()), "history needs no login")
}

func TestApp_HistoryWithoutDatabase(t *testing.T) {
	api := newFakeAPI(t)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})

	assert.Equal(t, 2, app.Run(context.Background(), []string{"history"}))
	assert.Contains(t, stderr.String(), "DIT_HISTORY_DB")
}

func TestApp_CancelledDownloadSettlesBeforeLedgerCloses(t *testing.T) {
	api := newFakeAPI(t)
	api.held = make(chan struct{}, 4)
	app, _, stderr := newTestApp(t, api, &fakePrompter{})
	dbPath := filepath.Join(t.TempDir(), "history.db")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan int, 1)
	go func() {
		result <- app.Run(ctx, []string{"download", "--user", "alice", "--passwd", "secret", "--history", dbPath})
	}()

	select {
	case <-api.held:
	case <-time.After(5 * time.Second):
		t.Fatal("no media request arrived")
	}
	cancel()

	select {
	case <-result:
	case <-time.After(15 * time.Second):
		t.Fatal("download did not return after cancellation")
	}
	assert.NotContains(t, stderr.String(), "history record failed")

	ledger, err := history.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer ledger.Close()

	rows, err := ledger.List(context.Background(), 100)
	require.NoError(t, err)

	kinds := map[model.EventKind]int{}
	for _, r := range rows {
		kinds[r.Kind]++
	}
	assert.NotZero(t, kinds[model.EventDownloadNew])
	assert.Equal(t, kinds[model.EventDownloadNew], kinds[model.EventDownloadDone]+kinds[model.EventDownloadError]-unresolved(rows))
}

// unresolved counts error rows without a target, which have no download.new
func unresolved(rows []history.Entry) int {
	n := 0
	for _, r := range rows {
		if r.Kind == model.EventDownloadError && r.Target == "" {
			n++
		}
	}
	return n
}
