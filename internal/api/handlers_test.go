package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/yegors/wmo-decoder/internal/history"
	"github.com/yegors/wmo-decoder/internal/i18n"
	"github.com/yegors/wmo-decoder/internal/presenter"
	"github.com/yegors/wmo-decoder/internal/session"
	"github.com/yegors/wmo-decoder/internal/wxcode"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

type stubTranslator struct {
	err  error
	gate chan struct{}
}

func (s *stubTranslator) Translate(ctx context.Context, q string) (*wxcode.Record, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return &wxcode.Record{Code: q, NumericCode: wxcode.NotApplicable, Name: "Fog", SourceURLs: []string{}}, nil
}

type fixture struct {
	server  *httptest.Server
	session *session.Session
}

func newFixture(t *testing.T, tr session.Translator) *fixture {
	t.Helper()
	log := logger.NewNop()

	catalog, err := i18n.New(i18n.English, log)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(tr, history.NewKeeper(history.DefaultCapacity), log)
	handler := NewHandler(sess, presenter.New(catalog), catalog, Health{Model: "test-model"}, log)
	router := NewRouter(handler, nil, NewStaticFileHandler("", log), log)

	ts := httptest.NewServer(router.Routes())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, session: sess}
}

func (f *fixture) postJSON(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, out
}

func (f *fixture) get(t *testing.T, path string, header ...string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestTranslateStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantKind   string
	}{
		{name: "success", body: `{"query":"FG"}`, wantStatus: http.StatusOK},
		{name: "blank", body: `{"query":"   "}`, wantStatus: http.StatusBadRequest, wantKind: string(wxcode.KindInput)},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest, wantKind: string(wxcode.KindInput)},
		{
			name:       "configuration",
			err:        wxcode.NewError(wxcode.KindConfiguration, "API Key is missing.", nil),
			body:       `{"query":"FG"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   string(wxcode.KindConfiguration),
		},
		{
			name:       "transport",
			err:        errors.New("connection reset"),
			body:       `{"query":"FG"}`,
			wantStatus: http.StatusBadGateway,
			wantKind:   string(wxcode.KindTransport),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &stubTranslator{err: tt.err})
			resp, out := f.postJSON(t, "/api/translate", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.wantStatus, out)
			}
			if tt.wantKind != "" && out["kind"] != tt.wantKind {
				t.Fatalf("kind = %v, want %q", out["kind"], tt.wantKind)
			}
			if tt.wantStatus == http.StatusOK && out["code"] != "FG" {
				t.Fatalf("record = %v", out)
			}
		})
	}
}

func TestTranslateWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &stubTranslator{gate: gate})

	resp, out := f.postJSON(t, "/api/translate?async=true", `{"query":"FG"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("async status = %d (%v)", resp.StatusCode, out)
	}

	resp, _ = f.postJSON(t, "/api/translate", `{"query":"BR"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("busy status = %d, want 409", resp.StatusCode)
	}

	close(gate)
	f.session.Wait()

	_, state := f.get(t, "/api/state")
	var st StateResponse
	if err := json.Unmarshal([]byte(state), &st); err != nil {
		t.Fatal(err)
	}
	if st.Loading || st.Result == nil || st.Result.Code != "FG" || st.View.Mode != presenter.ModeResult {
		t.Fatalf("state = %+v", st)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	f := newFixture(t, &stubTranslator{})
	f.postJSON(t, "/api/translate", `{"query":"FG"}`)
	f.postJSON(t, "/api/translate", `{"query":"BR"}`)

	_, body := f.get(t, "/api/history")
	var hist struct {
		History []wxcode.HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal([]byte(body), &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.History) != 2 || hist.History[0].Code != "BR" {
		t.Fatalf("history = %+v", hist.History)
	}

	resp, out := f.postJSON(t, "/api/history/"+hist.History[1].ID+"/select", "")
	if resp.StatusCode != http.StatusOK || out["code"] != "FG" {
		t.Fatalf("select = %d %v", resp.StatusCode, out)
	}

	resp, _ = f.postJSON(t, "/api/history/unknown/select", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("select unknown = %d", resp.StatusCode)
	}
}

func TestPage(t *testing.T) {
	f := newFixture(t, &stubTranslator{})

	resp, body := f.get(t, "/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "WMO Weather Decoder") {
		t.Fatalf("GET / = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}

	_, ar := f.get(t, "/", "Accept-Language", "ar-SA,ar;q=0.9")
	if !strings.Contains(ar, `dir="rtl"`) {
		t.Error("Accept-Language: ar did not select the arabic page")
	}
	_, en := f.get(t, "/?lang=en", "Accept-Language", "ar")
	if !strings.Contains(en, `dir="ltr"`) {
		t.Error("?lang=en did not win over Accept-Language")
	}
}

func TestFormSubmitRedirects(t *testing.T) {
	f := newFixture(t, &stubTranslator{})
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.PostForm(f.server.URL+"/translate?lang=ar", url.Values{"query": {"FG"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/?lang=ar" {
		t.Fatalf("POST /translate = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if got := f.session.History(); len(got) != 1 {
		t.Fatalf("history after form submit = %d entries", len(got))
	}

	// Blank input still redirects and never reaches the translator
	resp, err = client.PostForm(f.server.URL+"/translate", url.Values{"query": {" "}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || len(f.session.History()) != 1 {
		t.Fatalf("blank form submit = %d", resp.StatusCode)
	}
}

func TestExamplesAndHealth(t *testing.T) {
	f := newFixture(t, &stubTranslator{})

	_, body := f.get(t, "/api/examples")
	if !strings.Contains(body, `"FG"`) || !strings.Contains(body, "Volcanic Ash") {
		t.Fatalf("examples = %s", body)
	}

	resp, body := f.get(t, "/api/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "test-model") {
		t.Fatalf("health = %d %s", resp.StatusCode, body)
	}
}

func TestStaticFiles(t *testing.T) {
	f := newFixture(t, &stubTranslator{})

	tests := []struct {
		path string
		want int
	}{
		{path: "/static/app.js", want: http.StatusOK},
		{path: "/static/style.css", want: http.StatusOK},
		{path: "/static/missing.js", want: http.StatusNotFound},
		{path: "/static/", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, _ := f.get(t, tt.path)
			if resp.StatusCode != tt.want {
				t.Fatalf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
			}
		})
	}
}
