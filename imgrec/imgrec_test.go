package imgrec_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/hikcam/generichttp"
	"github.com/nasa-jpl/hikcam/imgrec"
)

func TestWriteAndIncr(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "cam_"}
	first := r.Filename()
	if !strings.HasSuffix(first, "cam_000000.fits") {
		t.Errorf("expected cam_000000.fits, got %s", first)
	}
	r.Write([]byte("ab"))
	r.Write([]byte("cd"))
	b, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "abcd" {
		t.Errorf("expected writes to append to one file, got %q", b)
	}
	r.Incr()
	if next := r.Filename(); filepath.Base(next) != "cam_000001.fits" {
		t.Errorf("expected cam_000001.fits, got %s", next)
	}
}

func TestIncrContinuesAfterExistingFiles(t *testing.T) {
	root := t.TempDir()
	r := &imgrec.Recorder{Root: root, Prefix: "x", Ext: ".png"}
	dir := filepath.Dir(r.Filename())
	os.MkdirAll(dir, 0777)
	os.WriteFile(filepath.Join(dir, "x000041.png"), nil, 0666)
	os.WriteFile(filepath.Join(dir, "x000099.fits"), nil, 0666)
	os.WriteFile(filepath.Join(dir, "xnotanumber.png"), nil, 0666)
	r.Incr()
	if got := filepath.Base(r.Filename()); got != "x000042.png" {
		t.Errorf("expected x000042.png, got %s", got)
	}
}

func TestIsEnabledNeedsRoot(t *testing.T) {
	r := &imgrec.Recorder{Enabled: true}
	if r.IsEnabled() {
		t.Error("expected a recorder without a root to be disabled")
	}
	r.Root = t.TempDir()
	if !r.IsEnabled() {
		t.Error("expected the recorder to be enabled")
	}
}

type table generichttp.RouteTable

func (t table) RT() generichttp.RouteTable { return generichttp.RouteTable(t) }

func TestHTTPWrapper(t *testing.T) {
	rec := &imgrec.Recorder{}
	rt := table{}
	imgrec.NewHTTPWrapper(rec).Inject(rt)
	mux := chi.NewRouter()
	rt.RT().Bind(mux)

	root := filepath.Join(t.TempDir(), "frames")
	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}
	if w := do(http.MethodPost, "/autowrite/root", `{"str":"`+root+`"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("expected the root to be created, got %v", err)
	}
	do(http.MethodPost, "/autowrite/prefix", `{"str":"run1_"}`)
	do(http.MethodPost, "/autowrite/enabled", `{"bool":true}`)
	if rec.Prefix != "run1_" || !rec.IsEnabled() {
		t.Errorf("expected prefix run1_ and enabled, got %q %v", rec.Prefix, rec.Enabled)
	}
	if got := strings.TrimSpace(do(http.MethodGet, "/autowrite/prefix", "").Body.String()); got != `{"str":"run1_"}` {
		t.Errorf("expected {\"str\":\"run1_\"} got %s", got)
	}
	if got := strings.TrimSpace(do(http.MethodGet, "/autowrite/enabled", "").Body.String()); got != `{"bool":true}` {
		t.Errorf("expected {\"bool\":true} got %s", got)
	}
}
