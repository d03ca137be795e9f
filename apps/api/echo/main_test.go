package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/changelog"
	"github.com/trezcool/mtaala/core/collab"
	"github.com/trezcool/mtaala/core/curriculum"
	dummydb "github.com/trezcool/mtaala/storage/database/dummy"
	"github.com/trezcool/mtaala/testutil"
)

var (
	app  Server
	conf *core.Config

	docRepo    curriculum.Repository
	changeRepo changelog.Repository
	hub        *hubBroadcaster

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		AppName:   "Mtaala",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "5up3r-53cr3t",
	}
	conf.Server.JWTExpirationDelta = time.Hour

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		os.Exit(1)
	}
	docRepo = dummydb.NewDocumentRepository(db)
	changeRepo = dummydb.NewChangeRepository(db)
	sessRepo := dummydb.NewSessionRepository(db)

	// set up services
	hub = newHub()
	changes := changelog.NewService(changeRepo, testutil.Logger{}, conf)
	curriculumSvc := curriculum.NewService(docRepo, hub, changes, testutil.Logger{})
	collabSvc := collab.NewService(sessRepo, testutil.Logger{}, conf)

	// set up server
	app = NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         testutil.Logger{},
		CurriculumSvc:  curriculumSvc,
		CollabSvc:      collabSvc,
		Broadcaster:    hub,
	})

	os.Exit(m.Run())
}

// hubBroadcaster fans published snapshots out to in-process subscribers.
type hubBroadcaster struct {
	mu   sync.Mutex
	subs map[string][]chan curriculum.Document
}

var _ curriculum.Broadcaster = (*hubBroadcaster)(nil)

func newHub() *hubBroadcaster {
	return &hubBroadcaster{subs: make(map[string][]chan curriculum.Document)}
}

func (b *hubBroadcaster) Publish(_ context.Context, doc curriculum.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[doc.OfferingID] {
		select {
		case ch <- doc:
		default:
		}
	}
	return nil
}

func (b *hubBroadcaster) Subscribe(_ context.Context, offeringID string) (*curriculum.Subscription, error) {
	ch := make(chan curriculum.Document, 10)
	b.mu.Lock()
	b.subs[offeringID] = append(b.subs[offeringID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs[offeringID] {
			if sub == ch {
				b.subs[offeringID] = append(b.subs[offeringID][:i], b.subs[offeringID][i+1:]...)
				close(ch)
				return
			}
		}
	}
	return curriculum.NewSubscription(ch, make(chan error), cancel), nil
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, actor core.Actor) string {
	t.Helper()
	token, err := GenerateToken(NewClaims(actor, conf), conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func jsonDiff(b1, b2 []byte) string {
	var j1, j2 interface{}
	_ = json.Unmarshal(b1, &j1)
	_ = json.Unmarshal(b2, &j2)
	p1, _ := json.MarshalIndent(j1, "", "  ")
	p2, _ := json.MarshalIndent(j2, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(p1)),
		B:        difflib.SplitLines(string(p2)),
		FromFile: "got",
		ToFile:   "want",
		Context:  2,
	})
	return diff
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data mismatch:\n%s", jsonDiff(rec.Body.Bytes(), tt.wantData))
	}
}
