package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/erasmushub/erasmushub/apps/api/echo"
	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/dashboard"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
	"github.com/erasmushub/erasmushub/services/metrics"
	"github.com/erasmushub/erasmushub/services/ratelimit"
	testutil "github.com/erasmushub/erasmushub/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	Server
	env *testutil.Env
}

// setup builds a server over fresh in-memory repositories.
// configure, when given, may adjust the configuration before the server is built.
func setup(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	env := testutil.NewEnv(t)
	for _, fn := range configure {
		fn(env.Conf)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	announcement.InitValidators(validate, translator)

	usrSvc := user.NewService(env.UserRepo)
	appSvc := env.ApplicationService()
	annSvc := announcement.NewService(env.AnnouncementRepo)
	msgSvc := message.NewService(env.MessageRepo)

	srv := NewServer(ServerDeps{
		Conf:            env.Conf,
		Logger:          env.Logger,
		Validate:        validate,
		Translator:      translator,
		Limiter:         ratelimit.NewMemory(),
		MetricsHandler:  metrics.New("erasmushub").Handler(),
		UserSvc:         usrSvc,
		ApplicationSvc:  appSvc,
		DocumentSvc:     document.NewService(env.DocumentRepo),
		AnnouncementSvc: annSvc,
		MessageSvc:      msgSvc,
		DashboardSvc:    dashboard.NewService(appSvc, annSvc, msgSvc, env.UserRepo),
	})
	return &testApp{Server: srv, env: env}
}

func (app *testApp) createUser(t *testing.T, email, name, role string) user.User {
	return testutil.CreateUser(t, app.env.UserRepo, email, name, role, "s3cr3t-pass")
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(app.env.Conf, GetUserClaims(app.env.Conf, usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
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
	extra    interface{}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func newMultipartRequest(
	t *testing.T,
	path, token string,
	values map[string]string,
	files ...formFile,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
		if _, err = part.Write(f.content); err != nil {
			t.Fatalf("newMultipartRequest() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newMultipartRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
