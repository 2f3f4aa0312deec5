package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnerdash/adapters/excel"
	"learnerdash/app"
	"learnerdash/internal/config"
	"learnerdash/internal/metrics"
	"learnerdash/internal/normalize"
	"learnerdash/internal/session"
	"learnerdash/internal/testkit"
	"learnerdash/ui/middleware"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:     config.ServerConfig{Port: "0", MaxUploadMB: 1, SessionTTL: time.Hour},
		Markers:    normalize.DefaultOptions(),
		Thresholds: metrics.DefaultThresholds(),
		Report:     config.DefaultReportConfig(),
	}
	svc := app.NewAnalysisService(excel.NewDataReader(), cfg.Markers, cfg.Thresholds)
	srv := NewServer(os.DirFS(".."), cfg, session.NewStore(time.Hour), svc)
	require.NoError(t, srv.Initialize())
	return srv
}

// client replays the session cookie like a browser
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, srv *Server) *client {
	return &client{t: t, handler: srv.Handler()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CookieName {
			c.cookies = []*http.Cookie{ck}
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) upload(path, filename string, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(c.t, err)
		_, err = part.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func markbookBytes(t *testing.T, seed int64) []byte {
	t.Helper()
	config := testkit.DefaultMarkbookConfig()
	config.LearnerCount = 12
	config.QuestionCount = 4
	config.Seed = seed
	data, err := testkit.NewMarkbookGenerator(config).WorkbookBytes()
	require.NoError(t, err)
	return data
}

func uploaded(t *testing.T) *client {
	t.Helper()
	c := newClient(t, newTestServer(t))
	rec := c.upload("/upload", "grade10.xlsx", markbookBytes(t, 42))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/", rec.Header().Get("Location"))
	return c
}

func assertPNG(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngSignature))
}

func TestPages_WithoutUpload(t *testing.T) {
	c := newClient(t, newTestServer(t))

	rec := c.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="file"`)
	assert.Contains(t, rec.Body.String(), "Saul Damon High School")

	for _, path := range []string{"/questions", "/learners", "/progress", "/compare", "/explore"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), noDataMessage, path)
	}

	assert.Equal(t, http.StatusConflict, c.get("/charts/averages").Code)
	assert.Equal(t, http.StatusConflict, c.get("/report?format=pdf").Code)
}

func TestUpload_RendersDashboard(t *testing.T) {
	c := uploaded(t)

	body := c.get("/").Body.String()
	assert.Contains(t, body, "Overview of grade10.xlsx")
	assert.Contains(t, body, "Class average")
	assert.Contains(t, body, "Insights")
	assert.Contains(t, body, "/report?format=docx")

	rec := c.get("/questions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>1.1</td>")
	assert.Contains(t, rec.Body.String(), "/charts/pie?question=1.1")
	assert.NotContains(t, rec.Body.String(), "<td>Bonus</td>", "inactive questions are excluded")

	assert.Equal(t, http.StatusOK, c.get("/questions?q=1.2").Code)
	assert.Equal(t, http.StatusNotFound, c.get("/questions?q=9.9").Code)

	rec = c.get("/learners")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Focus area")
	assert.Contains(t, rec.Body.String(), "Performance bands")

	rec = c.get("/learners?learner=Nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Learner Nobody not found.")

	rec = c.get("/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Class means over time")
}

func TestCharts(t *testing.T) {
	c := uploaded(t)
	learner := url.QueryEscape("Thabo Mokoena")

	for _, path := range []string{
		"/charts/averages",
		"/charts/question-means",
		"/charts/percentages",
		"/charts/boxplot",
		"/charts/weakest",
		"/charts/pie?question=1.1",
		"/charts/radar?learner=" + learner,
		"/charts/learner?learner=" + learner,
		"/charts/progress",
		"/charts/custom?questions=1.1&questions=2.1&chart=scatter",
		"/charts/custom?questions=1.1&questions=1.2&chart=bar",
		"/charts/custom?questions=1.3&chart=histogram",
	} {
		t.Run(path, func(t *testing.T) {
			assertPNG(t, c.get(path))
		})
	}

	assert.Equal(t, http.StatusNotFound, c.get("/charts/compare").Code, "no comparison yet")
	assert.Equal(t, http.StatusNotFound, c.get("/charts/pie?question=Bonus").Code)
	assert.Equal(t, http.StatusNotFound, c.get("/charts/sankey").Code)
	assert.Equal(t, http.StatusBadRequest, c.get("/charts/custom?questions=1.1&chart=scatter").Code)
}

func TestUpload_ErrorsKeepPreviousState(t *testing.T) {
	c := uploaded(t)

	rec := c.upload("/upload", "broken.csv", []byte("foo,bar\n1,2\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not find the header row.")

	rec = c.upload("/upload", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only .xlsx and .csv files are supported.")

	rec = c.upload("/upload", "huge.csv", bytes.Repeat([]byte("a"), 1<<20+1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "larger than the 1 MB upload limit")

	rec = c.upload("/upload", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please choose a file to upload.")

	assert.Contains(t, c.get("/").Body.String(), "Overview of grade10.xlsx")
}

func TestUpload_CSVWithoutDates(t *testing.T) {
	c := newClient(t, newTestServer(t))
	rec := c.upload("/upload", "marks.csv", []byte("NAME OF LEARNER,Q1,Q2\nA,5,3\nB,2,2\n"))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	assert.Contains(t, c.get("/").Body.String(), "75.00%")

	rec = c.get("/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lacks a &#39;Test Date&#39; column")
	assert.Equal(t, http.StatusNotFound, c.get("/charts/progress").Code)
}

func TestCompare(t *testing.T) {
	c := uploaded(t)

	rec := c.upload("/compare", "term2.xlsx", markbookBytes(t, 7))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/compare", rec.Header().Get("Location"))

	body := c.get("/compare").Body.String()
	assert.Contains(t, body, "grade10.xlsx vs term2.xlsx")
	assertPNG(t, c.get("/charts/compare"))

	rec = c.upload("/compare", "other.csv", []byte("NAME OF LEARNER,X1\nA,5\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "No matching question columns between the two files.")

	// a failed comparison does not drop the previous one
	assertPNG(t, c.get("/charts/compare"))
}

func TestExplore(t *testing.T) {
	c := uploaded(t)

	rec := c.get("/explore")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="1.1"`)
	assert.NotContains(t, rec.Body.String(), "data:image/png;base64,")

	rec = c.get("/explore?questions=1.1&questions=1.2&chart=scatter")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,")

	rec = c.get("/explore?questions=1.1&chart=scatter")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Select at least 2 questions for a Scatter plot.")

	assert.Equal(t, http.StatusBadRequest, c.get("/explore?questions=1.1&chart=pie").Code)
	assert.Equal(t, http.StatusNotFound, c.get("/explore?questions=9.9").Code)
}

func TestExplore_QuestionWithComma(t *testing.T) {
	c := newClient(t, newTestServer(t))
	csv := "NAME OF LEARNER,\"Q1, part a\",Q2\nA,5,3\nB,2,2\nC,4,1\n"
	require.Equal(t, http.StatusSeeOther, c.upload("/upload", "marks.csv", []byte(csv)).Code)

	q := url.Values{"questions": {"Q1, part a", "Q2"}, "chart": {"scatter"}}
	rec := c.get("/explore?" + q.Encode())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,")

	assertPNG(t, c.get("/charts/custom?"+url.Values{"questions": {"Q1, part a"}, "chart": {"histogram"}}.Encode()))
}

func TestReport(t *testing.T) {
	c := uploaded(t)

	cases := map[string]string{
		"pdf":  "application/pdf",
		"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"html": "text/html",
		"md":   "text/markdown",
	}
	for format, contentType := range cases {
		t.Run(format, func(t *testing.T) {
			rec := c.get("/report?format=" + format)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), contentType))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "grade10_dashboard."+format)
			assert.NotEmpty(t, rec.Body.Bytes())
		})
	}

	assert.Equal(t, http.StatusBadRequest, c.get("/report?format=odt").Code)
}

func TestSessions_AreIsolated(t *testing.T) {
	srv := newTestServer(t)
	a, b := newClient(t, srv), newClient(t, srv)

	require.Equal(t, http.StatusSeeOther, a.upload("/upload", "grade10.xlsx", markbookBytes(t, 42)).Code)
	assert.NotContains(t, a.get("/questions").Body.String(), noDataMessage)
	assert.Contains(t, b.get("/questions").Body.String(), noDataMessage)
}

func TestSession_MalformedCookieReplaced(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.cookies = []*http.Cookie{{Name: middleware.CookieName, Value: "not-a-uuid"}}

	c.get("/")
	require.Len(t, c.cookies, 1)
	assert.NotEqual(t, "not-a-uuid", c.cookies[0].Value)
}

func TestHealth(t *testing.T) {
	c := newClient(t, newTestServer(t))
	rec := c.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStaticCSS(t *testing.T) {
	c := newClient(t, newTestServer(t))
	rec := c.get("/static/css/dashboard.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".banner")
}

func TestPreload_SeedsNewSessions(t *testing.T) {
	srv := newTestServer(t)
	state, err := srv.analysis.Analyze(context.Background(), markbookBytes(t, 42), "demo.xlsx")
	require.NoError(t, err)
	srv.Preload(state)

	c := newClient(t, srv)
	assert.Contains(t, c.get("/").Body.String(), "Overview of demo.xlsx")

	require.Equal(t, http.StatusSeeOther, c.upload("/upload", "marks.csv", []byte("NAME OF LEARNER,Q1\nA,5\n")).Code)
	assert.Contains(t, c.get("/").Body.String(), "Overview of marks.csv")
	assert.Contains(t, newClient(t, srv).get("/").Body.String(), "Overview of demo.xlsx", "the preload is copied, not shared")
}
