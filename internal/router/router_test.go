package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/handler"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/service"
	"github.com/stemsi/proctored-mcq/internal/testutil"
	"github.com/stemsi/proctored-mcq/internal/validator"
	ws "github.com/stemsi/proctored-mcq/internal/websocket"
)

const (
	adminEmail = "admin@example.com"
	adminPass  = "password123"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailbox) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *mailbox) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type testServer struct {
	engine *gin.Engine
	store  *testutil.Store
	mail   *mailbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	_, rdb := testutil.NewRedis(t)
	store := testutil.NewStore()
	store.SeedQuestions(10)
	cfg := testutil.Config(3)
	log := zerolog.Nop()

	authService := service.NewAuthService(cfg, rdb)
	hash, err := authService.HashSecret(adminPass)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	cfg.AdminPasswordHash = hash

	mail := &mailbox{codes: make(map[string]string)}
	limiter := service.NewRateLimiter(rdb)
	timer := service.NewTimerService(rdb, cfg.Exam.TimerGrace)
	session := service.NewSessionService(cfg.Exam, store.Candidates(), store.Slots(), store.Questions(),
		timer, service.NewRandomizer(nil), store.Notifier(), log)
	proctor := service.NewProctorService(cfg.Exam.MaxWarnings, store.Candidates(), store.Audit(), session, log)
	report := service.NewReportService(store.Candidates(), store.Slots(), store.Questions())
	otp := service.NewOTPService(cfg.Exam, store.Candidates(), authService, limiter, mail, rdb, log)
	admin := service.NewAdminService(cfg.Exam, store.Candidates(), timer, authService, log)
	questions := service.NewQuestionService(store.Questions())

	handlers := &Handlers{
		Auth:  handler.NewAuthHandler(authService, otp, store.Candidates(), 5, log),
		Test:  handler.NewTestHandler(session, proctor, report, log),
		Admin: handler.NewAdminHandler(admin, report, questions, log),
		WS:    handler.NewWSHandler(authService, proctor, log, nil),
	}
	return &testServer{
		engine: SetupRouter(authService, limiter, handlers, cfg, log),
		store:  store,
		mail:   mail,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/admin/login",
		map[string]string{"email": adminEmail, "password": adminPass}, "")
	if status != http.StatusOK {
		t.Fatalf("admin login status %d: %s", status, errCode(env))
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &body)
	return body.Token
}

func (s *testServer) candidateToken(t *testing.T, email string) string {
	t.Helper()
	if status, env := s.do(t, http.MethodPost, "/api/v1/auth/otp/request", map[string]string{"email": email}, ""); status != http.StatusOK {
		t.Fatalf("otp request status %d: %s", status, errCode(env))
	}
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/otp/verify",
		map[string]string{"email": email, "otp": s.mail.code(email)}, "")
	if status != http.StatusOK {
		t.Fatalf("otp verify status %d: %s", status, errCode(env))
	}
	var body model.OTPVerifyResponse
	decodeData(t, env, &body)
	return body.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodGet, "/health", nil, "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
}

func TestCandidateFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/whitelist", map[string]string{"email": "cand@example.com"}, admin)
	if status != http.StatusCreated {
		t.Fatalf("whitelist status %d: %s", status, errCode(env))
	}
	if status, _ := s.do(t, http.MethodPost, "/api/v1/admin/whitelist", map[string]string{"email": "cand@example.com"}, admin); status != http.StatusOK {
		t.Fatalf("re-whitelist status = %d, want 200", status)
	}

	token := s.candidateToken(t, "cand@example.com")

	if status, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", nil, token); status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/test/start", nil, token)
	if status != http.StatusCreated {
		t.Fatalf("start status %d: %s", status, errCode(env))
	}
	if status, env := s.do(t, http.MethodPost, "/api/v1/test/start", nil, token); status != http.StatusConflict || errCode(env) != "INVALID_STATE" {
		t.Fatalf("second start = %d %s", status, errCode(env))
	}

	status, env = s.do(t, http.MethodGet, "/api/v1/test/questions/1", nil, token)
	if status != http.StatusOK {
		t.Fatalf("question status %d: %s", status, errCode(env))
	}
	var view model.QuestionView
	decodeData(t, env, &view)
	if view.Ordinal != 1 || view.TotalQuestions != 3 || len(view.Options) != 4 || view.RemainingSeconds < 59 {
		t.Fatalf("view = %+v", view)
	}

	answer := map[string]any{"question_number": 1, "selected_option": string(view.Options[0]), "time_taken_seconds": 3}
	status, env = s.do(t, http.MethodPost, "/api/v1/test/answers", answer, token)
	if status != http.StatusOK {
		t.Fatalf("answer status %d: %s", status, errCode(env))
	}
	var res model.SubmitAnswerResult
	decodeData(t, env, &res)
	if !res.Submitted || res.NextQuestionNumber == nil || *res.NextQuestionNumber != 2 {
		t.Fatalf("answer result = %+v", res)
	}
	if status, env := s.do(t, http.MethodPost, "/api/v1/test/answers", answer, token); status != http.StatusConflict || errCode(env) != "ALREADY_ANSWERED" {
		t.Fatalf("duplicate answer = %d %s", status, errCode(env))
	}

	status, env = s.do(t, http.MethodGet, "/api/v1/test/status", nil, token)
	if status != http.StatusOK {
		t.Fatalf("status status %d", status)
	}
	var st model.TestStatus
	decodeData(t, env, &st)
	if st.Status != model.CandidateStatusInProgress || st.QuestionsAnswered != 1 {
		t.Fatalf("status = %+v", st)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/test/complete", nil, token)
	if status != http.StatusOK {
		t.Fatalf("complete status %d: %s", status, errCode(env))
	}
	var sum model.ResultSummary
	decodeData(t, env, &sum)
	if sum.TotalQuestions != 3 || sum.CorrectAnswers+sum.IncorrectAnswers != 1 || sum.Unanswered != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if status, env := s.do(t, http.MethodPost, "/api/v1/test/complete", nil, token); status != http.StatusConflict || errCode(env) != "INVALID_STATE" {
		t.Fatalf("second complete = %d %s", status, errCode(env))
	}

	if status, _ := s.do(t, http.MethodGet, "/api/v1/test/result", nil, token); status != http.StatusOK {
		t.Fatalf("result status = %d", status)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/v1/admin/results/cand@example.com", nil, admin); status != http.StatusOK {
		t.Fatalf("admin result status = %d", status)
	}
	status, env = s.do(t, http.MethodGet, "/api/v1/admin/statistics", nil, admin)
	if status != http.StatusOK {
		t.Fatalf("statistics status = %d", status)
	}
	var stats model.Statistics
	decodeData(t, env, &stats)
	if stats.TotalCandidates != 1 || stats.TotalSlots != 3 || stats.Breakdown.Completed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	s.store.AddCandidate("cand@example.com")
	first := s.candidateToken(t, "cand@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/v1/test/status", "", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"garbage token", http.MethodGet, "/api/v1/test/status", "abc", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"admin on candidate route", http.MethodGet, "/api/v1/test/status", admin, http.StatusForbidden, "CANDIDATE_ACCESS_ONLY"},
		{"candidate on admin route", http.MethodGet, "/api/v1/admin/statistics", first, http.StatusForbidden, "ADMIN_ACCESS_ONLY"},
		{"ws without token", http.MethodGet, "/ws/v1/test/proctor", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, tt.method, tt.path, nil, tt.token)
			if status != tt.status || errCode(env) != tt.code {
				t.Fatalf("got %d %s, want %d %s", status, errCode(env), tt.status, tt.code)
			}
		})
	}

	// Logging in again invalidates the first token.
	second := s.candidateToken(t, "cand@example.com")
	if status, env := s.do(t, http.MethodGet, "/api/v1/test/status", nil, first); status != http.StatusUnauthorized || errCode(env) != "SESSION_INVALIDATED" {
		t.Fatalf("old token = %d %s", status, errCode(env))
	}
	if status, _ := s.do(t, http.MethodGet, "/api/v1/test/status", nil, second); status != http.StatusOK {
		t.Fatalf("new token status = %d", status)
	}

	if status, env := s.do(t, http.MethodPost, "/api/v1/auth/admin/login",
		map[string]string{"email": adminEmail, "password": "wrong-password"}, ""); status != http.StatusUnauthorized || errCode(env) != "INVALID_CREDENTIALS" {
		t.Fatalf("bad admin login = %d %s", status, errCode(env))
	}
	if status, env := s.do(t, http.MethodPost, "/api/v1/auth/otp/request",
		map[string]string{"email": "stranger@example.com"}, ""); status != http.StatusForbidden || errCode(env) != "NOT_WHITELISTED" {
		t.Fatalf("stranger otp = %d %s", status, errCode(env))
	}
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	s.store.AddCandidate("cand@example.com")
	token := s.candidateToken(t, "cand@example.com")
	if status, _ := s.do(t, http.MethodPost, "/api/v1/test/start", nil, token); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}

	if status, env := s.do(t, http.MethodGet, "/api/v1/test/questions/9", nil, token); status != http.StatusBadRequest || errCode(env) != "QUESTION_OUT_OF_RANGE" {
		t.Fatalf("out of range = %d %s", status, errCode(env))
	}
	if status, env := s.do(t, http.MethodGet, "/api/v1/test/questions/x", nil, token); status != http.StatusBadRequest || errCode(env) != "QUESTION_OUT_OF_RANGE" {
		t.Fatalf("non-numeric = %d %s", status, errCode(env))
	}

	bad := map[string]any{"question_number": 1, "selected_option": "E", "time_taken_seconds": 3}
	status, env := s.do(t, http.MethodPost, "/api/v1/test/answers", bad, token)
	if status != http.StatusUnprocessableEntity || errCode(env) != "INVALID_SUBMISSION" {
		t.Fatalf("bad option = %d %s", status, errCode(env))
	}
	if _, ok := env.Error.Fields["selected_option"]; !ok {
		t.Fatalf("fields = %v", env.Error.Fields)
	}

	if status, _ := s.do(t, http.MethodGet, "/api/v1/test/questions/1", nil, token); status != http.StatusOK {
		t.Fatalf("question status = %d", status)
	}
	tooSlow := map[string]any{"question_number": 1, "selected_option": "A", "time_taken_seconds": 600}
	if status, env := s.do(t, http.MethodPost, "/api/v1/test/answers", tooSlow, token); status != http.StatusUnprocessableEntity || errCode(env) != "INVALID_SUBMISSION" {
		t.Fatalf("impossible time = %d %s", status, errCode(env))
	}

	// Question 2 was never opened, so answering it closes it as expired.
	unseen := map[string]any{"question_number": 2, "selected_option": "A", "time_taken_seconds": 1}
	if status, env := s.do(t, http.MethodPost, "/api/v1/test/answers", unseen, token); status != http.StatusRequestTimeout || errCode(env) != "TIME_EXPIRED" {
		t.Fatalf("unseen = %d %s", status, errCode(env))
	}
}

func TestProctorEventsAutoSubmit(t *testing.T) {
	s := newTestServer(t)
	s.store.AddCandidate("cand@example.com")
	token := s.candidateToken(t, "cand@example.com")
	if status, _ := s.do(t, http.MethodPost, "/api/v1/test/start", nil, token); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}

	var res model.ProctorEventResult
	for i := 1; i <= 2; i++ {
		status, env := s.do(t, http.MethodPost, "/api/v1/test/proctor-events", map[string]string{"event_type": "blur"}, token)
		if status != http.StatusOK {
			t.Fatalf("event %d status %d: %s", i, status, errCode(env))
		}
		decodeData(t, env, &res)
		if res.WarningCount != i {
			t.Fatalf("event %d warning count = %d", i, res.WarningCount)
		}
	}
	if !res.AutoSubmitted {
		t.Fatal("second blur did not auto-submit")
	}

	status, env := s.do(t, http.MethodGet, "/api/v1/test/status", nil, token)
	if status != http.StatusOK {
		t.Fatalf("status status = %d", status)
	}
	var st model.TestStatus
	decodeData(t, env, &st)
	if st.Status != model.CandidateStatusCompleted || st.WarningCount != 2 || st.BlurCount != 2 {
		t.Fatalf("status = %+v", st)
	}
	if status, env := s.do(t, http.MethodPost, "/api/v1/test/proctor-events", map[string]string{"event_type": "blur"}, token); status != http.StatusConflict || errCode(env) != "INVALID_STATE" {
		t.Fatalf("event after completion = %d %s", status, errCode(env))
	}
}

// frame is the union of every server-to-client proctor message.
type frame struct {
	Event        ws.Event `json:"event"`
	WarningCount int      `json:"warning_count"`
	MaxWarnings  int      `json:"max_warnings"`
	Reason       string   `json:"reason"`
	Error        string   `json:"error"`
}

func dialProctor(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/test/proctor?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial proctor stream (status %d): %v", status, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg ws.RequestEnvelope) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msg.Action, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Fatalf("stream still open, got %s", msg)
	}
}

func TestProctorStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	s.store.AddCandidate("cand@example.com")
	token := s.candidateToken(t, "cand@example.com")
	if status, _ := s.do(t, http.MethodPost, "/api/v1/test/start", nil, token); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}

	conn := dialProctor(t, srv, token)
	send(t, conn, ws.RequestEnvelope{Action: ws.ActionPing})
	if f := readFrame(t, conn); f.Event != ws.EventPong {
		t.Fatalf("ping reply = %+v", f)
	}

	send(t, conn, ws.RequestEnvelope{Action: ws.ActionEvent, EventType: model.ProctorKindBlur})
	if f := readFrame(t, conn); f.Event != ws.EventWarning || f.WarningCount != 1 || f.MaxWarnings != 2 {
		t.Fatalf("first warning = %+v", f)
	}

	send(t, conn, ws.RequestEnvelope{Action: ws.ActionEvent, EventType: model.ProctorKindCopyAttempt})
	if f := readFrame(t, conn); f.Event != ws.EventWarning || f.WarningCount != 2 {
		t.Fatalf("second warning = %+v", f)
	}
	if f := readFrame(t, conn); f.Event != ws.EventCompleted || f.Reason != string(model.CompletionReasonWarningThreshold) {
		t.Fatalf("threshold frame = %+v", f)
	}
	expectClosed(t, conn)

	c, _ := s.store.Candidates().GetByEmail(context.Background(), "cand@example.com")
	if c.Status != model.CandidateStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", c.Status)
	}

	// A fresh socket on a finished test is told so and dropped.
	again := dialProctor(t, srv, token)
	send(t, again, ws.RequestEnvelope{Action: ws.ActionEvent, EventType: model.ProctorKindBlur})
	if f := readFrame(t, again); f.Event != ws.EventCompleted || f.Reason != "test is not in progress" {
		t.Fatalf("event after completion = %+v", f)
	}
	expectClosed(t, again)
}

func TestProctorStreamRejectsBadMessages(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	s.store.AddCandidate("cand@example.com")
	token := s.candidateToken(t, "cand@example.com")
	if status, _ := s.do(t, http.MethodPost, "/api/v1/test/start", nil, token); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}

	conn := dialProctor(t, srv, token)
	send(t, conn, ws.RequestEnvelope{Action: "shout"})
	if f := readFrame(t, conn); f.Event != ws.EventError || f.Error != "unknown action: shout" {
		t.Fatalf("unknown action reply = %+v", f)
	}
	send(t, conn, ws.RequestEnvelope{Action: ws.ActionEvent})
	if f := readFrame(t, conn); f.Event != ws.EventError {
		t.Fatalf("missing event_type reply = %+v", f)
	}

	// Kinds without a warning weight are logged but leave the count alone.
	send(t, conn, ws.RequestEnvelope{Action: ws.ActionEvent, EventType: "focus"})
	if f := readFrame(t, conn); f.Event != ws.EventWarning || f.WarningCount != 0 {
		t.Fatalf("focus reply = %+v", f)
	}
	if n := len(s.store.Events()); n != 1 {
		t.Fatalf("audit events = %d, want 1", n)
	}
}

func TestProctorStreamClosedByNewerLogin(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	s.store.AddCandidate("cand@example.com")
	first := s.candidateToken(t, "cand@example.com")
	if status, _ := s.do(t, http.MethodPost, "/api/v1/test/start", nil, first); status != http.StatusCreated {
		t.Fatalf("start status = %d", status)
	}

	conn := dialProctor(t, srv, first)
	send(t, conn, ws.RequestEnvelope{Action: ws.ActionPing})
	if f := readFrame(t, conn); f.Event != ws.EventPong {
		t.Fatalf("ping reply = %+v", f)
	}

	s.candidateToken(t, "cand@example.com")
	send(t, conn, ws.RequestEnvelope{Action: ws.ActionEvent, EventType: model.ProctorKindBlur})
	if f := readFrame(t, conn); f.Event != ws.EventError || f.Error != ws.ErrSessionReplaced {
		t.Fatalf("reply on replaced session = %+v", f)
	}
	expectClosed(t, conn)

	if n := len(s.store.Events()); n != 0 {
		t.Fatalf("audit events = %d, want 0", n)
	}
}

func TestAdminCandidateManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	c := s.store.AddCandidate("cand@example.com")
	token := s.candidateToken(t, "cand@example.com")

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/whitelist?status=NOT_STARTED", nil, admin)
	if status != http.StatusOK {
		t.Fatalf("list status %d", status)
	}
	var list struct {
		Candidates []model.Candidate `json:"candidates"`
	}
	decodeData(t, env, &list)
	if len(list.Candidates) != 1 {
		t.Fatalf("candidates = %+v", list.Candidates)
	}
	if status, env := s.do(t, http.MethodGet, "/api/v1/admin/whitelist?status=PAUSED", nil, admin); status != http.StatusBadRequest || errCode(env) != "VALIDATION_ERROR" {
		t.Fatalf("bad filter = %d %s", status, errCode(env))
	}

	if status, env := s.do(t, http.MethodPost, "/api/v1/admin/candidates/abc/block", nil, admin); status != http.StatusBadRequest || errCode(env) != "INVALID_ID" {
		t.Fatalf("bad id = %d %s", status, errCode(env))
	}
	path := "/api/v1/admin/candidates/" + strconv.FormatInt(c.ID, 10)
	if status, _ := s.do(t, http.MethodPost, path+"/block", nil, admin); status != http.StatusOK {
		t.Fatalf("block status = %d", status)
	}
	if status, env := s.do(t, http.MethodGet, "/api/v1/test/status", nil, token); status != http.StatusUnauthorized || errCode(env) != "SESSION_INVALIDATED" {
		t.Fatalf("blocked candidate = %d %s", status, errCode(env))
	}
	if status, env := s.do(t, http.MethodPost, path+"/reset", nil, admin); status != http.StatusConflict || errCode(env) != "INVALID_STATE" {
		t.Fatalf("reset blocked = %d %s", status, errCode(env))
	}
	if status, env := s.do(t, http.MethodDelete, "/api/v1/admin/whitelist/cand@example.com", nil, admin); status != http.StatusConflict || errCode(env) != "INVALID_STATE" {
		t.Fatalf("remove blocked = %d %s", status, errCode(env))
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/questions",
		map[string]string{"content_ref": "bank/q-extra", "correct_option": "C", "difficulty": "HARD"}, admin)
	if status != http.StatusCreated {
		t.Fatalf("add question status %d: %s", status, errCode(env))
	}
	var q model.Question
	decodeData(t, env, &q)
	if status, _ := s.do(t, http.MethodDelete, "/api/v1/admin/questions/"+strconv.FormatInt(q.ID, 10), nil, admin); status != http.StatusOK {
		t.Fatalf("deactivate status = %d", status)
	}
	if status, env := s.do(t, http.MethodPost, "/api/v1/admin/questions",
		map[string]string{"content_ref": "bank/q-bad", "correct_option": "Z"}, admin); status != http.StatusBadRequest || errCode(env) != "VALIDATION_ERROR" {
		t.Fatalf("bad question = %d %s", status, errCode(env))
	}
}
