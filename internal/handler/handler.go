package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prepgrid/prepgrid/internal/coach"
	appI18n "github.com/prepgrid/prepgrid/internal/i18n"
	"github.com/prepgrid/prepgrid/internal/model"
	"github.com/prepgrid/prepgrid/internal/session"
	"github.com/prepgrid/prepgrid/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	coach  *coach.Client // nil when no LLM is configured
	config model.ServerConfig
	reg    *registry
}

// New creates a new Handler.
func New(s *store.Store, c *coach.Client, cfg model.ServerConfig) (*Handler, error) {
	return &Handler{store: s, coach: c, config: cfg, reg: newRegistry()}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.withUser)
		r.Get("/api/exams", h.handleListExams)
		r.Get("/api/exams/{examID}", h.handleExamDetail)
		r.Get("/api/history", h.handleHistory)
		r.Post("/api/attempts", h.handleStartAttempt)
		r.Route("/api/attempts/{token}", func(r chi.Router) {
			r.Get("/", h.handleAttemptState)
			r.Delete("/", h.handleAbandonAttempt)
			r.Post("/answer", h.handleAnswer)
			r.Post("/flag", h.handleFlag)
			r.Post("/goto", h.handleGoTo)
			r.Post("/next", h.handleNext)
			r.Post("/previous", h.handlePrevious)
			r.Post("/mode", h.handleToggleMode)
			r.Post("/submit", h.handleSubmit)
			r.Post("/retake", h.handleRetake)
			r.Get("/results", h.handleResults)
			r.Get("/coach", h.handleCoach)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode error", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeEngineError maps engine sentinels onto HTTP statuses: bad indices
// are the caller's fault, state-machine refusals are conflicts.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotRunning), errors.Is(err, session.ErrNotFinished):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("attempt operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type examSummary struct {
	model.Exam
	QuestionCount int      `json:"question_count"`
	Subjects      []string `json:"subjects,omitempty"`
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		slog.Error("failed to list exams", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]examSummary, 0, len(exams))
	for _, e := range exams {
		questions, err := h.store.ListQuestionsForExam(e.ID)
		if err != nil {
			slog.Error("failed to list questions", "exam_id", e.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out = append(out, examSummary{Exam: e, QuestionCount: len(questions)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleExamDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exam ID")
		return
	}
	exam, err := h.store.GetExam(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	questions, err := h.store.ListQuestionsForExam(id)
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	subjects, err := h.store.ListDistinctSubjects(id)
	if err != nil {
		slog.Error("failed to list subjects", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, examSummary{Exam: exam, QuestionCount: len(questions), Subjects: subjects})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	var (
		attempts []model.AttemptRecord
		err      error
	)
	if user := model.UserFromContext(r.Context()); user != nil {
		attempts, err = h.store.ListAttemptsForUser(user.ID)
	} else {
		attempts, err = h.store.ListAttempts()
	}
	if err != nil {
		slog.Error("failed to list attempts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

type startRequest struct {
	ExamID  int64      `json:"exam_id,omitempty"`
	Code    string     `json:"code,omitempty"`
	Subject string     `json:"subject,omitempty"`
	Year    int        `json:"year,omitempty"`
	Mode    model.Mode `json:"mode,omitempty"`
}

// clientQuestion is a question as sent to the browser. The answer key and
// explanation never leave the server before the attempt finishes; the hint
// only ships in practice mode.
type clientQuestion struct {
	Index      int              `json:"index"`
	Text       string           `json:"text"`
	Options    []string         `json:"options"`
	Subject    string           `json:"subject,omitempty"`
	Difficulty model.Difficulty `json:"difficulty,omitempty"`
	Hint       string           `json:"hint,omitempty"`
}

type attemptResponse struct {
	Token     string           `json:"token"`
	Exam      model.Exam       `json:"exam"`
	State     session.State    `json:"state"`
	Questions []clientQuestion `json:"questions"`
}

func (h *Handler) lookupExam(req startRequest) (*model.Exam, error) {
	if req.ExamID != 0 {
		exam, err := h.store.GetExam(req.ExamID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &exam, nil
	}
	return h.store.GetExamByKey(req.Code, req.Subject, req.Year)
}

func (h *Handler) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode != "" && req.Mode != model.ModePractice && req.Mode != model.ModeExam {
		writeError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	exam, err := h.lookupExam(req)
	if err != nil {
		slog.Error("failed to look up exam", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exam == nil {
		writeError(w, http.StatusNotFound, "exam not found")
		return
	}

	questions, err := h.store.ListQuestionsForExam(exam.ID)
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(questions) == 0 {
		writeError(w, http.StatusBadRequest, "exam has no questions")
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = exam.DefaultMode
	}
	if mode == "" {
		mode = h.config.DefaultMode
	}
	cfg := session.Config{
		Mode:             mode,
		DurationSeconds:  exam.DurationSeconds,
		PassingThreshold: exam.PassingThreshold,
	}
	if h.config.DurationSeconds > 0 {
		cfg.DurationSeconds = h.config.DurationSeconds
	}
	if h.config.PassingThreshold > 0 {
		cfg.PassingThreshold = h.config.PassingThreshold
	}

	var userID int64
	if user := model.UserFromContext(r.Context()); user != nil {
		userID = user.ID
	}

	sess, err := session.New(questions, cfg, session.RealClock{}, h.finishHooks(exam.ID, userID))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.Start(); err != nil {
		writeEngineError(w, err)
		return
	}

	la, err := h.reg.add(exam.ID, userID, sess)
	if err != nil {
		slog.Error("failed to register attempt", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, h.attemptPayload(la, *exam))
}

// finishHooks wires the persistence side effect: a finished outcome is
// saved in the background so a slow or failing write never delays results.
func (h *Handler) finishHooks(examID, userID int64) session.Hooks {
	return session.Hooks{
		Finished: func(o session.Outcome) {
			go func() {
				record := model.AttemptRecord{
					SubmissionID:     o.SubmissionID,
					ExamID:           examID,
					UserID:           userID,
					Mode:             o.Mode,
					Status:           o.Status,
					Report:           o.Report,
					Answers:          o.Answers,
					TimeTakenSeconds: o.TimeTakenSeconds,
					Provisional:      o.Provisional,
					StartedAt:        o.StartedAt,
					FinishedAt:       o.FinishedAt,
				}
				if _, err := h.store.SaveAttempt(record); err != nil {
					slog.Error("failed to save attempt", "submission_id", o.SubmissionID, "error", err)
				}
			}()
		},
	}
}

func (h *Handler) attemptPayload(la *liveAttempt, exam model.Exam) attemptResponse {
	state := la.sess.State()
	questions := la.sess.Questions()
	out := make([]clientQuestion, len(questions))
	for i, q := range questions {
		cq := clientQuestion{
			Index:      i,
			Text:       q.Text,
			Options:    q.Options,
			Subject:    q.Subject,
			Difficulty: q.Difficulty,
		}
		if state.Mode == model.ModePractice {
			cq.Hint = q.Hint
		}
		out[i] = cq
	}
	return attemptResponse{Token: la.token, Exam: exam, State: state, Questions: out}
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) (*liveAttempt, bool) {
	token := chi.URLParam(r, "token")
	la, ok := h.reg.get(token)
	if !ok {
		writeError(w, http.StatusNotFound, "attempt not found")
		return nil, false
	}
	return la, true
}

func (h *Handler) handleAttemptState(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	exam, err := h.store.GetExam(la.examID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, h.attemptPayload(la, exam))
}

func (h *Handler) handleAbandonAttempt(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !h.reg.remove(token) {
		writeError(w, http.StatusNotFound, "attempt not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type answerRequest struct {
	Index  int `json:"index"`
	Option int `json:"option"`
}

type indexRequest struct {
	Index int `json:"index"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := la.sess.SetAnswer(req.Index, req.Option); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, la.sess.State())
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := la.sess.ToggleFlag(req.Index); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, la.sess.State())
}

func (h *Handler) handleGoTo(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := la.sess.GoTo(req.Index); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, la.sess.State())
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	if err := la.sess.Next(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, la.sess.State())
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	if err := la.sess.Previous(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, la.sess.State())
}

func (h *Handler) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	if err := la.sess.ToggleMode(); err != nil {
		writeEngineError(w, err)
		return
	}
	exam, err := h.store.GetExam(la.examID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Mode changes what the client may see (hints), so resend the full payload.
	writeJSON(w, http.StatusOK, h.attemptPayload(la, exam))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	if err := la.sess.Submit(); err != nil {
		writeEngineError(w, err)
		return
	}
	la.stopTicker()
	h.writeResults(w, r, la)
}

func (h *Handler) handleRetake(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	exam, err := h.store.GetExam(la.examID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	fresh := la.sess.Retake()
	if err := fresh.Start(); err != nil {
		writeEngineError(w, err)
		return
	}
	next, err := h.reg.add(la.examID, la.userID, fresh)
	if err != nil {
		slog.Error("failed to register attempt", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.reg.remove(la.token)
	writeJSON(w, http.StatusCreated, h.attemptPayload(next, exam))
}

// resultsResponse decorates engine results with localized labels. Notice
// carries the provisional-score disclaimer for exam mode.
type resultsResponse struct {
	session.Results
	ResultLabel string `json:"result_label"`
	Notice      string `json:"notice,omitempty"`
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	h.writeResults(w, r, la)
}

func (h *Handler) writeResults(w http.ResponseWriter, r *http.Request, la *liveAttempt) {
	res, err := la.sess.Results()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	out := resultsResponse{Results: res}
	if res.Report.Passed {
		out.ResultLabel = appI18n.T(r.Context(), "Passed")
	} else {
		out.ResultLabel = appI18n.T(r.Context(), "Failed")
	}
	if res.Provisional {
		out.Notice = appI18n.T(r.Context(), "ProvisionalNotice")
	}
	for i := range out.Review {
		if out.Review[i].Explanation == "" {
			out.Review[i].Explanation = appI18n.T(r.Context(), "NoExplanation")
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCoach(w http.ResponseWriter, r *http.Request) {
	if h.coach == nil {
		writeError(w, http.StatusNotFound, "coach is not configured")
		return
	}
	la, ok := h.getAttempt(w, r)
	if !ok {
		return
	}
	outcome, done := la.sess.Outcome()
	if !done {
		writeError(w, http.StatusConflict, "attempt is not finished")
		return
	}
	exam, err := h.store.GetExam(la.examID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	plan, err := h.coach.StudyPlan(r.Context(), exam, outcome.Report)
	if err != nil {
		slog.Error("study plan failed", "error", err)
		writeError(w, http.StatusBadGateway, "coach unavailable")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
