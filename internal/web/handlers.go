package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/casefile"
	"github.com/roasbeef/midnight/internal/interview"
)

// createInterviewRequest is the body of POST /interviews. suspect_name is
// accepted as an older spelling of subject_name.
type createInterviewRequest struct {
	SubjectName string `json:"subject_name"`
	SuspectName string `json:"suspect_name"`
	CaseContext string `json:"case_context"`
}

// addUtteranceRequest is the body of POST /interviews/:id/utterances.
type addUtteranceRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// analyzeRequest is the optional body of POST /interviews/:id/analyze.
type analyzeRequest struct {
	CaseContext *string `json:"case_context"`
}

// registerRoutes wires every endpoint.
func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/health", s.handleHealth)

	interviews := r.Group("/interviews")
	{
		interviews.GET("", s.handleListInterviews)
		interviews.POST("", s.handleCreateInterview)
		interviews.POST("/audio", s.handleUploadAudio)
		interviews.DELETE("/reset", s.handleReset)

		interviews.GET("/:id", s.handleGetInterview)
		interviews.GET("/:id/audio", s.handleGetAudio)
		interviews.POST("/:id/utterances", s.handleAddUtterance)
		interviews.POST("/:id/analyze", s.handleAnalyze)
		interviews.DELETE("/:id", s.handleDeleteInterview)
	}

	r.GET("/summary", s.handleSummary)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found",
			"no such endpoint")
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleListInterviews handles GET /interviews. An optional name query
// parameter narrows the list to matching subjects.
func (s *Server) handleListInterviews(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		ivs []interview.Interview
		err error
	)
	if name, ok := c.GetQuery("name"); ok {
		ivs, err = s.svc.FindByName(ctx, name)
	} else {
		ivs, err = s.svc.List(ctx)
	}
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	rows := make([]interview.Summary, 0, len(ivs))
	for i := range ivs {
		rows = append(rows, ivs[i].Summarize())
	}

	c.JSON(http.StatusOK, rows)
}

// handleCreateInterview handles POST /interviews.
func (s *Server) handleCreateInterview(c *gin.Context) {
	var req createInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input",
			"invalid JSON body: "+err.Error())
		return
	}

	name := req.SubjectName
	if strings.TrimSpace(name) == "" {
		name = req.SuspectName
	}

	iv, err := s.svc.Create(c.Request.Context(), name, req.CaseContext)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, iv)
}

// handleUploadAudio handles POST /interviews/audio, a multipart upload with
// subject_name, optional case_context and the recording in file.
func (s *Server) handleUploadAudio(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(
		c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+1<<20,
	)

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input",
			"a file field is required")
		return
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "invalid_input",
			fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input",
			"unable to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input",
			"unable to read upload")
		return
	}

	name := c.PostForm("subject_name")
	if strings.TrimSpace(name) == "" {
		name = c.PostForm("name")
	}

	iv, err := s.svc.IngestAudio(c.Request.Context(), casefile.AudioUpload{
		SubjectName: name,
		CaseContext: c.PostForm("case_context"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, iv)
}

// handleGetInterview handles GET /interviews/:id.
func (s *Server) handleGetInterview(c *gin.Context) {
	iv, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, iv)
}

// handleGetAudio handles GET /interviews/:id/audio.
func (s *Server) handleGetAudio(c *gin.Context) {
	data, err := s.svc.AudioBlob(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// handleAddUtterance handles POST /interviews/:id/utterances.
func (s *Server) handleAddUtterance(c *gin.Context) {
	var req addUtteranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input",
			"invalid JSON body: "+err.Error())
		return
	}

	iv, err := s.svc.AppendUtterance(
		c.Request.Context(), c.Param("id"), req.Speaker, req.Text,
	)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, iv)
}

// handleAnalyze handles POST /interviews/:id/analyze. The body is optional.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	err := c.ShouldBindJSON(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid_input",
			"invalid JSON body: "+err.Error())
		return
	}

	override := fn.None[string]()
	if req.CaseContext != nil {
		override = fn.Some(*req.CaseContext)
	}

	iv, err := s.svc.RequestAnalysis(
		c.Request.Context(), c.Param("id"), override,
	)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, iv.LastAnalysis)
}

// handleDeleteInterview handles DELETE /interviews/:id.
func (s *Server) handleDeleteInterview(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.Delete(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleReset handles DELETE /interviews/reset.
func (s *Server) handleReset(c *gin.Context) {
	report, err := s.svc.ResetAll(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleSummary handles GET /summary.
func (s *Server) handleSummary(c *gin.Context) {
	resp, err := s.svc.Summary(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
