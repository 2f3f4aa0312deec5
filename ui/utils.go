package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"learnerdash/adapters/excel"
	"learnerdash/internal/errors"
	"learnerdash/internal/session"
	"learnerdash/ui/middleware"
)

// uploadMessages maps terminal pipeline errors to what the page shows
var uploadMessages = map[string]string{
	errors.CodeHeaderNotFound:     "Could not find the header row. The sheet needs a row containing the learner name heading.",
	errors.CodeNameColumnNotFound: "Could not find the learner name column in the header row.",
	errors.CodeNoQuestionColumns:  "No question columns with marks were found in the uploaded file.",
	errors.CodeUnreadable:         "The file could not be read as a spreadsheet.",
	errors.CodeNoCommonQuestions:  "No matching question columns between the two files.",
}

// describeError turns an error into an HTTP status and a user-facing message
func describeError(err error) (int, string) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError, "Something went wrong while processing the request."
	}
	if msg, ok := uploadMessages[appErr.Code]; ok {
		return http.StatusUnprocessableEntity, msg
	}
	switch appErr.Code {
	case errors.CodeInvalidInput, errors.CodeUnsupportedFormat:
		return http.StatusBadRequest, appErr.Message
	case errors.CodeNotFound:
		return http.StatusNotFound, capitalize(appErr.Message) + "."
	}
	return http.StatusInternalServerError, "Something went wrong while processing the request."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// currentState returns the caller's session state, if any
func (s *Server) currentState(c *gin.Context) (*session.State, bool) {
	id := middleware.SessionID(c)
	if id == "" {
		return nil, false
	}
	state, ok := s.store.Get(id)
	if !ok && s.preload != nil {
		seeded := *s.preload
		seeded.ID = id
		state, ok = &seeded, true
		s.store.Put(id, state)
	}
	if !ok || state.Table == nil || state.Analysis == nil {
		return nil, false
	}
	return state, true
}

// readUpload validates and reads the multipart "file" field
func (s *Server) readUpload(c *gin.Context) ([]byte, string, error) {
	limit := s.config.Server.MaxUploadBytes()
	// leave room for the multipart envelope; the file itself is checked below
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, "", errors.InvalidInput(fmt.Sprintf("The file is larger than the %d MB upload limit.", s.config.Server.MaxUploadMB))
		}
		return nil, "", errors.InvalidInput("Please choose a file to upload.")
	}
	if header.Size > limit {
		return nil, "", errors.InvalidInput(fmt.Sprintf("The file is larger than the %d MB upload limit.", s.config.Server.MaxUploadMB))
	}
	if !excel.IsSupported(header.Filename) {
		return nil, "", errors.InvalidInput("Only .xlsx and .csv files are supported.")
	}

	data, err := readMultipart(header)
	if err != nil {
		return nil, "", errors.Unreadable(err)
	}
	return data, header.Filename, nil
}

func readMultipart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// selectedQuestions reads one question per repeated parameter. Values are
// not split, since question headers may contain commas.
func selectedQuestions(c *gin.Context) []string {
	var out []string
	for _, q := range c.QueryArray("questions") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
