package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"atscore/internal/ats"
	appErrors "atscore/internal/errors"
	"atscore/internal/export"
	"atscore/internal/pipeline"
	"atscore/internal/screening"
	"atscore/internal/store"
	"atscore/internal/types"
	"atscore/internal/utils"
)

const (
	multipartMemory = 32 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// UploadResponse is returned by /resume/upload_resume.
type UploadResponse struct {
	Data         *types.StructuredFields `json:"data"`
	ATSScore     float64                 `json:"ats_score"`
	ATSBreakdown ats.Breakdown           `json:"ats_breakdown"`
	WordCount    int                     `json:"word_count"`
	Languages    []string                `json:"languages"`
	ID           string                  `json:"id"`
}

// UserUploadResponse is returned by /user/upload_resume.
type UserUploadResponse struct {
	Status         string                  `json:"status"`
	Message        string                  `json:"message"`
	StructuredInfo *types.StructuredFields `json:"structured_info"`
	ATSScore       float64                 `json:"ats_score"`
	ATSBreakdown   ats.Breakdown           `json:"ats_breakdown"`
	WordCount      int                     `json:"word_count"`
}

// HistoryResponse is returned by /user/history/{email}.
type HistoryResponse struct {
	Status         string                  `json:"status"`
	StructuredInfo *types.StructuredFields `json:"structured_info"`
	ATSScore       float64                 `json:"ats_score"`
	ATSBreakdown   ats.Breakdown           `json:"ats_breakdown"`
	WordCount      int                     `json:"word_count"`
	LastUploaded   time.Time               `json:"last_uploaded"`
}

// AnalyzeAllResponse is returned by /analyze_all.
type AnalyzeAllResponse struct {
	Resume   UploadResponse       `json:"resume"`
	Profiles types.ProfileHandles `json:"profiles"`
}

func newUploadResponse(result *pipeline.Result) UploadResponse {
	return UploadResponse{
		Data:         result.Data,
		ATSScore:     result.Report.Score,
		ATSBreakdown: result.Report.Breakdown,
		WordCount:    result.Report.WordCount,
		Languages:    result.Report.Languages,
		ID:           result.ID,
	}
}

func (s *Server) startSpan(r *http.Request, name string) (*http.Request, trace.Span) {
	ctx, span := s.om.Tracer("atscore.api").Start(r.Context(), name)
	return r.WithContext(ctx), span
}

func (s *Server) failSpan(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if appErr, ok := appErrors.As(err); ok {
		span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
	}
	s.writeAppError(w, r, err)
}

// uploadResumeHandler scores a single uploaded resume.
func (s *Server) uploadResumeHandler(w http.ResponseWriter, r *http.Request) {
	r, span := s.startSpan(r, "api.upload_resume")
	defer span.End()

	result, err := s.processSingleUpload(r, "")
	if err != nil {
		s.failSpan(w, r, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("report.id", result.ID),
		attribute.Float64("ats.score", result.Report.Score),
	)
	writeJSON(w, http.StatusOK, newUploadResponse(result), s.Logger)
}

// userUploadHandler scores a resume and makes it the latest upload of the user.
func (s *Server) userUploadHandler(w http.ResponseWriter, r *http.Request) {
	r, span := s.startSpan(r, "api.user_upload_resume")
	defer span.End()

	if err := s.parseMultipart(r); err != nil {
		s.failSpan(w, r, span, err)
		return
	}
	email := store.NormalizeEmail(r.PostFormValue("email"))
	if email == "" {
		s.failSpan(w, r, span, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Email is required", nil))
		return
	}

	result, err := s.processSingleUpload(r, email)
	if err != nil {
		s.failSpan(w, r, span, err)
		return
	}

	span.SetAttributes(attribute.Float64("ats.score", result.Report.Score))
	writeJSON(w, http.StatusOK, UserUploadResponse{
		Status:         "success",
		Message:        "Resume processed successfully",
		StructuredInfo: result.Data,
		ATSScore:       result.Report.Score,
		ATSBreakdown:   result.Report.Breakdown,
		WordCount:      result.Report.WordCount,
	}, s.Logger)
}

// userHistoryHandler returns the latest stored analysis of a user.
func (s *Server) userHistoryHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.lookupUser(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Status:         "success",
		StructuredInfo: profile.StructuredInfo,
		ATSScore:       profile.ATSScore,
		ATSBreakdown:   profile.ATSBreakdown,
		WordCount:      profile.WordCount,
		LastUploaded:   profile.LastUploaded,
	}, s.Logger)
}

// userInfoHandler returns the full stored profile of a user.
func (s *Server) userInfoHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.lookupUser(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "user": profile}, s.Logger)
}

// userListHandler lists the latest upload of every user.
func (s *Server) userListHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "users": []store.UserProfile{}}, s.Logger)
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeAppError(w, r, appErrors.NewStorageError(appErrors.ErrCodeStorageReadFailed, "Failed to list users", err))
		return
	}
	if users == nil {
		users = []store.UserProfile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "users": users}, s.Logger)
}

// filterResumesHandler screens a batch of uploads against the posted filters.
func (s *Server) filterResumesHandler(w http.ResponseWriter, r *http.Request) {
	r, span := s.startSpan(r, "api.filter_uploaded_resumes")
	defer span.End()

	if err := s.parseMultipart(r); err != nil {
		s.failSpan(w, r, span, err)
		return
	}

	form := make(map[string]string)
	for _, key := range []string{
		screening.FieldCGPA, screening.FieldTenth, screening.FieldTwelfth, screening.FieldATS,
		screening.FieldSkills, screening.FieldLanguage, screening.FieldDepartment, screening.FieldDegree,
	} {
		form[key] = r.PostFormValue(key)
	}
	criteria, err := screening.ParseCriteria(form)
	if err != nil {
		s.failSpan(w, r, span, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.failSpan(w, r, span, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "No files uploaded", nil))
		return
	}
	if s.MaxBulkFiles > 0 && len(headers) > s.MaxBulkFiles {
		s.failSpan(w, r, span, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("Too many files: %d (limit is %d)", len(headers), s.MaxBulkFiles), nil))
		return
	}

	uploads := make([]pipeline.Upload, 0, len(headers))
	var rejected []pipeline.Skipped
	for _, header := range headers {
		up, err := s.readFileHeader(header)
		if err != nil {
			rejected = append(rejected, pipeline.Skipped{Filename: header.Filename, Reason: err.Error()})
			continue
		}
		uploads = append(uploads, up)
	}

	result, err := s.processor.Screen(r.Context(), uploads, criteria)
	if err != nil {
		s.failSpan(w, r, span, err)
		return
	}
	result.Skipped = append(result.Skipped, rejected...)

	span.SetAttributes(
		attribute.Int("screening.files", len(headers)),
		attribute.Int("screening.matches", result.Count),
	)

	if strings.EqualFold(r.URL.Query().Get("format"), "xlsx") {
		var buf bytes.Buffer
		if err := export.WriteScreeningWorkbook(&buf, result); err != nil {
			s.failSpan(w, r, span, appErrors.NewInternalError("EXPORT_FAILED", "Failed to build workbook", err))
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="screening.xlsx"`)
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			s.Logger.LogError(err, "Failed to write workbook")
		}
		return
	}

	writeJSON(w, http.StatusOK, result, s.Logger)
}

// analyzeAllHandler scores a resume and reports the profile handles found in
// the query or the extracted fields. Profiles are not fetched.
func (s *Server) analyzeAllHandler(w http.ResponseWriter, r *http.Request) {
	r, span := s.startSpan(r, "api.analyze_all")
	defer span.End()

	result, err := s.processSingleUpload(r, "")
	if err != nil {
		s.failSpan(w, r, span, err)
		return
	}

	query := r.URL.Query()
	profiles := types.HandlesFromFields(result.Data, types.ProfileHandles{
		GitHub:   query.Get("github"),
		LeetCode: query.Get("leetcode"),
		CodeChef: query.Get("codechef"),
		LinkedIn: query.Get("linkedin"),
	})

	writeJSON(w, http.StatusOK, AnalyzeAllResponse{
		Resume:   newUploadResponse(result),
		Profiles: profiles,
	}, s.Logger)
}

// processSingleUpload reads the "file" part and runs it through the pipeline.
func (s *Server) processSingleUpload(r *http.Request, owner string) (*pipeline.Result, error) {
	if err := s.parseMultipart(r); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "No file part in the request", nil)
		}
		return nil, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Failed to read uploaded file", err)
	}
	if err := file.Close(); err != nil {
		s.Logger.Debug("Failed to close upload", "error", err.Error())
	}

	up, err := s.readFileHeader(header)
	if err != nil {
		return nil, err
	}
	up.JobDescription = r.PostFormValue("job_description")
	up.Owner = owner

	return s.processor.Process(r.Context(), up)
}

// readFileHeader validates and reads one uploaded file.
func (s *Server) readFileHeader(header *multipart.FileHeader) (pipeline.Upload, error) {
	if strings.TrimSpace(header.Filename) == "" {
		return pipeline.Upload{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "No selected file", nil)
	}
	if utils.GetFileExtension(header.Filename) != ".pdf" {
		return pipeline.Upload{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidFormat,
			"Invalid file type. Only PDF allowed.", nil).WithContext("filename", header.Filename)
	}
	if s.MaxFileSize > 0 && header.Size > s.MaxFileSize {
		return pipeline.Upload{}, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("File exceeds the %s limit", utils.FormatFileSize(s.MaxFileSize)), nil).
			WithContext("filename", header.Filename)
	}

	f, err := header.Open()
	if err != nil {
		return pipeline.Upload{}, appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "Failed to open uploaded file", err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return pipeline.Upload{}, appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "Failed to read uploaded file", err)
	}
	return pipeline.Upload{Filename: header.Filename, Content: content}, nil
}

// parseMultipart parses the request form once. A body over the size limit
// is passed through so it maps to 413.
func (s *Server) parseMultipart(r *http.Request) error {
	if r.MultipartForm != nil {
		return nil
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Request must be multipart/form-data", err)
	}
	return nil
}

// lookupUser reads the {email} path value and loads the stored profile.
func (s *Server) lookupUser(r *http.Request) (*store.UserProfile, error) {
	email := store.NormalizeEmail(r.PathValue("email"))
	if email == "" {
		return nil, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Email is required", nil)
	}
	if s.store == nil {
		return nil, appErrors.NewNotFoundError(appErrors.ErrCodeNotFound, "User not found")
	}

	profile, err := s.store.GetUser(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, appErrors.NewNotFoundError(appErrors.ErrCodeNotFound, "User not found")
	}
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageReadFailed, "Failed to load user", err)
	}
	return profile, nil
}
