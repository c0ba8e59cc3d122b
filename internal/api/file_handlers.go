package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"fileshare/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartOverhead is the slack allowed on top of the upload limit for
// multipart boundaries and headers.
const multipartOverhead = 1 << 20

// maxBatchFiles caps the number of parts accepted by one batch upload.
const maxBatchFiles = 20

type FileListResponse struct {
	Owned  []models.File `json:"owned"`
	Shared []models.File `json:"shared"`
}

type BatchUploadResponse struct {
	Message string        `json:"message" example:"2 files uploaded"`
	Files   []models.File `json:"files"`
	Errors  []string      `json:"errors"`
}

type UpdateFileRequest struct {
	IsPublic *bool `json:"is_public"`
}

type ArchiveRequest struct {
	FileIDs []string `json:"file_ids" example:"V1StGXR8_Z5jdHi6B-myT,Uakgb_J5m9g-0JDMbcJqL"`
}

// @Summary      List files
// @Description  Lists the caller's own files and the files shared with them. Use scope to restrict to one list.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        scope   query     string  false  "owned, shared or all" default(all)
// @Param        limit   query     int     false  "Number of items to return per list" default(100)
// @Param        offset  query     int     false  "Offset for pagination" default(0)
// @Success      200     {object}  FileListResponse
// @Failure      400     {string}  string "Invalid scope"
// @Failure      401     {string}  string "Unauthorized"
// @Router       /files [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "all"
	}
	if scope != "all" && scope != "owned" && scope != "shared" {
		http.Error(w, "Invalid scope, must be one of owned, shared, all", http.StatusBadRequest)
		return
	}

	resp := FileListResponse{Owned: []models.File{}, Shared: []models.File{}}
	var err error
	if scope != "shared" {
		resp.Owned, err = s.files.ListOwned(r.Context(), user.ID, limit, offset)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if scope != "owned" {
		resp.Shared, err = s.files.ListShared(r.Context(), user.ID, limit, offset)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary      Upload a file
// @Description  Uploads a single file as multipart/form-data under the "file" field.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "File to upload"
// @Success      201   {object}  models.File
// @Failure      400   {string}  string "Invalid upload"
// @Failure      403   {string}  string "Access denied"
// @Failure      413   {string}  string "Upload too large"
// @Failure      500   {string}  string "Internal Server Error"
// @Router       /files [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.files.MaxUploadBytes()+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeError(w, r, err)
			return
		}
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	created, err := s.files.Save(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	uploadedBytes.Add(float64(created.SizeBytes))
	writeJSON(w, http.StatusCreated, created)
}

// @Summary      Upload several files
// @Description  Uploads every part of the "files" field into the caller's namespace. Each part is stored on its own; parts that fail are listed in errors and do not stop the rest.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        files  formData  file  true  "Files to upload"
// @Success      201    {object}  BatchUploadResponse
// @Failure      400    {string}  string "No files provided"
// @Failure      403    {string}  string "Access denied"
// @Failure      413    {string}  string "Upload too large"
// @Router       /files/batch [post]
func (s *Server) UploadFilesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.files.MaxUploadBytes()*maxBatchFiles+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeError(w, r, err)
			return
		}
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		http.Error(w, "No files provided", http.StatusBadRequest)
		return
	}
	if len(parts) > maxBatchFiles {
		http.Error(w, "Too many files, at most "+strconv.Itoa(maxBatchFiles)+" per request", http.StatusBadRequest)
		return
	}

	resp := BatchUploadResponse{Files: []models.File{}, Errors: []string{}}
	for _, header := range parts {
		file, err := header.Open()
		if err != nil {
			resp.Errors = append(resp.Errors, header.Filename+": unreadable part")
			continue
		}
		created, err := s.files.Save(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
		file.Close()
		if err != nil {
			if _, public := statusFor(err); !public {
				s.log.Error("batch upload part failed",
					zap.String("filename", header.Filename),
					zap.Int64("user_id", user.ID),
					zap.Error(err),
				)
				err = errors.New("internal server error")
			}
			resp.Errors = append(resp.Errors, header.Filename+": "+err.Error())
			continue
		}
		uploadedBytes.Add(float64(created.SizeBytes))
		resp.Files = append(resp.Files, *created)
	}
	resp.Message = strconv.Itoa(len(resp.Files)) + " files uploaded"
	writeJSON(w, http.StatusCreated, resp)
}

// @Summary      Get file metadata
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      200     {object}  models.File
// @Failure      404     {string}  string "File not found"
// @Router       /files/{fileId} [get]
func (s *Server) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	f, err := s.files.Get(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// @Summary      Download a file
// @Tags         files
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      200     {file}    file
// @Failure      403     {string}  string "Access denied"
// @Failure      404     {string}  string "File not found"
// @Router       /files/{fileId}/download [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	f, stream, err := s.files.Download(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalFilename}))
	if f.MimeType != "" {
		w.Header().Set("Content-Type", f.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))

	if _, err := io.Copy(w, stream); err != nil {
		s.log.Warn("download interrupted", zap.String("file_id", f.ID), zap.Error(err))
	}
}

// @Summary      Delete a file
// @Description  Moves the file to the owner's trash.
// @Tags         files
// @Security     BearerAuth
// @Param        fileId  path  string  true  "File ID"
// @Success      204  {null}    nil "No Content"
// @Failure      403  {string}  string "Access denied"
// @Failure      404  {string}  string "File not found"
// @Router       /files/{fileId} [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if _, err := s.files.Delete(r.Context(), user, chi.URLParam(r, "fileId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Restore a file from trash
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      200     {object}  models.File
// @Failure      403     {string}  string "Access denied"
// @Failure      404     {string}  string "File not found"
// @Failure      409     {string}  string "File is not in the trash"
// @Router       /files/{fileId}/restore [post]
func (s *Server) RestoreFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	f, err := s.files.Restore(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// @Summary      Update file settings
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId             path      string             true  "File ID"
// @Param        updateFileRequest  body      UpdateFileRequest  true  "Fields to change"
// @Success      200                {object}  models.File
// @Failure      400                {string}  string "Nothing to update"
// @Failure      403                {string}  string "Access denied"
// @Failure      404                {string}  string "File not found"
// @Router       /files/{fileId} [patch]
func (s *Server) UpdateFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req UpdateFileRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IsPublic == nil {
		http.Error(w, "No update operation specified (provide 'is_public')", http.StatusBadRequest)
		return
	}

	f, err := s.files.SetPublic(r.Context(), user, chi.URLParam(r, "fileId"), *req.IsPublic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// @Summary      Download several files as a zip archive
// @Description  Files the caller cannot access, deleted files and unknown ids are skipped.
// @Tags         files
// @Accept       json
// @Produce      application/zip
// @Security     BearerAuth
// @Param        archiveRequest  body      ArchiveRequest  true  "File IDs"
// @Success      200             {file}    file
// @Failure      400             {string}  string "No accessible files selected"
// @Router       /files/archive [post]
func (s *Server) DownloadArchiveHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req ArchiveRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	selected, err := s.files.PrepareExport(r.Context(), user, req.FileIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := "files_" + time.Now().UTC().Format("20060102_150405") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	// headers are gone once the first entry is written; failures can only be logged
	if _, err := s.files.WriteExport(r.Context(), selected, w); err != nil {
		s.log.Error("archive stream failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}
