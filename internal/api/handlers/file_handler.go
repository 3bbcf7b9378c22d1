package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/filestore/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// DriverSource hands out storage drivers; *storage.Router implements it.
type DriverSource interface {
	Backend() storage.Backend
	DriverFor(path, filename string, payload *storage.Payload) storage.Driver
}

type FileHandler struct {
	drivers DriverSource
}

func NewFileHandler(drivers DriverSource) *FileHandler {
	return &FileHandler{drivers: drivers}
}

// location reads the "path" and "filename" query parameters. It writes a 400
// and reports false when filename is missing.
func (h *FileHandler) location(c *gin.Context) (string, string, bool) {
	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "filename is required"})
		return "", "", false
	}
	return strings.TrimSpace(c.Query("path")), filename, true
}

// Upload stores the multipart "file" under the "path" and "filename" form
// fields. The stored name gets the uploaded file's extension appended.
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "no file provided"})
		return
	}

	filename := strings.TrimSpace(c.PostForm("filename"))
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "filename is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid form data"})
		return
	}
	defer file.Close()

	payload := &storage.Payload{Reader: file, Name: header.Filename, Size: header.Size}
	res := h.drivers.DriverFor(c.PostForm("path"), filename, payload).Upload(c.Request.Context())
	if !res.Success {
		writeFailure(c, res)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": res.Message})
}

// GetBytes writes the raw object.
func (h *FileHandler) GetBytes(c *gin.Context) {
	path, filename, ok := h.location(c)
	if !ok {
		return
	}
	res := h.drivers.DriverFor(path, filename, nil).ReadBytes(c.Request.Context())
	if !res.Success {
		writeFailure(c, res)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", res.Data)
}

func (h *FileHandler) GetBase64(c *gin.Context) {
	path, filename, ok := h.location(c)
	if !ok {
		return
	}
	res := h.drivers.DriverFor(path, filename, nil).ReadBase64(c.Request.Context())
	if !res.Success {
		writeFailure(c, res)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        res.Message,
		"file":           res.Base64,
		"file_extension": res.Extension,
	})
}

func (h *FileHandler) GetURL(c *gin.Context) {
	path, filename, ok := h.location(c)
	if !ok {
		return
	}
	res := h.drivers.DriverFor(path, filename, nil).AccessURL(c.Request.Context())
	if !res.Success {
		writeFailure(c, res)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message, "url": res.URL})
}

// Download streams the object inline with a generic suggested filename.
func (h *FileHandler) Download(c *gin.Context) {
	path, filename, ok := h.location(c)
	if !ok {
		return
	}
	res := h.drivers.DriverFor(path, filename, nil).Download(c.Request.Context())
	if !res.Success {
		writeFailure(c, res)
		return
	}
	dl := res.Download
	defer dl.Body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s", dl.Filename))
	contentType := dl.ContentType
	if contentType == storage.ContentTypeNotFound {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	if dl.Size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, dl.Body); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("download interrupted")
	}
}

// Delete removes an object. Remote backends address it with the optional
// "extension" query appended, matching how it was uploaded.
func (h *FileHandler) Delete(c *gin.Context) {
	path, filename, ok := h.location(c)
	if !ok {
		return
	}

	payload := storage.ExtensionPayload(filename, c.Query("extension"))
	res := h.drivers.DriverFor(path, filename, payload).Delete(c.Request.Context())
	if !res.Success {
		writeFailure(c, res)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message})
}

func writeFailure(c *gin.Context, res storage.Result) {
	status := statusFor(res.Err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(res.Err).Str("path", c.Request.URL.Path).Msg(res.Message)
	}
	c.JSON(status, gin.H{"success": false, "message": res.Message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrMissingPayload), errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, storage.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
