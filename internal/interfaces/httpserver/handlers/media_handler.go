package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/domain/mediakey"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/interfaces/httpserver/responses"
	"mediavault/internal/utils/platformerrors"
)

// MediaHandler exposes the media vault endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

func (h *MediaHandler) userID(c *gin.Context) (string, bool) {
	uid, ok := auth.UserID(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "caller identity is required", "")
		return "", false
	}
	return uid, true
}

// fail logs the failure with full error structure and writes the response.
func (h *MediaHandler) fail(c *gin.Context, err error, message string) {
	if platformErr := platformerrors.GetPlatformError(err); platformErr != nil {
		platformerrors.LogError(h.log, platformErr)
	} else {
		h.log.Error().Err(err).Msg(message)
	}
	responses.HandleError(c, err, message)
}

// InitiateUpload godoc
// @Summary      Open multipart upload sessions
// @Description  Validates a batch of file descriptors and returns presigned part upload URLs per file.
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        request  body      domain.InitiateUploadRequest  true  "Upload batch"
// @Success      200      {object}  domain.InitiateUploadResult
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      401      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/uploads [post]
func (h *MediaHandler) InitiateUpload(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req domain.InitiateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error(), "")
		return
	}

	result, err := h.service.InitiateUpload(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err, "failed to initiate upload")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteUpload godoc
// @Summary      Complete a multipart upload
// @Description  Assembles previously uploaded parts into the final object.
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        request  body      domain.CompleteUploadRequest  true  "Completion request"
// @Success      200      {object}  domain.CompleteUploadResult
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      403      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/uploads/complete [post]
func (h *MediaHandler) CompleteUpload(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req domain.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error(), "")
		return
	}

	result, err := h.service.CompleteUpload(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err, "failed to complete upload")
		return
	}
	c.JSON(http.StatusOK, result)
}

// List godoc
// @Summary      List media files
// @Description  Returns one page of the caller's media catalog, most recent first.
// @Tags         media
// @Produce      json
// @Param        media_type  query     string  false  "Filter by media type (visual or audio)"
// @Param        limit       query     int     false  "Page size"
// @Param        cursor      query     string  false  "Continuation token from a previous page"
// @Success      200  {object}  domain.ListResult
// @Failure      400  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media [get]
func (h *MediaHandler) List(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	req := domain.ListRequest{
		MediaType:         mediakey.Category(c.Query("media_type")),
		Limit:             queryInt(c, "limit"),
		ContinuationToken: c.Query("cursor"),
	}

	result, err := h.service.List(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err, "failed to list media")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search godoc
// @Summary      Search media files
// @Description  Case-insensitive filename substring search over the caller's catalog.
// @Tags         media
// @Produce      json
// @Param        q           query     string  true   "Filename substring"
// @Param        media_type  query     string  false  "Filter by media type (visual or audio)"
// @Param        limit       query     int     false  "Maximum results"
// @Success      200  {object}  domain.ListResult
// @Failure      400  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/search [get]
func (h *MediaHandler) Search(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	req := domain.SearchRequest{
		Query:     c.Query("q"),
		MediaType: mediakey.Category(c.Query("media_type")),
		Limit:     queryInt(c, "limit"),
	}

	result, err := h.service.Search(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err, "failed to search media")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete godoc
// @Summary      Delete media files
// @Description  Removes a batch of files and their thumbnails. Per-key failures do not abort the batch.
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        request  body      domain.DeleteRequest  true  "Keys to delete"
// @Success      200      {object}  domain.DeleteResult
// @Failure      400      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/delete [post]
func (h *MediaHandler) Delete(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req domain.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error(), "")
		return
	}

	result, err := h.service.Delete(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err, "failed to delete media")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Rename godoc
// @Summary      Rename a media file
// @Description  Copies the object (and thumbnail) to a new filename in the same group, then removes the old one. The extension cannot change.
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RenameRequest  true  "Rename request"
// @Success      200      {object}  domain.RenameResult
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/media/rename [post]
func (h *MediaHandler) Rename(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req domain.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body: "+err.Error(), "")
		return
	}

	result, err := h.service.Rename(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err, "failed to rename media")
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
