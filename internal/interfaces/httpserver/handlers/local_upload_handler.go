package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/infrastructure/storage"
	"mediavault/internal/interfaces/httpserver/responses"
	"mediavault/internal/utils/platformerrors"
)

// LocalUploadHandler accepts part uploads for the local storage backend.
// It stands in for the direct-to-store PUTs that presigned URLs provide
// on the s3 backend, so it is only routed when local storage is active.
type LocalUploadHandler struct {
	store *storage.LocalStore
	log   zerolog.Logger
}

func NewLocalUploadHandler(store *storage.LocalStore, log zerolog.Logger) *LocalUploadHandler {
	return &LocalUploadHandler{
		store: store,
		log:   log.With().Str("component", "local-upload-handler").Logger(),
	}
}

// PutPart stores one part of an open multipart session and echoes its
// integrity tag in the ETag header, matching what a presigned part PUT
// returns.
func (h *LocalUploadHandler) PutPart(c *gin.Context) {
	sessionID := c.Param("session")
	partNumber, err := strconv.ParseInt(c.Param("part"), 10, 32)
	if err != nil || partNumber < 1 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid part number", "")
		return
	}

	tag, err := h.store.WritePart(sessionID, int32(partNumber), c.Request.Body)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID).Msg("part upload failed")
		responses.HandleNewError(c, platformerrors.ErrorTypeNotFound, err.Error(), "")
		return
	}

	c.Header("ETag", strconv.Quote(tag))
	c.Status(http.StatusOK)
}
