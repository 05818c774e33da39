package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/audioshelf/internal/database/progress"
	"github.com/mrlokans/audioshelf/internal/playback"
)

// ProgressController exposes the progress ledger and the resume-position
// merge to the playback front-end.
type ProgressController struct {
	progress *progress.Repository
	resolver *playback.Resolver
}

func NewProgressController(progressRepo *progress.Repository, resolver *playback.Resolver) *ProgressController {
	return &ProgressController{
		progress: progressRepo,
		resolver: resolver,
	}
}

// ForBook returns every known progress row of a book joined with file info.
func (controller *ProgressController) ForBook(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	rows, err := controller.progress.ForBook(bookID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"progress": rows, "count": len(rows)})
}

// Resume returns the position playback should resume from for one file:
// the maximum of local and remote progress, with remote failures counting
// as zero so the response never blocks on the network being healthy.
func (controller *ProgressController) Resume(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	position, err := controller.resolver.Resume(c.Request.Context(), bookID, fileID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"book_id": bookID, "file_id": fileID, "progress_ms": position})
}

type setProgressRequest struct {
	ProgressMs int64 `json:"progress_ms" binding:"gte=0"`
}

// Set upserts the local position for one file. Remote convergence is the
// reconciler session's job; this endpoint only writes the local ledger.
func (controller *ProgressController) Set(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	var req setProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := controller.progress.Set(bookID, fileID, req.ProgressMs); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"book_id": bookID, "file_id": fileID, "progress_ms": req.ProgressMs})
}

func parseFileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("fileId"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return 0, false
	}
	return uint(id), true
}
