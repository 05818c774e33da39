package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/audioshelf/internal/database/catalog"
	"github.com/mrlokans/audioshelf/internal/library"
	"github.com/mrlokans/audioshelf/internal/materializer"
	"github.com/mrlokans/audioshelf/internal/tasks"
)

// BooksController serves the local catalog view and the download/remove
// actions to the UI front-end.
type BooksController struct {
	catalog    *catalog.Repository
	service    *library.Service
	taskClient *tasks.Client
}

func NewBooksController(catalogRepo *catalog.Repository, service *library.Service, taskClient *tasks.Client) *BooksController {
	return &BooksController{
		catalog:    catalogRepo,
		service:    service,
		taskClient: taskClient,
	}
}

func (controller *BooksController) GetAllBooks(c *gin.Context) {
	if query := c.Query("q"); query != "" {
		books, err := controller.catalog.SearchBooks(query)
		if err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
		return
	}

	books, err := controller.catalog.GetAllBooks()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	book, err := controller.catalog.GetBook(bookID)
	if errors.Is(err, catalog.ErrBookNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

func (controller *BooksController) ListFiles(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	files, err := controller.catalog.ListFiles(bookID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// Download enqueues a background materialization for a book, or runs it
// inline when the task queue is disabled.
func (controller *BooksController) Download(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	if controller.taskClient != nil {
		_, err := controller.taskClient.Add(tasks.DownloadBookTask{BookID: bookID}).Save()
		if err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusAccepted, gin.H{"message": "download queued", "book_id": bookID})
		return
	}

	if err := controller.service.Download(c.Request.Context(), bookID); err != nil {
		if errors.Is(err, materializer.ErrDownloadInFlight) {
			c.IndentedJSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "book downloaded", "book_id": bookID})
}

// Remove deletes a book's local files and store rows. A failed filesystem
// delete keeps the store rows, so the book stays visible as downloaded and
// the user can retry.
func (controller *BooksController) Remove(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	if err := controller.service.Remove(bookID); err != nil {
		if errors.Is(err, materializer.ErrNotMaterialized) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "book removed", "book_id": bookID})
}

// Sync triggers an immediate catalog sync.
func (controller *BooksController) Sync(c *gin.Context) {
	if err := controller.service.Sync(c.Request.Context()); err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "catalog synced"})
}

func parseBookID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return 0, false
	}
	return uint(id), true
}
