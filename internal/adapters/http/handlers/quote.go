package handlers

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// defaultStatusLimit is how many status messages GET /status returns by default.
const defaultStatusLimit = 20

//go:embed templates/widget.html
var templateFS embed.FS

var widgetTemplate = template.Must(template.ParseFS(templateFS, "templates/widget.html"))

// StatusHistory exposes recently emitted status messages.
type StatusHistory interface {
	Recent(n int) []ports.Status
}

// QuoteHandler handles the widget page and the quote API.
type QuoteHandler struct {
	service *app.QuoteService
	status  StatusHistory
}

// NewQuoteHandler creates a new quote handler. status may be nil, in which
// case GET /status always returns an empty list.
func NewQuoteHandler(service *app.QuoteService, status StatusHistory) *QuoteHandler {
	return &QuoteHandler{
		service: service,
		status:  status,
	}
}

// ListQuotes handles GET /api/v1/quotes.
// Returns the collection in insertion order using cursor pagination.
//
// @Summary List quotes
// @Tags quotes
// @Produce json
// @Param cursor query string false "Cursor from a previous page"
// @Param limit query int false "Page size (1-100)"
// @Success 200 {object} dto.Page[dto.QuoteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.PageRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	offset, err := req.Offset()
	if err != nil {
		h.respondCode(c, dto.ErrorCodeBadRequest, "invalid cursor")
		return
	}

	c.JSON(http.StatusOK, dto.PageOf(h.service.List(), offset, req.Size(), dto.NewQuoteResponse))
}

// RandomQuote handles GET /api/v1/quotes/random.
// An empty filter result is not an error: quote is null and a message is set.
//
// @Summary Pick a random quote under the active filter
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.RandomQuoteResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	q, ok := h.service.Random(c.Request.Context())
	c.JSON(http.StatusOK, randomResponse(q, ok))
}

func randomResponse(q domain.Quote, ok bool) dto.RandomQuoteResponse {
	if !ok {
		return dto.RandomQuoteResponse{Message: dto.NoQuotesMessage}
	}

	resp := dto.NewQuoteResponse(q)

	return dto.RandomQuoteResponse{Quote: &resp}
}

// AddQuote handles POST /api/v1/quotes.
//
// @Summary Add a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param body body dto.AddQuoteRequest true "Quote"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondCode(c, dto.ErrorCodeBadRequest, "request body must be a JSON object")
		return
	}

	// Validation happens in the store so the failure also reaches the status feed.
	q, err := h.service.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(q))
}

// ListCategories handles GET /api/v1/categories.
//
// @Summary List filter categories
// @Tags categories
// @Produce json
// @Success 200 {object} dto.CategoriesResponse
// @Router /api/v1/categories [get]
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	categories, selected := h.service.Categories()
	c.JSON(http.StatusOK, dto.CategoriesResponse{Categories: categories, Selected: selected})
}

// SetFilter handles PUT /api/v1/categories/selected.
// Categories that no longer exist are accepted and match nothing.
//
// @Summary Set the active filter
// @Tags categories
// @Accept json
// @Produce json
// @Param body body dto.SetFilterRequest true "Filter"
// @Success 200 {object} dto.CategoriesResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/categories/selected [put]
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req dto.SetFilterRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.service.SetFilter(c.Request.Context(), req.Category); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.ListCategories(c)
}

// Export handles GET /api/v1/quotes/export.
//
// @Summary Download the collection as quotes.json
// @Tags quotes
// @Produce json
// @Success 200 {array} dto.QuoteResponse
// @Router /api/v1/quotes/export [get]
func (h *QuoteHandler) Export(c *gin.Context) {
	raw, err := h.service.Export(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+app.ExportFilename+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// Import handles POST /api/v1/quotes/import.
// The document is read from the multipart field "file" or from the raw body.
//
// @Summary Import a quotes document
// @Tags quotes
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/import [post]
func (h *QuoteHandler) Import(c *gin.Context) {
	raw, err := readDocument(c)
	if err != nil {
		h.respondCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	n, err := h.service.Import(c.Request.Context(), raw)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Imported: n})
}

func readDocument(c *gin.Context) ([]byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, errors.New("reading request body failed")
		}

		return raw, nil
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, errors.New(`multipart field "file" is required`)
	}

	f, err := header.Open()
	if err != nil {
		return nil, errors.New("opening uploaded file failed")
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("reading uploaded file failed")
	}

	return raw, nil
}

// SyncNow handles POST /api/v1/sync.
// A cycle that fails to reach the remote still returns 200 with the error in
// the report. A cycle already in flight yields 409.
//
// @Summary Run a sync cycle now
// @Tags sync
// @Produce json
// @Success 200 {object} dto.SyncResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/sync [post]
func (h *QuoteHandler) SyncNow(c *gin.Context) {
	report, err := h.service.SyncNow(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	state, _, _ := h.service.SyncStatus()
	c.JSON(http.StatusOK, dto.SyncResponse{State: string(state), Report: syncReport(report)})
}

// SyncStatus handles GET /api/v1/sync.
//
// @Summary Inspect the sync engine
// @Tags sync
// @Produce json
// @Success 200 {object} dto.SyncResponse
// @Router /api/v1/sync [get]
func (h *QuoteHandler) SyncStatus(c *gin.Context) {
	state, report, ok := h.service.SyncStatus()

	resp := dto.SyncResponse{State: string(state)}
	if ok {
		resp.Report = syncReport(report)
	}

	c.JSON(http.StatusOK, resp)
}

func syncReport(r app.SyncReport) *dto.SyncReport {
	return &dto.SyncReport{
		CycleID:        r.CycleID,
		Trigger:        r.Trigger,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		RemoteCount:    r.RemoteCount,
		Conflicts:      dto.NewQuoteResponses(r.Conflicts),
		CollectionSize: r.CollectionSize,
		Message:        r.Message,
		Error:          r.Error,
		RemoteError:    r.RemoteError,
	}
}

// RecentStatus handles GET /api/v1/status.
//
// @Summary Recent status messages
// @Tags status
// @Produce json
// @Param limit query int false "Number of messages (1-100)"
// @Success 200 {object} dto.StatusResponse
// @Router /api/v1/status [get]
func (h *QuoteHandler) RecentStatus(c *gin.Context) {
	var q dto.StatusQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		h.badRequest(c, err)
		return
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultStatusLimit
	}

	var history []ports.Status
	if h.status != nil {
		history = h.status.Recent(limit)
	}

	c.JSON(http.StatusOK, dto.NewStatusResponse(history))
}

// widgetView is the data rendered by the widget template.
type widgetView struct {
	Quote      *dto.QuoteResponse
	Message    string
	Categories []string
	Selected   string
	Count      int
}

// Widget handles GET /. It shows the last viewed quote while it is still
// visible, or a fresh pick when ?next is present.
func (h *QuoteHandler) Widget(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		q  domain.Quote
		ok bool
	)

	if _, next := c.GetQuery("next"); next {
		q, ok = h.service.Random(ctx)
	} else {
		q, ok = h.service.Current(ctx)
	}

	pick := randomResponse(q, ok)
	categories, selected := h.service.Categories()

	view := widgetView{
		Quote:      pick.Quote,
		Message:    pick.Message,
		Categories: categories,
		Selected:   selected,
		Count:      len(h.service.List()),
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)

	if err := widgetTemplate.Execute(c.Writer, view); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "rendering widget failed", slog.Any("error", err))
	}
}

func (h *QuoteHandler) badRequest(c *gin.Context, err error) {
	if fields := dto.ValidationErrors(err); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			fields,
		).WithTraceID(dto.GetTraceID(c)))

		return
	}

	h.respondCode(c, dto.ErrorCodeBadRequest, "malformed request")
}

func (h *QuoteHandler) respondCode(c *gin.Context, code, message string) {
	c.JSON(dto.HTTPStatusFromCode(code), dto.NewErrorResponse(code, message).WithTraceID(dto.GetTraceID(c)))
}

// RegisterQuoteRoutes registers the JSON API on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/export", h.Export)
	quotes.POST("/import", h.Import)

	categories := rg.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.PUT("/selected", h.SetFilter)

	rg.POST("/sync", h.SyncNow)
	rg.GET("/sync", h.SyncStatus)
	rg.GET("/status", h.RecentStatus)
}

// RegisterWidgetRoutes registers the HTML widget on the engine root.
func (h *QuoteHandler) RegisterWidgetRoutes(engine *gin.Engine) {
	engine.GET("/", h.Widget)
}
