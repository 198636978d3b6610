package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/internal/service"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
	"github.com/campuslink/sar-portal-api/pkg/response"
)

// StudentHandler exposes student profile endpoints.
type StudentHandler struct {
	students *service.StudentService
	uploads  *service.UploadService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, uploads *service.UploadService) *StudentHandler {
	return &StudentHandler{students: students, uploads: uploads}
}

// List godoc
// @Summary List student profiles
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, email or enrollment number"
// @Param status query string false "Filter by review status"
// @Param course query string false "Filter by course"
// @Param branch query string false "Filter by branch"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Status = models.StudentStatus(c.Query("status"))
	filter.Course = c.Query("course")
	filter.Branch = c.Query("branch")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Me godoc
// @Summary Get own profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	student, err := h.students.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Submit godoc
// @Summary Submit a new profile for review
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.Student true "Profile payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Submit(c *gin.Context) {
	var student models.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	claims := claimsFromContext(c)
	actorID := ""
	if claims != nil {
		actorID = claims.UserID
		if claims.Role == models.RoleStudent {
			uid := claims.UserID
			student.UserID = &uid
		}
	}

	created, err := h.students.Submit(c.Request.Context(), &student, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update a profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.Student true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var student models.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	student.ID = c.Param("id")
	claims := claimsFromContext(c)
	actorID := ""
	if claims != nil {
		actorID = claims.UserID
	}

	updated, err := h.students.Update(c.Request.Context(), &student, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete a profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	actorID := ""
	if claims != nil {
		actorID = claims.UserID
	}
	if err := h.students.Delete(c.Request.Context(), c.Param("id"), actorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadDocument godoc
// @Summary Upload a supporting document
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/documents [post]
func (h *StudentHandler) UploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer f.Close()

	path, err := h.uploads.Store(c.Param("id"), header.Filename, header.Header.Get("Content-Type"), header.Size, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"path": path})
}
