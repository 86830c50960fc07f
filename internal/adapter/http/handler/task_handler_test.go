package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	"taskapp/internal/adapter/database/sqlite"
	"taskapp/internal/adapter/database/sqlite/repository"
	"taskapp/internal/adapter/http/handler"
	"taskapp/internal/adapter/http/middleware"
	"taskapp/internal/adapter/http/routes"
	"taskapp/internal/core/domain"
	"taskapp/internal/core/model/response"
	"taskapp/internal/core/model/snapshot"
	"taskapp/internal/core/port"
	"taskapp/internal/core/service"
	"taskapp/internal/core/telemetry"
	. "taskapp/pkg/test"
	"taskapp/pkg/test/factory"
)

type TaskHandlerSuite struct {
	suite.Suite
	DB      *sqlite.DB
	Repo    port.TaskRepository
	Service *service.TaskService
	Router  *gin.Engine
	now     time.Time
}

var ctx = context.Background()

func TestTaskHandlerSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TaskHandlerSuite))
}

func (s *TaskHandlerSuite) SetupTest() {
	s.DB = InitTestDB()
	s.now = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

	probe := telemetry.NewNoOpProbe()

	s.Repo = repository.NewTaskRepository(s.DB, probe)
	s.Service = service.NewTaskService(s.Repo,
		service.WithTelemetry(probe),
		service.WithClock(func() time.Time { return s.now }),
	)

	s.Router = setupTaskTestRouter(routes.HandlersConfig{
		TaskHandler:   handler.NewTaskHandler(s.Service, nil),
		HealthHandler: handler.NewHealthHandler(s.Repo, "test", nil),
	})
}

func (s *TaskHandlerSuite) TearDownTest() {
	if s.DB != nil {
		s.DB.Close()
	}
}

func setupTaskTestRouter(handlers routes.HandlersConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(gin.Recovery())
	router.Use(middleware.CurrentMiddleware())

	routes.RegisterRoutes(router, handlers)

	return router
}

func (s *TaskHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)

	return rr
}

func (s *TaskHandlerSuite) createTask(input domain.TaskInput) domain.Task {
	task, err := s.Service.Create(ctx, input)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Second)

	return task
}

func decode[T any](rr *httptest.ResponseRecorder) T {
	var out T
	Expect(json.Unmarshal(rr.Body.Bytes(), &out)).To(Succeed())

	return out
}

func (s *TaskHandlerSuite) TestRoot() {
	rr := s.do("GET", "/", "")

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(decode[response.BannerResponse](rr).Message).To(ContainSubstring("running"))
}

func (s *TaskHandlerSuite) TestHealth() {
	rr := s.do("GET", "/health", "")

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(decode[response.HealthResponse](rr).Status).To(Equal("ok"))
}

func (s *TaskHandlerSuite) TestHealthWhenStoreIsDown() {
	s.DB.Close()

	rr := s.do("GET", "/health", "")

	Expect(rr.Code).To(Equal(http.StatusServiceUnavailable))
	Expect(decode[response.ErrorResponse](rr).Error.Code).To(Equal("SERVICE_UNAVAILABLE"))
}

func (s *TaskHandlerSuite) TestCreateTaskWithDefaults() {
	rr := s.do("POST", "/tasks/", `{"title": "  Buy milk  "}`)

	Expect(rr.Code).To(Equal(http.StatusCreated))
	Expect(rr.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

	task := decode[response.TaskResponse](rr)

	Expect(task.ID).To(BeNumerically(">", 0))
	Expect(task.Title).To(Equal("Buy milk"))
	Expect(task.Category).To(Equal("Misc"))
	Expect(task.Priority).To(Equal(2))
	Expect(task.IsCompleted).To(BeFalse())
	Expect(task.DueDate).To(BeNil())
	Expect(task.Description).To(BeNil())
	Expect(task.CreatedAt.Equal(s.now)).To(BeTrue())
	Expect(task.UpdatedAt).To(Equal(task.CreatedAt))
}

func (s *TaskHandlerSuite) TestCreateTaskWithoutTrailingSlash() {
	rr := s.do("POST", "/tasks", `{"title": "Walk", "category": "Home", "priority": 1, "due_date": "2024-06-20", "description": "dog"}`)

	Expect(rr.Code).To(Equal(http.StatusCreated))

	task := decode[response.TaskResponse](rr)

	Expect(task.Category).To(Equal("Home"))
	Expect(task.Priority).To(Equal(1))
	Expect(task.DueDate.String()).To(Equal("2024-06-20"))
	Expect(*task.Description).To(Equal("dog"))
}

func (s *TaskHandlerSuite) TestCreateTaskIgnoresCompletionState() {
	rr := s.do("POST", "/tasks/", `{"title": "Done already", "is_completed": true}`)

	Expect(rr.Code).To(Equal(http.StatusCreated))
	Expect(decode[response.TaskResponse](rr).IsCompleted).To(BeFalse())
}

func (s *TaskHandlerSuite) TestCreateTaskValidationErrors() {
	cases := map[string]string{
		"missing title":    `{"description": "x"}`,
		"blank title":      `{"title": "   "}`,
		"priority too low": `{"title": "a", "priority": 0}`,
		"priority high":    `{"title": "a", "priority": 4}`,
		"long category":    fmt.Sprintf(`{"title": "a", "category": "%s"}`, strings.Repeat("c", 51)),
		"long title":       fmt.Sprintf(`{"title": "%s"}`, strings.Repeat("t", 256)),
	}

	for name, body := range cases {
		rr := s.do("POST", "/tasks/", body)

		Expect(rr.Code).To(Equal(http.StatusBadRequest), name)

		errorResponse := decode[response.ErrorResponse](rr)
		Expect(errorResponse.Error.Code).To(Equal("VALIDATION_ERROR"), name)
		Expect(errorResponse.Error.Errors).ToNot(BeEmpty(), name)
	}

	Expect(s.count()).To(Equal(0))
}

func (s *TaskHandlerSuite) TestCreateTaskMalformedBody() {
	rr := s.do("POST", "/tasks/", `{"title": `)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decode[response.ErrorResponse](rr).Error.Code).To(Equal("BAD_REQUEST"))
}

func (s *TaskHandlerSuite) TestCreateTaskInvalidDueDate() {
	rr := s.do("POST", "/tasks/", `{"title": "a", "due_date": "not-a-date"}`)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
}

func (s *TaskHandlerSuite) TestListTasksDefaultOrder() {
	today := domain.DateOf(s.now)
	later := today.AddDays(3)
	sooner := today.AddDays(1)

	s.createTask(domain.TaskInput{Title: "undated"})
	s.createTask(domain.TaskInput{Title: "later", DueDate: &later})
	s.createTask(domain.TaskInput{Title: "sooner", DueDate: &sooner})

	for _, path := range []string{"/tasks/", "/tasks"} {
		rr := s.do("GET", path, "")

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"sooner", "later", "undated"}))
	}
}

func (s *TaskHandlerSuite) TestListTasksFilters() {
	today := domain.DateOf(s.now)
	yesterday := today.AddDays(-1)
	work := "Work"

	s.createTask(domain.TaskInput{Title: "Overdue report", Category: &work, DueDate: &yesterday})
	s.createTask(domain.TaskInput{Title: "Due today", DueDate: &today})
	done := s.createTask(domain.TaskInput{Title: "Finished"})

	_, err := s.Service.Update(ctx, done.ID, domain.TaskPatch{IsCompleted: domain.Some(true)})
	s.Require().NoError(err)

	rr := s.do("GET", "/tasks/?is_completed=yes", "")
	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"Finished"}))

	rr = s.do("GET", "/tasks/?is_completed=0", "")
	Expect(decode[[]response.TaskResponse](rr)).To(HaveLen(2))

	rr = s.do("GET", "/tasks/?category=Work", "")
	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"Overdue report"}))

	rr = s.do("GET", "/tasks/?category=work", "")
	Expect(decode[[]response.TaskResponse](rr)).To(BeEmpty())

	rr = s.do("GET", "/tasks/?date_filter=overdue", "")
	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"Overdue report"}))

	rr = s.do("GET", "/tasks/?date_filter=today", "")
	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"Due today"}))

	rr = s.do("GET", "/tasks/?date_filter=no_due_date", "")
	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"Finished"}))

	rr = s.do("GET", "/tasks/?date_filter=someday", "")
	Expect(decode[[]response.TaskResponse](rr)).To(HaveLen(3))

	rr = s.do("GET", "/tasks/?search=REPORT", "")
	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"Overdue report"}))

	rr = s.do("GET", "/tasks/?search=%20%20", "")
	Expect(decode[[]response.TaskResponse](rr)).To(HaveLen(3))
}

func (s *TaskHandlerSuite) TestListTasksSortByPriority() {
	low, high := domain.PriorityLow, domain.PriorityHigh

	s.createTask(domain.TaskInput{Title: "low", Priority: &low})
	s.createTask(domain.TaskInput{Title: "high old", Priority: &high})
	s.createTask(domain.TaskInput{Title: "high new", Priority: &high})

	rr := s.do("GET", "/tasks/?sort_by=priority", "")

	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"high new", "high old", "low"}))

	rr = s.do("GET", "/tasks/?sort_by=created_at", "")

	Expect(titlesOf(decode[[]response.TaskResponse](rr))).To(Equal([]string{"high new", "high old", "low"}))
}

func (s *TaskHandlerSuite) TestListTasksInvalidBoolean() {
	rr := s.do("GET", "/tasks/?is_completed=maybe", "")

	Expect(rr.Code).To(Equal(http.StatusBadRequest))

	errorResponse := decode[response.ErrorResponse](rr)
	Expect(errorResponse.Error.Code).To(Equal("BAD_REQUEST"))
	Expect(errorResponse.Error.Errors[0].Field).To(Equal("is_completed"))
}

func (s *TaskHandlerSuite) TestGetTask() {
	task := s.createTask(factory.NewTaskInput(map[string]any{"Title": "Fabricated"}))

	rr := s.do("GET", fmt.Sprintf("/tasks/%d", task.ID), "")

	Expect(rr.Code).To(Equal(http.StatusOK))
	Expect(decode[response.TaskResponse](rr).Title).To(Equal("Fabricated"))
}

func (s *TaskHandlerSuite) TestGetTaskNotFound() {
	rr := s.do("GET", "/tasks/999", "")

	Expect(rr.Code).To(Equal(http.StatusNotFound))
	Expect(decode[response.ErrorResponse](rr).Error.Code).To(Equal("NOT_FOUND"))
}

func (s *TaskHandlerSuite) TestNonIntegerID() {
	for _, method := range []string{"GET", "PATCH", "DELETE"} {
		rr := s.do(method, "/tasks/abc", `{"title": "x"}`)

		Expect(rr.Code).To(Equal(http.StatusBadRequest), method)
		Expect(decode[response.ErrorResponse](rr).Error.Errors[0].Field).To(Equal("id"), method)
	}
}

func (s *TaskHandlerSuite) TestUpdateTaskPartially() {
	due := domain.DateOf(s.now).AddDays(2)
	desc := "keep me"
	task := s.createTask(domain.TaskInput{Title: "Original", Description: &desc, DueDate: &due})

	s.now = s.now.Add(time.Minute)

	rr := s.do("PATCH", fmt.Sprintf("/tasks/%d", task.ID), `{"is_completed": true}`)

	Expect(rr.Code).To(Equal(http.StatusOK))

	updated := decode[response.TaskResponse](rr)
	Expect(updated.IsCompleted).To(BeTrue())
	Expect(updated.Title).To(Equal("Original"))
	Expect(*updated.Description).To(Equal("keep me"))
	Expect(updated.DueDate.String()).To(Equal(due.String()))
	Expect(updated.CreatedAt.Equal(task.CreatedAt)).To(BeTrue())
	Expect(updated.UpdatedAt.Equal(s.now)).To(BeTrue())
}

func (s *TaskHandlerSuite) TestUpdateTaskNullClearsAndResets() {
	due := domain.DateOf(s.now)
	desc := "gone soon"
	cat := "Work"
	task := s.createTask(domain.TaskInput{Title: "Clear me", Description: &desc, DueDate: &due, Category: &cat})

	rr := s.do("PATCH", fmt.Sprintf("/tasks/%d", task.ID), `{"description": null, "due_date": null, "category": null}`)

	Expect(rr.Code).To(Equal(http.StatusOK))

	updated := decode[response.TaskResponse](rr)
	Expect(updated.Description).To(BeNil())
	Expect(updated.DueDate).To(BeNil())
	Expect(updated.Category).To(Equal("Misc"))
}

func (s *TaskHandlerSuite) TestUpdateTaskRejectsBlankTitle() {
	task := s.createTask(domain.TaskInput{Title: "Stay"})

	rr := s.do("PATCH", fmt.Sprintf("/tasks/%d", task.ID), `{"title": "  "}`)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decode[response.ErrorResponse](rr).Error.Code).To(Equal("VALIDATION_ERROR"))

	stored, err := s.Repo.GetByID(ctx, task.ID)
	s.Require().NoError(err)
	Expect(stored.Title).To(Equal("Stay"))
}

func (s *TaskHandlerSuite) TestUpdateTaskNotFound() {
	rr := s.do("PATCH", "/tasks/42", `{"title": "x"}`)

	Expect(rr.Code).To(Equal(http.StatusNotFound))
}

func (s *TaskHandlerSuite) TestDeleteTask() {
	task := s.createTask(domain.TaskInput{Title: "Bye"})
	path := fmt.Sprintf("/tasks/%d", task.ID)

	rr := s.do("DELETE", path, "")

	Expect(rr.Code).To(Equal(http.StatusNoContent))
	Expect(rr.Body.Len()).To(Equal(0))

	Expect(s.do("GET", path, "").Code).To(Equal(http.StatusNotFound))
	Expect(s.do("DELETE", path, "").Code).To(Equal(http.StatusNotFound))
}

func (s *TaskHandlerSuite) TestExportTasks() {
	due := domain.DateOf(s.now).AddDays(1)
	s.createTask(domain.TaskInput{Title: "first", DueDate: &due})
	s.createTask(domain.TaskInput{Title: "second"})

	rr := s.do("GET", "/tasks/export", "")

	Expect(rr.Code).To(Equal(http.StatusOK))

	snap := decode[snapshot.Snapshot](rr)
	Expect(snap.TotalTasks).To(Equal(2))
	Expect(snap.Tasks[0].Title).To(Equal("second"))
	Expect(snap.Tasks[1].DueDate.String()).To(Equal(due.String()))

	var raw map[string]any
	Expect(json.Unmarshal(rr.Body.Bytes(), &raw)).To(Succeed())
	Expect(raw).To(HaveKey("export_time"))
	Expect(raw["tasks"].([]any)[1].(map[string]any)["due_date"]).To(Equal(due.String()))
}

func (s *TaskHandlerSuite) TestImportTasks() {
	body := `{"export_time": "ignored", "total_tasks": 99, "tasks": [
		{"title": "one", "is_completed": true, "priority": 1},
		{"title": "two", "due_date": "2024-07-01", "category": "Home"}
	]}`

	rr := s.do("POST", "/tasks/import", body)

	Expect(rr.Code).To(Equal(http.StatusCreated))

	tasks := decode[[]response.TaskResponse](rr)
	Expect(tasks).To(HaveLen(2))
	Expect(tasks[0].IsCompleted).To(BeTrue())
	Expect(tasks[1].Category).To(Equal("Home"))
	Expect(tasks[0].ID).ToNot(Equal(tasks[1].ID))
	Expect(s.count()).To(Equal(2))
}

func (s *TaskHandlerSuite) TestImportRejectsWholeBatch() {
	s.createTask(domain.TaskInput{Title: "existing"})

	rr := s.do("POST", "/tasks/import", `{"tasks": [{"title": "ok"}, {"title": " "}, {"title": "also ok"}]}`)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decode[response.ErrorResponse](rr).Error.Errors[0].Message).To(ContainSubstring("item 2"))
	Expect(s.count()).To(Equal(1))
}

func (s *TaskHandlerSuite) TestImportRejectsNonObjectItem() {
	rr := s.do("POST", "/tasks/import", `{"tasks": [{"title": "ok"}, "nope"]}`)

	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(decode[response.ErrorResponse](rr).Error.Errors[0].Message).To(ContainSubstring("item 2"))
	Expect(s.count()).To(Equal(0))
}

func (s *TaskHandlerSuite) TestImportRejectsEmptyList() {
	for _, body := range []string{`{"tasks": []}`, `{}`} {
		rr := s.do("POST", "/tasks/import", body)

		Expect(rr.Code).To(Equal(http.StatusBadRequest), body)
		Expect(decode[response.ErrorResponse](rr).Error.Code).To(Equal("VALIDATION_ERROR"), body)
	}
}

func (s *TaskHandlerSuite) TestExportImportRoundTrip() {
	due := domain.DateOf(s.now).AddDays(5)
	desc := "details"
	cat := "Errands"
	low := domain.PriorityLow

	s.createTask(domain.TaskInput{Title: "round", Description: &desc, Category: &cat, Priority: &low, DueDate: &due})

	exported := s.do("GET", "/tasks/export", "")
	snap := decode[snapshot.Snapshot](exported)

	body, err := json.Marshal(map[string]any{"tasks": snap.Tasks})
	s.Require().NoError(err)

	rr := s.do("POST", "/tasks/import", string(body))
	Expect(rr.Code).To(Equal(http.StatusCreated))

	imported := decode[[]response.TaskResponse](rr)[0]
	original := snap.Tasks[0]

	Expect(imported.ID).ToNot(Equal(original.ID))
	Expect(imported.Title).To(Equal(original.Title))
	Expect(*imported.Description).To(Equal(*original.Description))
	Expect(imported.Category).To(Equal(original.Category))
	Expect(imported.Priority).To(Equal(original.Priority))
	Expect(imported.DueDate.String()).To(Equal(original.DueDate.String()))
	Expect(imported.IsCompleted).To(Equal(original.IsCompleted))
}

func (s *TaskHandlerSuite) count() int {
	n, err := s.Repo.Count(ctx)
	s.Require().NoError(err)

	return n
}

func titlesOf(tasks []response.TaskResponse) []string {
	out := make([]string, 0, len(tasks))

	for _, t := range tasks {
		out = append(out, t.Title)
	}

	return out
}
