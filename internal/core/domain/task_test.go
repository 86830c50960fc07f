package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func TestTaskInput_NewTask(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should apply defaults", func(t *testing.T) {
		task, err := TaskInput{Title: "A"}.NewTask(fixedNow)

		require.NoError(t, err)
		Expect(task.Title).To(Equal("A"))
		Expect(task.Category).To(Equal("Misc"))
		Expect(task.Priority).To(Equal(Priority(2)))
		Expect(task.DueDate).To(BeNil())
		Expect(task.Description).To(BeNil())
		Expect(task.IsCompleted).To(BeFalse())
		Expect(task.CreatedAt).To(Equal(task.UpdatedAt))
	})

	t.Run("should reject a whitespace title", func(t *testing.T) {
		_, err := TaskInput{Title: "  "}.NewTask(fixedNow)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
	})

	t.Run("should trim the stored title", func(t *testing.T) {
		task, err := TaskInput{Title: "  Buy milk "}.NewTask(fixedNow)

		require.NoError(t, err)
		assert.Equal(t, "Buy milk", task.Title)
	})

	t.Run("should default an empty category", func(t *testing.T) {
		task, err := TaskInput{Title: "A", Category: ptr("")}.NewTask(fixedNow)

		require.NoError(t, err)
		assert.Equal(t, DefaultCategory, task.Category)
	})

	t.Run("should reject invalid priority and long fields", func(t *testing.T) {
		cases := []TaskInput{
			{Title: "A", Priority: ptr(Priority(4))},
			{Title: "A", Priority: ptr(Priority(0))},
			{Title: strings.Repeat("x", 256)},
			{Title: "A", Description: ptr(strings.Repeat("x", 1001))},
			{Title: "A", Category: ptr(strings.Repeat("x", 51))},
		}

		for _, in := range cases {
			_, err := in.NewTask(fixedNow)
			assert.True(t, IsValidationError(err))
		}
	})

	t.Run("should honour explicit values", func(t *testing.T) {
		due := NewDate(2024, time.March, 12)
		task, err := TaskInput{
			Title:       "Ship",
			Description: ptr("release"),
			Category:    ptr("Work"),
			Priority:    ptr(PriorityHigh),
			DueDate:     &due,
			IsCompleted: ptr(true),
		}.NewTask(fixedNow)

		require.NoError(t, err)
		Expect(task.Category).To(Equal("Work"))
		Expect(task.Priority).To(Equal(PriorityHigh))
		Expect(*task.DueDate).To(Equal(due))
		Expect(task.IsCompleted).To(BeTrue())
	})
}

func TestTaskPatch_ApplyTo(t *testing.T) {
	RegisterTestingT(t)

	base := func() Task {
		due := NewDate(2024, time.March, 1)
		return Task{
			ID:          7,
			Title:       "Original",
			Description: ptr("desc"),
			Category:    "Work",
			Priority:    PriorityLow,
			DueDate:     &due,
			CreatedAt:   fixedNow,
			UpdatedAt:   fixedNow,
		}
	}

	t.Run("empty patch only refreshes updated_at", func(t *testing.T) {
		task := base()
		later := fixedNow.Add(time.Minute)

		require.NoError(t, TaskPatch{}.ApplyTo(&task, later))

		expected := base()
		expected.UpdatedAt = later
		Expect(task).To(Equal(expected))
	})

	t.Run("updated_at never precedes created_at", func(t *testing.T) {
		task := base()

		require.NoError(t, TaskPatch{}.ApplyTo(&task, fixedNow.Add(-time.Hour)))
		Expect(task.UpdatedAt).To(Equal(task.CreatedAt))
	})

	t.Run("null clears optional fields and resets category", func(t *testing.T) {
		task := base()
		patch := TaskPatch{
			Description: Null[string](),
			DueDate:     Null[Date](),
			Category:    Null[string](),
		}

		require.NoError(t, patch.ApplyTo(&task, fixedNow))
		Expect(task.Description).To(BeNil())
		Expect(task.DueDate).To(BeNil())
		Expect(task.Category).To(Equal(DefaultCategory))
		Expect(task.Title).To(Equal("Original"))
	})

	t.Run("sets present fields", func(t *testing.T) {
		task := base()
		patch := TaskPatch{
			Title:       Some(" New "),
			Priority:    Some(PriorityHigh),
			IsCompleted: Some(true),
		}

		require.NoError(t, patch.ApplyTo(&task, fixedNow))
		Expect(task.Title).To(Equal("New"))
		Expect(task.Priority).To(Equal(PriorityHigh))
		Expect(task.IsCompleted).To(BeTrue())
		Expect(*task.Description).To(Equal("desc"))
	})

	t.Run("rejects blank title without mutating", func(t *testing.T) {
		task := base()

		err := TaskPatch{Title: Some("   ")}.ApplyTo(&task, fixedNow.Add(time.Hour))

		assert.True(t, IsValidationError(err))
		Expect(task).To(Equal(base()))
	})
}

func TestTaskPatch_UnmarshalJSON(t *testing.T) {
	RegisterTestingT(t)

	var patch struct {
		Title       Optional[string] `json:"title"`
		Description Optional[string] `json:"description"`
		DueDate     Optional[Date]   `json:"due_date"`
	}

	err := json.Unmarshal([]byte(`{"description": null, "due_date": "2024-05-01"}`), &patch)

	require.NoError(t, err)
	Expect(patch.Title.IsSet()).To(BeFalse())
	Expect(patch.Description.IsNull()).To(BeTrue())

	due, ok := patch.DueDate.Get()
	Expect(ok).To(BeTrue())
	Expect(due).To(Equal(NewDate(2024, time.May, 1)))
}

func TestDate(t *testing.T) {
	RegisterTestingT(t)

	t.Run("parses dates and timestamps", func(t *testing.T) {
		d, err := ParseDate("2024-02-29")
		require.NoError(t, err)
		Expect(d.String()).To(Equal("2024-02-29"))

		d, err = ParseDate("2024-02-29T23:00:00Z")
		require.NoError(t, err)
		Expect(d).To(Equal(NewDate(2024, time.February, 29)))

		_, err = ParseDate("29/02/2024")
		Expect(err).To(HaveOccurred())
	})

	t.Run("adds days across month boundaries", func(t *testing.T) {
		Expect(NewDate(2024, time.January, 31).AddDays(1)).To(Equal(NewDate(2024, time.February, 1)))
		Expect(NewDate(2024, time.March, 1).AddDays(-1)).To(Equal(NewDate(2024, time.February, 29)))
	})

	t.Run("compares chronologically", func(t *testing.T) {
		a := NewDate(2023, time.December, 31)
		b := NewDate(2024, time.January, 1)

		Expect(a.Before(b)).To(BeTrue())
		Expect(b.After(a)).To(BeTrue())
		Expect(a.Compare(a)).To(Equal(0))
	})

	t.Run("round-trips through JSON", func(t *testing.T) {
		raw, err := json.Marshal(NewDate(2024, time.July, 4))
		require.NoError(t, err)
		Expect(string(raw)).To(Equal(`"2024-07-04"`))

		var back Date
		require.NoError(t, json.Unmarshal(raw, &back))
		Expect(back).To(Equal(NewDate(2024, time.July, 4)))
	})
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("title", "title must not be empty").AtIndex(2)

	assert.Equal(t, "item 2: title must not be empty", err.Error())
	assert.ErrorIs(t, NotFoundError(5), ErrNotFound)
	assert.Contains(t, NotFoundError(5).Error(), "task 5")
}

func TestTask_TouchNeverMovesBackwards(t *testing.T) {
	task := Task{CreatedAt: fixedNow, UpdatedAt: fixedNow}

	task.Touch(fixedNow.Add(time.Hour))
	assert.Equal(t, fixedNow.Add(time.Hour), task.UpdatedAt)

	task.Touch(fixedNow.Add(30 * time.Minute))
	assert.Equal(t, fixedNow.Add(time.Hour), task.UpdatedAt)

	fresh := Task{CreatedAt: fixedNow}
	fresh.Touch(fixedNow.Add(-time.Minute))
	assert.Equal(t, fixedNow, fresh.UpdatedAt)
}

func TestDate_CompareOrdersFields(t *testing.T) {
	base := NewDate(2024, time.March, 10)

	assert.Equal(t, 0, base.Compare(NewDate(2024, time.March, 10)))
	assert.Equal(t, -1, base.Compare(NewDate(2025, time.January, 1)))
	assert.Equal(t, 1, base.Compare(NewDate(2024, time.February, 28)))
	assert.Equal(t, -1, base.Compare(NewDate(2024, time.March, 11)))
}
