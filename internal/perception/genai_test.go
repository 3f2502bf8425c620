package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"surveynerd/internal/survey"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"answer":"Male"}`, `{"answer":"Male"}`},
		{"fenced", "```json\n{\"answer\":\"Male\"}\n```", `{"answer":"Male"}`},
		{"fenced without language tag", "```\n{\"answer\":\"Male\"}\n```", `{"answer":"Male"}`},
		{"prose around the object", `Sure, here you go: {"answer":"Male"} Hope that helps.`, `{"answer":"Male"}`},
		{"no object at all", "Male", "Male"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestAnswerResponse_Value(t *testing.T) {
	t.Run("rows take precedence", func(t *testing.T) {
		a := &AnswerResponse{
			Answer:  "ignored",
			Answers: []string{"also ignored"},
			Rows:    map[string]string{"Brand A": "Good"},
		}
		v := a.Value()
		assert.Equal(t, survey.KindRows, v.Kind)
	})

	t.Run("answers over scalar", func(t *testing.T) {
		a := &AnswerResponse{Answer: "ignored", Answers: []string{"Milk", "Bread"}}
		v := a.Value()
		assert.Equal(t, survey.KindList, v.Kind)
		assert.Equal(t, []string{"Milk", "Bread"}, v.List)
	})

	t.Run("scalar is trimmed", func(t *testing.T) {
		a := &AnswerResponse{Answer: "  Male \n"}
		assert.Equal(t, "Male", a.Value().Scalar)
	})
}
