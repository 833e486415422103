package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizShape(t *testing.T) {
	require.Len(t, Questions, 7)
	require.Len(t, Order, 7)

	seen := make(map[Key]bool)
	for i, q := range Questions {
		assert.Equal(t, Order[i], q.Key, "question %d out of order", i+1)
		assert.False(t, seen[q.Key], "duplicate question key %q", q.Key)
		seen[q.Key] = true

		assert.Len(t, q.Options, 4, "question %q must expose exactly 4 options", q.Key)
		assert.NotEmpty(t, q.Prompt)
	}
}

func TestByKey(t *testing.T) {
	q, ok := ByKey(KeyDailyRhythm)
	require.True(t, ok)
	assert.Equal(t, KeyDailyRhythm, q.Key)

	_, ok = ByKey("no_such_question")
	assert.False(t, ok)
}

func TestHasOption(t *testing.T) {
	q, ok := ByKey(KeyChristmasPriority)
	require.True(t, ok)

	assert.True(t, q.HasOption("family"))
	assert.False(t, q.HasOption("FAMILY"))
	assert.False(t, q.HasOption("gym"))
}

func TestAnswersComplete(t *testing.T) {
	answers := make(Answers)
	assert.False(t, answers.Complete())

	for _, q := range Questions {
		answers[q.Key] = q.Options[0]
	}
	assert.True(t, answers.Complete())

	delete(answers, KeyPersonalValues)
	assert.False(t, answers.Complete())
}

func TestAnswersClone(t *testing.T) {
	original := Answers{KeyMotivation: "musical"}
	clone := original.Clone()

	clone[KeyMotivation] = "words"
	assert.Equal(t, "musical", original[KeyMotivation])

	assert.Nil(t, Answers(nil).Clone())
}
