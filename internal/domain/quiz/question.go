package quiz

// Key identifies one of the funnel's quiz questions.
type Key string

const (
	KeyChristmasPriority Key = "christmas_priority"
	KeyMorningRoutine    Key = "morning_routine"
	KeyMotivation        Key = "motivation"
	KeyCelebrationStyle  Key = "celebration_style"
	KeyIdealGift         Key = "ideal_gift"
	KeyDailyRhythm       Key = "daily_rhythm"
	KeyPersonalValues    Key = "personal_values"
)

// Order is the fixed presentation order of the quiz. The funnel asks
// questions strictly in this sequence.
var Order = []Key{
	KeyChristmasPriority,
	KeyMorningRoutine,
	KeyMotivation,
	KeyCelebrationStyle,
	KeyIdealGift,
	KeyDailyRhythm,
	KeyPersonalValues,
}

// Question is a single quiz screen: a prompt and exactly four mutually
// exclusive option values. Option values double as the scoring engine's
// vote-table lookup keys.
type Question struct {
	Key     Key
	Prompt  string
	Options []string
}

// Questions is the full quiz content, fixed at build time.
var Questions = []Question{
	{
		Key:     KeyChristmasPriority,
		Prompt:  "What matters most to you during the holidays?",
		Options: []string{"family", "fitness", "creativity", "food"},
	},
	{
		Key:     KeyMorningRoutine,
		Prompt:  "How do you feel when you wake up in the morning?",
		Options: []string{"energetic", "peaceful", "hungry", "inspired"},
	},
	{
		Key:     KeyMotivation,
		Prompt:  "What motivates you through the day?",
		Options: []string{"physical", "musical", "culinary", "words"},
	},
	{
		Key:     KeyCelebrationStyle,
		Prompt:  "How do you like to celebrate?",
		Options: []string{"active", "cozy", "feast", "meaningful"},
	},
	{
		Key:     KeyIdealGift,
		Prompt:  "What would be your ideal daily surprise?",
		Options: []string{"fitness", "music", "recipes", "quotes"},
	},
	{
		Key:     KeyDailyRhythm,
		Prompt:  "What is your daily rhythm like?",
		Options: []string{"structured", "flexible", "spontaneous", "balanced"},
	},
	{
		Key:     KeyPersonalValues,
		Prompt:  "What do you value most in life?",
		Options: []string{"health", "creativity", "connection", "achievement"},
	},
}

// ByKey returns the question with the given key.
func ByKey(key Key) (Question, bool) {
	for _, q := range Questions {
		if q.Key == key {
			return q, true
		}
	}
	return Question{}, false
}

// HasOption reports whether value is one of the question's four options.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}
