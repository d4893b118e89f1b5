package offline

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 7, 5, 0, 0, time.Local)
}

func TestMatch_Precedence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"korean greeting", "안녕", RuleGreeting},
		{"english greeting", "Hello there", RuleGreeting},
		{"greeting wins over time", "hey, what time is it", RuleGreeting},
		{"time korean", "지금 시간 알려줘", RuleTime},
		{"time mixed", "지금 몇 시야? time?", RuleTime},
		{"time wins over help", "TIME help", RuleTime},
		{"help", "  HELP  ", RuleHelp},
		{"help korean", "도움이 필요해", RuleHelp},
		{"echo", "asdfgh", RuleEcho},
		{"empty", "", RuleEcho},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.text))
		})
	}
}

func TestReply_Greeting(t *testing.T) {
	r := NewResponderWithClock(fixedClock)
	assert.Equal(t, greetingReply, r.Reply("안녕"))
}

func TestReply_TimeEmbedsClock(t *testing.T) {
	r := NewResponderWithClock(fixedClock)
	got := r.Reply("지금 몇 시야? time?")

	assert.Contains(t, got, "07:05")
	assert.Regexp(t, regexp.MustCompile(`\d{2}:\d{2}`), got)
}

func TestReply_Help(t *testing.T) {
	r := NewResponderWithClock(fixedClock)
	assert.Equal(t, helpReply, r.Reply("help"))
}

func TestReply_EchoQuotesOriginalInput(t *testing.T) {
	r := NewResponderWithClock(fixedClock)

	assert.Contains(t, r.Reply("asdfgh"), "asdfgh")
	assert.Contains(t, r.Reply("  QwErTy  "), "  QwErTy  ", "echo keeps the raw input")
}

func TestReply_IsDeterministicModCaseAndSpace(t *testing.T) {
	r := NewResponderWithClock(fixedClock)

	assert.Equal(t, r.Reply("HELP"), r.Reply("  help\n"))
	assert.Equal(t, r.Reply("Hello"), r.Reply("hello"))
}

func TestNewResponderWithClock_NilFallsBack(t *testing.T) {
	r := NewResponderWithClock(nil)
	assert.Regexp(t, `\d{2}:\d{2}`, r.Reply("time"))
}
