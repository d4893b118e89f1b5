// Package offline answers messages without any remote service.
//
// Replies come from a small keyword table checked in a fixed order: greeting,
// time of day, help, and finally an echo of the input. The first rule whose
// token appears in the lower-cased, trimmed message wins.
package offline

import (
	"fmt"
	"strings"
	"time"
)

const (
	greetingReply = "안녕하세요! 저는 데모 챗봇이에요. 무엇을 도와드릴까요?"
	timeReply     = "지금 시간 기준으로는 대략 %s 입니다."
	helpReply     = "예: “파이썬 리스트 정렬 예시 알려줘”, “여행 일정 짜줘” 같이 물어보세요!"
	echoReply     = "들으신 내용: “%s” — OpenAI 키가 없으면 데모 모드로 이렇게 응답해요."
)

// Rule names, in match order
const (
	RuleGreeting = "greeting"
	RuleTime     = "time"
	RuleHelp     = "help"
	RuleEcho     = "echo"
)

var (
	greetingTokens = []string{"안녕", "hello", "hi", "hey"}
	timeTokens     = []string{"시간", "time"}
	helpTokens     = []string{"도움", "help"}
)

// Responder produces deterministic replies from keyword rules
type Responder struct {
	now func() time.Time
}

// NewResponder creates a responder that reads the wall clock
func NewResponder() *Responder {
	return &Responder{now: time.Now}
}

// NewResponderWithClock creates a responder with a custom clock
func NewResponderWithClock(now func() time.Time) *Responder {
	if now == nil {
		now = time.Now
	}
	return &Responder{now: now}
}

// Match returns the name of the rule that handles text
func Match(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case containsAny(normalized, greetingTokens):
		return RuleGreeting
	case containsAny(normalized, timeTokens):
		return RuleTime
	case containsAny(normalized, helpTokens):
		return RuleHelp
	default:
		return RuleEcho
	}
}

// Reply returns the offline answer for text
func (r *Responder) Reply(text string) string {
	switch Match(text) {
	case RuleGreeting:
		return greetingReply
	case RuleTime:
		return fmt.Sprintf(timeReply, r.now().Format("15:04"))
	case RuleHelp:
		return helpReply
	default:
		return fmt.Sprintf(echoReply, text)
	}
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
