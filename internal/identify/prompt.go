package identify

import (
	"fmt"
	"strings"
)

const baseInstruction = `이 사진 속 새의 한국어 이름(국명)을 알려주세요.
반드시 "이름 | 판단 이유" 형식의 한 줄로만 답하세요.
판단 이유에는 깃털 색, 부리 모양, 크기처럼 사진에서 보이는 특징을 짧게 적어주세요.
사진 속 대상이 새가 아니면 "%s | 이유", 새이지만 종을 알 수 없으면 "%s | 이유"로 답하세요.`

const followupInstruction = `
사용자가 이전 판단에 대해 다음과 같이 의견을 남겼습니다: "%s"
이 의견을 고려해 사진을 다시 살펴보세요. 의견이 사진과 맞지 않으면 원래 판단을 유지하고 그 이유를 설명하세요.`

// Prompt is the text half of an identification request.
type Prompt struct {
	Text     string
	Followup string // user objection being re-examined, if any
}

// FormatRequest builds the instruction sent with each image. A non-empty
// followup asks the model to reconsider in light of the user's objection.
func FormatRequest(followup string) Prompt {
	followup = strings.TrimSpace(followup)

	var b strings.Builder
	fmt.Fprintf(&b, baseInstruction, NotABirdName, UnidentifiableName)
	if followup != "" {
		fmt.Fprintf(&b, followupInstruction, strings.ReplaceAll(followup, `"`, `'`))
	}
	return Prompt{Text: b.String(), Followup: followup}
}
