package analysis

import (
	"fmt"
	"strings"

	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

const systemPromptEN = `You are a health screening assistant. You are given the answers to a self-assessment questionnaire and its computed score.
Reply ONLY with a JSON object with these fields:
  "riskLevel": one of "low", "moderate", "high", "critical"
  "riskFactors": array of short strings naming the risk factors the answers show
  "recommendations": array of short, practical recommendations
  "summary": two or three sentences summarising the result
Write every string in English. Do not diagnose. Encourage professional help when the risk is high.`

const systemPromptTH = `คุณเป็นผู้ช่วยคัดกรองสุขภาพ คุณจะได้รับคำตอบจากแบบประเมินตนเองและคะแนนที่คำนวณแล้ว
ตอบกลับเป็นออบเจกต์ JSON เท่านั้น โดยมีฟิลด์ดังนี้
  "riskLevel": ค่าใดค่าหนึ่งจาก "low", "moderate", "high", "critical" (ใช้คำภาษาอังกฤษตามนี้)
  "riskFactors": อาร์เรย์ของข้อความสั้นๆ ระบุปัจจัยเสี่ยงที่พบจากคำตอบ
  "recommendations": อาร์เรย์ของคำแนะนำสั้นๆ ที่นำไปปฏิบัติได้
  "summary": สรุปผล 2-3 ประโยค
เขียนทุกข้อความเป็นภาษาไทย ห้ามวินิจฉัยโรค และแนะนำให้พบผู้เชี่ยวชาญเมื่อมีความเสี่ยงสูง`

func systemPrompt(loc bilingual.Locale) string {
	if loc == bilingual.Thai {
		return systemPromptTH
	}
	return systemPromptEN
}

// userPrompt renders the questionnaire and answers in loc, using option
// labels rather than raw values.
func userPrompt(req Request, loc bilingual.Locale) string {
	var sb strings.Builder
	cat := req.Category
	fmt.Fprintf(&sb, "%s\n", cat.Title.Get(loc))
	if loc == bilingual.Thai {
		fmt.Fprintf(&sb, "คะแนน: %d/%d (ระดับ %s)\n\n", req.TotalScore, req.MaxScore, req.RiskLevel)
	} else {
		fmt.Fprintf(&sb, "Score: %d/%d (tier %s)\n\n", req.TotalScore, req.MaxScore, req.RiskLevel)
	}
	for i, a := range req.Answers {
		q, ok := cat.Question(a.QuestionID)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%d. %s\n   -> %s\n", i+1, q.Prompt.Get(loc), answerText(q, a.Answer, loc))
	}
	return sb.String()
}

func answerText(q *questionbank.Question, v questionbank.Value, loc bilingual.Locale) string {
	if len(q.Options) == 0 {
		return v.String()
	}
	var labels []string
	for _, val := range v.Strings() {
		label := val
		for _, o := range q.Options {
			if o.Value == val {
				label = o.Label.Get(loc)
				break
			}
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}
