package ai

import (
	"fmt"
	"strings"
)

// maxSectionRunes caps each context section so one oversized attachment
// cannot crowd out the rest of the prompt
const maxSectionRunes = 20000

// buildReviewPrompt assembles the analysis + question generation prompt.
// The response contract is a single JSON object; parseReviewResponse is
// tolerant of fences and surrounding prose anyway.
func buildReviewPrompt(req *Request) string {
	var b strings.Builder

	b.WriteString(`Ты - опытный наставник на образовательной платформе. Ниже работа студента и контекст модуля.

Твоя задача:
1. Дай структурированную оценку работы.
2. Предложи вопросы для проверочного интервью по этой работе.

`)

	writeSection(&b, "РАБОТА СТУДЕНТА", req.SubmissionText)
	writeSection(&b, "ПРИКРЕПЛЕННЫЙ ФАЙЛ", req.FileText)
	writeSection(&b, "МАТЕРИАЛ МОДУЛЯ", req.ModuleText)
	writeSection(&b, "КОНТЕКСТ ТРЕЙЛА", req.TrailText)

	b.WriteString(`Ответь строго одним JSON-объектом без пояснений вокруг:
{
  "analysis": {
    "short_verdict": "краткий вывод одним-двумя предложениями",
    "strengths": ["..."],
    "weaknesses": ["..."],
    "gaps": ["..."],
    "risk_flags": ["..."],
    "confidence": 0.0
  },
  "questions": [
    {
      "question": "текст вопроса",
      "type": "knowledge|application|reflection|verification|analysis|evaluation|synthesis",
      "difficulty": "easy|medium|hard",
      "rationale": "зачем задавать этот вопрос",
      "source": "submission|file|module|trail"
    }
  ]
}

Предлагай конкретные вопросы по содержанию работы, а не общие определения.`)

	return b.String()
}

func writeSection(b *strings.Builder, title, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	fmt.Fprintf(b, "=== %s ===\n%s\n\n", title, truncateRunes(text, maxSectionRunes))
}

// truncateRunes cuts text to at most n runes, marking the cut
func truncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "\n[... обрезано ...]"
}
