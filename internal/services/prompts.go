package services

import (
	"fmt"
	"strings"
)

// QuestionTypes are the categories the question stage is steered towards.
var QuestionTypes = []string{"theory", "method", "architecture", "performance", "application"}

const normalPromptTemplate = `You are given the text of a technical or academic document. Write %d question-answer pairs that a domain expert would use to check understanding of it.

Requirements:
1. Every question must be answerable from the document alone.
2. Ask about domain knowledge in the document, not about "this paper" or its authors.
3. Answers are concise, between one and four sentences, and factually grounded in the text.
4. Cover the whole document rather than the first pages only.

Return ONLY a JSON object of this form, with no text before or after it:
{"qa_pairs": [{"question": "...", "answer": "..."}]}

Document:
%s`

const questionPromptTemplate = `You are a senior researcher. Read the document below and write exactly %d research-level questions about the knowledge it contains.

Question types to draw from, adjusted to what the document actually covers:
- theory: core concepts, models, underlying principles
- method: algorithms, designs, optimisation strategies
- architecture: system structure, components, protocols, interfaces
- performance: metrics, complexity, trade-offs, comparisons
- application: practical use, engineering practice, open problems

Requirements:
1. Questions must be grounded in facts stated in the document.
2. Do not ask about the paper itself ("what does this paper propose").
3. Pitch questions at the level of an experienced researcher.

Return ONLY a JSON object of this form:
{"questions": [{"question": "...", "type": "theory"}]}

Document:
%s`

const answerPromptTemplate = `You are a senior researcher answering a question using the reference document below.

Question:
%s

Answer requirements:
1. Give a thorough, well-structured answer of at least 500 words.
2. Start with a clear definition, then explain the mechanisms, models and formulas involved, with parameters explained.
3. Use precise terminology and relate the topic to neighbouring techniques where the document allows.
4. Use only information from the document. If it is incomplete, answer what is known.

Reference document:
%s

Reply with the answer text only, without restating the question.`

// maxPromptChars bounds the document text embedded into a prompt.
const maxPromptChars = 60000

func truncateForPrompt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptChars {
		return text
	}
	return string(runes[:maxPromptChars])
}

func normalPrompt(text string, n int) string {
	return fmt.Sprintf(normalPromptTemplate, n, truncateForPrompt(text))
}

func questionPrompt(text string, n int) string {
	return fmt.Sprintf(questionPromptTemplate, n, truncateForPrompt(text))
}

func answerPrompt(question, text string) string {
	return fmt.Sprintf(answerPromptTemplate, strings.TrimSpace(question), truncateForPrompt(text))
}
